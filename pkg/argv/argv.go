// Package argv serializes an argument vector so it can be passed as a single
// token through several layers of shell quoting (the capture tool's
// --command string, the supervisor's own argv) without being re-split.
//
// The vector is encoded as a JSON array of strings and then as standard
// base64, whose alphabet contains no whitespace or shell metacharacters.
// Each element is itself base64 of the raw argument bytes, since arguments
// need not be valid UTF-8 and JSON strings cannot carry arbitrary bytes.
package argv

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// Encode serializes command into a shell-safe token.
func Encode(command []string) (string, error) {
	// []byte elements marshal as base64 strings, nil ones as null.
	elements := make([][]byte, len(command))
	for i, arg := range command {
		elements[i] = append([]byte{}, arg...)
	}
	payload, err := json.Marshal(elements)
	if err != nil {
		return "", sclerrors.Wrap(err, "failed to encode command")
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decode reverses Encode. The decoded document must be a JSON array whose
// elements are all strings; any other shape is rejected.
func Decode(encoded string) ([]string, error) {
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, sclerrors.Wrap(err, "encoded command is not valid base64")
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, sclerrors.Wrapf(err, "encoded command is not valid JSON: %q", payload)
	}
	if dec.More() {
		return nil, sclerrors.Newf("encoded command has trailing data: %q", payload)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, sclerrors.Newf("expected a JSON list of strings, but got %s", describe(raw))
	}

	command := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, sclerrors.Newf("entry %d of the encoded command should be a string, but is %s", i, describe(item))
		}
		arg, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, sclerrors.Wrapf(err, "entry %d of the encoded command is not valid base64", i)
		}
		command[i] = string(arg)
	}
	return command, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "an object"
	case []any:
		return "a list"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case float64, json.Number:
		return "a number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
