package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// Field names of the persisted document.
const (
	FieldCommand      = "command"
	FieldUser         = "user"
	FieldHostname     = "hostname"
	FieldWorkingDir   = "working_dir"
	FieldStartTime    = "start_time"
	FieldEndTime      = "end_time"
	FieldErrorMessage = "error_message"
	FieldStatusCode   = "status_code"
)

// timeLayouts are tried in order when parsing start_time and end_time.
// Layouts without a zone are interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	// Older recorders used "Z" as the date/time separator.
	"2006-01-02Z15:04:05.999999999Z07:00",
	"2006-01-02Z15:04:05.999999999",
}

// ParseFile reads and validates the metadata file at path.
func ParseFile(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, sclerrors.Wrapf(err, "failed to read metadata file %s", path)
	}

	md, err := Parse(data)
	if err != nil {
		var vErr *sclerrors.ValidationError
		if sclerrors.As(err, &vErr) {
			return Metadata{}, vErr.WithPath(path)
		}
		return Metadata{}, err
	}
	return md, nil
}

// Parse validates a JSON metadata document. Every field is type-checked and
// failures are reported as *errors.ValidationError naming the field.
func Parse(data []byte) (Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Metadata{}, &sclerrors.ValidationError{Message: "not valid JSON", Cause: err}
	}
	if _, err := dec.Token(); !sclerrors.Is(err, io.EOF) {
		return Metadata{}, &sclerrors.ValidationError{Message: "trailing data after the JSON object"}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Metadata{}, &sclerrors.ValidationError{Message: "expected a JSON object, but got " + typeName(raw)}
	}

	var md Metadata
	var err error

	if md.Command, err = commandField(obj); err != nil {
		return Metadata{}, err
	}
	if md.User, err = stringField(obj, FieldUser); err != nil {
		return Metadata{}, err
	}
	if md.Hostname, err = stringField(obj, FieldHostname); err != nil {
		return Metadata{}, err
	}
	// Files written before working_dir was recorded do not have the key.
	if _, present := obj[FieldWorkingDir]; present {
		if md.WorkingDir, err = stringField(obj, FieldWorkingDir); err != nil {
			return Metadata{}, err
		}
	}
	if md.StartTime, err = timeField(obj, FieldStartTime); err != nil {
		return Metadata{}, err
	}
	if md.EndTime, err = timeField(obj, FieldEndTime); err != nil {
		return Metadata{}, err
	}
	if md.EndTime.Before(md.StartTime) {
		return Metadata{}, sclerrors.NewValidationError(FieldEndTime, "is before "+FieldStartTime)
	}
	if md.ErrorMessage, err = errorMessageField(obj); err != nil {
		return Metadata{}, err
	}
	if md.StatusCode, err = statusCodeField(obj); err != nil {
		return Metadata{}, err
	}

	return md, nil
}

func commandField(obj map[string]any) ([]string, error) {
	value, ok := obj[FieldCommand]
	if !ok {
		return nil, missing(FieldCommand)
	}
	items, ok := value.([]any)
	if !ok {
		return nil, sclerrors.NewValidationError(FieldCommand, "should be a list, but is "+typeName(value))
	}
	if len(items) == 0 {
		return nil, sclerrors.NewValidationError(FieldCommand, "should not be empty")
	}

	command := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, sclerrors.NewValidationError(FieldCommand,
				fmt.Sprintf("entry %d should be a string, but is %s", i, typeName(item)))
		}
		command[i] = s
	}
	return command, nil
}

func stringField(obj map[string]any, key string) (string, error) {
	value, ok := obj[key]
	if !ok {
		return "", missing(key)
	}
	s, ok := value.(string)
	if !ok {
		return "", sclerrors.NewValidationError(key, "should be a string, but is "+typeName(value))
	}
	return s, nil
}

func timeField(obj map[string]any, key string) (time.Time, error) {
	s, err := stringField(obj, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, sclerrors.NewValidationErrorWithCause(key, fmt.Sprintf("%q is not an ISO-8601 timestamp", s), err)
	}
	return t, nil
}

func errorMessageField(obj map[string]any) (*string, error) {
	value, ok := obj[FieldErrorMessage]
	if !ok || value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, sclerrors.NewValidationError(FieldErrorMessage, "should be null or a string, but is "+typeName(value))
	}
	return &s, nil
}

func statusCodeField(obj map[string]any) (int, error) {
	value, ok := obj[FieldStatusCode]
	if !ok {
		return 0, missing(FieldStatusCode)
	}
	num, ok := value.(json.Number)
	if !ok {
		return 0, sclerrors.NewValidationError(FieldStatusCode, "should be an integer, but is "+typeName(value))
	}
	code, err := num.Int64()
	if err != nil {
		return 0, sclerrors.NewValidationErrorWithCause(FieldStatusCode, fmt.Sprintf("should be an integer, but is %s", num), err)
	}
	return int(code), nil
}

// ParseTime parses an ISO-8601 timestamp and normalizes it to UTC.
// Timestamps without a zone designator are taken to be UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func missing(key string) error {
	return sclerrors.NewValidationError(key, "missing required key")
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case json.Number:
		return "a number"
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
