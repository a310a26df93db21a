package search

import (
	"bytes"

	"go.yaml.in/yaml/v3"

	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/metadata"
)

// exportedCommand is the YAML form of a search result.
type exportedCommand struct {
	Path         string   `yaml:"path"`
	Command      []string `yaml:"command,flow"`
	User         string   `yaml:"user"`
	Hostname     string   `yaml:"hostname"`
	WorkingDir   string   `yaml:"working_dir,omitempty"`
	StartTime    string   `yaml:"start_time"`
	EndTime      string   `yaml:"end_time"`
	StatusCode   int      `yaml:"status_code"`
	ErrorMessage *string  `yaml:"error_message"`
}

// FormatYAML renders commands as a YAML sequence, one document for all
// results. Times use the metadata file format.
func FormatYAML(commands []SearchableCommand) ([]byte, error) {
	out := make([]exportedCommand, len(commands))
	for i, c := range commands {
		md := c.Metadata
		out[i] = exportedCommand{
			Path:         c.FilePath,
			Command:      md.Command,
			User:         md.User,
			Hostname:     md.Hostname,
			WorkingDir:   md.WorkingDir,
			StartTime:    md.StartTime.UTC().Format(metadata.TimeLayout),
			EndTime:      md.EndTime.UTC().Format(metadata.TimeLayout),
			StatusCode:   md.StatusCode,
			ErrorMessage: md.ErrorMessage,
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, sclerrors.Wrap(err, "failed to render results")
	}
	if err := enc.Close(); err != nil {
		return nil, sclerrors.Wrap(err, "failed to render results")
	}
	return buf.Bytes(), nil
}
