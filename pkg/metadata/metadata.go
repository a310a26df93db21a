// Package metadata reads and writes the JSON document that describes one
// recorded session: what was run, by whom, where, when and how it ended.
package metadata

import (
	"time"
)

// StatusInternalError is the status code recorded when the supervisor could
// not obtain an exit code from the program itself (not found, interrupted,
// internal failure). It is distinct from any exit code a child can return.
const StatusInternalError = -1

// TimeLayout is the layout used for start_time and end_time when writing.
const TimeLayout = "2006-01-02T15:04:05Z"

// Extension is the file extension of metadata files.
const Extension = ".json"

// Metadata describes a single recorded command execution.
// It is written once by the supervisor and never updated afterwards.
type Metadata struct {
	Command      []string
	User         string
	Hostname     string
	WorkingDir   string
	StartTime    time.Time // UTC
	EndTime      time.Time // UTC
	ErrorMessage *string
	StatusCode   int
}

// document is the persisted JSON shape.
type document struct {
	Command      []string `json:"command"`
	User         string   `json:"user"`
	Hostname     string   `json:"hostname"`
	WorkingDir   string   `json:"working_dir"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	ErrorMessage *string  `json:"error_message"`
	StatusCode   int      `json:"status_code"`
}

// Success reports whether the program ran and exited with status 0.
func (m Metadata) Success() bool {
	return m.StatusCode == 0
}

// Failed reports whether the supervisor recorded an internal failure.
func (m Metadata) Failed() bool {
	return m.StatusCode == StatusInternalError
}

// Duration returns how long the command was running.
func (m Metadata) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// Program returns the first element of the command, or "" for an empty command.
func (m Metadata) Program() string {
	if len(m.Command) == 0 {
		return ""
	}
	return m.Command[0]
}

// Error returns the recorded error message, or "" when none was recorded.
func (m Metadata) Error() string {
	if m.ErrorMessage == nil {
		return ""
	}
	return *m.ErrorMessage
}

func (m Metadata) toDocument() document {
	command := m.Command
	if command == nil {
		command = []string{}
	}
	return document{
		Command:      command,
		User:         m.User,
		Hostname:     m.Hostname,
		WorkingDir:   m.WorkingDir,
		StartTime:    m.StartTime.UTC().Format(TimeLayout),
		EndTime:      m.EndTime.UTC().Format(TimeLayout),
		ErrorMessage: m.ErrorMessage,
		StatusCode:   m.StatusCode,
	}
}

// StringPtr is a helper for building an ErrorMessage.
func StringPtr(s string) *string {
	return &s
}
