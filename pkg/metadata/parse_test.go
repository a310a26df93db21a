package metadata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

const validDocument = `{
	"command": ["echo", "hi"],
	"user": "alice",
	"hostname": "box",
	"working_dir": "/home/alice",
	"start_time": "2023-06-07T23:00:00Z",
	"end_time": "2023-06-08T01:00:00Z",
	"error_message": null,
	"status_code": 0
}`

func TestParse_Valid(t *testing.T) {
	md, err := Parse([]byte(validDocument))
	require.NoError(t, err)

	assert.Equal(t, []string{"echo", "hi"}, md.Command)
	assert.Equal(t, "alice", md.User)
	assert.Equal(t, "box", md.Hostname)
	assert.Equal(t, "/home/alice", md.WorkingDir)
	assert.Equal(t, time.Date(2023, 6, 7, 23, 0, 0, 0, time.UTC), md.StartTime)
	assert.Equal(t, time.Date(2023, 6, 8, 1, 0, 0, 0, time.UTC), md.EndTime)
	assert.Nil(t, md.ErrorMessage)
	assert.Equal(t, 0, md.StatusCode)
	assert.Equal(t, 2*time.Hour, md.Duration())
	assert.True(t, md.Success())
	assert.Equal(t, "echo", md.Program())
}

func TestParse_ErrorMessageAndNegativeStatus(t *testing.T) {
	doc := mutate(t, func(m map[string]any) {
		m["error_message"] = "Program 'nope' not found"
		m["status_code"] = -1
	})

	md, err := Parse(doc)
	require.NoError(t, err)
	require.NotNil(t, md.ErrorMessage)
	assert.Equal(t, "Program 'nope' not found", md.Error())
	assert.True(t, md.Failed())
}

func TestParse_TimeFormats(t *testing.T) {
	want := time.Date(2022, 3, 19, 13, 36, 50, 0, time.UTC)

	tests := []struct {
		name  string
		value string
	}{
		{"zulu", "2022-03-19T13:36:50Z"},
		{"offset zero", "2022-03-19T13:36:50+00:00"},
		{"offset", "2022-03-19T15:36:50+02:00"},
		{"naive", "2022-03-19T13:36:50"},
		{"space separator", "2022-03-19 13:36:50"},
		{"legacy Z separator", "2022-03-19Z13:36:50+00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mutate(t, func(m map[string]any) {
				m["start_time"] = tt.value
				m["end_time"] = tt.value
			})
			md, err := Parse(doc)
			require.NoError(t, err)
			assert.True(t, want.Equal(md.StartTime), "got %v", md.StartTime)
			assert.Equal(t, time.UTC, md.StartTime.Location())
		})
	}
}

func TestParse_WorkingDirOptional(t *testing.T) {
	doc := mutate(t, func(m map[string]any) {
		delete(m, "working_dir")
	})
	md, err := Parse(doc)
	require.NoError(t, err)
	assert.Empty(t, md.WorkingDir)
}

func TestParse_ErrorMessageAbsent(t *testing.T) {
	doc := mutate(t, func(m map[string]any) {
		delete(m, "error_message")
	})
	md, err := Parse(doc)
	require.NoError(t, err)
	assert.Nil(t, md.ErrorMessage)
}

func TestParse_MissingRequiredFields(t *testing.T) {
	for _, field := range []string{"command", "user", "hostname", "start_time", "end_time", "status_code"} {
		t.Run(field, func(t *testing.T) {
			doc := mutate(t, func(m map[string]any) {
				delete(m, field)
			})
			_, err := Parse(doc)
			assertValidationField(t, err, field)
		})
	}
}

func TestParse_WrongTypes(t *testing.T) {
	tests := []struct {
		field string
		value any
	}{
		{"command", "echo hi"},
		{"command", []any{"echo", 1}},
		{"command", []any{}},
		{"command", nil},
		{"user", 5},
		{"hostname", []any{"box"}},
		{"working_dir", false},
		{"start_time", 12345},
		{"start_time", "yesterday"},
		{"end_time", "2023-13-45T99:00:00Z"},
		{"error_message", 7},
		{"error_message", map[string]any{}},
		{"status_code", "0"},
		{"status_code", 1.5},
		{"status_code", nil},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			doc := mutate(t, func(m map[string]any) {
				m[tt.field] = tt.value
			})
			_, err := Parse(doc)
			assertValidationField(t, err, tt.field)
		})
	}
}

func TestParse_CommandNamesBadIndex(t *testing.T) {
	doc := mutate(t, func(m map[string]any) {
		m["command"] = []any{"ls", "-l", true}
	})
	_, err := Parse(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 2")
}

func TestParse_NotAnObject(t *testing.T) {
	for _, doc := range []string{`[]`, `"x"`, `null`, `{`, ``} {
		_, err := Parse([]byte(doc))
		require.Error(t, err, "doc %q", doc)
		assert.True(t, sclerrors.IsValidationError(err), "doc %q: %v", doc, err)
	}
}

func TestParse_EndBeforeStart(t *testing.T) {
	doc := mutate(t, func(m map[string]any) {
		m["start_time"] = "2023-06-08T01:00:00Z"
		m["end_time"] = "2023-06-07T23:00:00Z"
	})
	_, err := Parse(doc)
	assertValidationField(t, err, "end_time")
	assert.Contains(t, err.Error(), "is before start_time")
}

func TestParse_EndEqualsStart(t *testing.T) {
	doc := mutate(t, func(m map[string]any) {
		m["end_time"] = m["start_time"]
	})
	md, err := Parse(doc)
	require.NoError(t, err)
	assert.Zero(t, md.Duration())
}

func TestParse_TrailingData(t *testing.T) {
	for _, suffix := range []string{"garbage", "{}", `"x"`, "]"} {
		_, err := Parse([]byte(validDocument + suffix))
		require.Error(t, err, "suffix %q", suffix)
		assert.True(t, sclerrors.IsValidationError(err), "suffix %q: %v", suffix, err)
	}

	_, err := Parse([]byte(validDocument + "\n\t "))
	require.NoError(t, err)
}

func TestParse_RoundTripsThroughWrite(t *testing.T) {
	original := Metadata{
		Command:      []string{"sh", "-c", "exit 3"},
		User:         "bob",
		Hostname:     "host",
		WorkingDir:   "/tmp",
		StartTime:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		EndTime:      time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC),
		ErrorMessage: StringPtr("Interrupted by user (Ctrl-C / SIGINT)"),
		StatusCode:   -1,
	}

	payload, err := json.Marshal(original.toDocument())
	require.NoError(t, err)

	parsed, err := Parse(payload)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func mutate(t *testing.T, fn func(map[string]any)) []byte {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(validDocument), &m))
	fn(m)
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}

func assertValidationField(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var vErr *sclerrors.ValidationError
	require.True(t, sclerrors.As(err, &vErr), "expected ValidationError, got %T: %v", err, err)
	assert.Equal(t, field, vErr.Field)
	assert.Contains(t, err.Error(), field)
}
