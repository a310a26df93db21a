package supervisor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoreinstein.com/scl/pkg/metadata"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX processes and signals")
	}
}

func newTestSupervisor(signals <-chan os.Signal) (*Supervisor, *bytes.Buffer) {
	var stderr bytes.Buffer
	clock := time.Date(2023, 6, 7, 23, 0, 0, 500_000_000, time.UTC)
	s := New(
		WithSignals(signals),
		WithStdio(nil, &bytes.Buffer{}, &stderr),
		WithClock(func() time.Time { return clock }),
	)
	return s, &stderr
}

func TestRun_WritesMetadata(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name       string
		command    []string
		wantStatus int
		wantError  string
	}{
		{"success", []string{"true"}, 0, ""},
		{"failure", []string{"false"}, 1, ""},
		{"exit code", []string{"/bin/sh", "-c", "exit 42"}, 42, ""},
		{"not found by name", []string{"scl-no-such-program"}, -1, "Program 'scl-no-such-program' not found"},
		{"not found by path", []string{"/no/such/binary"}, -1, "Program '/no/such/binary' not found"},
		{"unforwarded signal", []string{"/bin/sh", "-c", "kill -TERM $$"}, 128 + 15, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "x.json")
			s, _ := newTestSupervisor(make(chan os.Signal))

			code := s.Run(context.Background(), tt.command, path)
			assert.Equal(t, tt.wantStatus, code)

			md, err := metadata.ParseFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.command, md.Command)
			assert.Equal(t, tt.wantStatus, md.StatusCode)
			assert.Equal(t, tt.wantError, md.Error())
			if tt.wantError == "" {
				assert.Nil(t, md.ErrorMessage)
			}
			assert.Equal(t, time.Date(2023, 6, 7, 23, 0, 0, 0, time.UTC), md.StartTime)
			assert.False(t, md.EndTime.Before(md.StartTime))
		})
	}
}

func TestExecute_ForwardedInterrupt(t *testing.T) {
	skipOnWindows(t)

	signals := make(chan os.Signal, 1)
	s, _ := newTestSupervisor(signals)

	go func() {
		time.Sleep(200 * time.Millisecond)
		signals <- syscall.SIGINT
	}()

	outcome := s.Execute(context.Background(), []string{"/bin/sh", "-c", "exec sleep 10"})
	assert.Equal(t, metadata.StatusInternalError, outcome.StatusCode)
	require.NotNil(t, outcome.ErrorMessage)
	assert.Equal(t, InterruptedMessage, *outcome.ErrorMessage)
}

func TestExecute_ChildHandlesInterrupt(t *testing.T) {
	skipOnWindows(t)

	signals := make(chan os.Signal, 1)
	s, _ := newTestSupervisor(signals)

	go func() {
		time.Sleep(200 * time.Millisecond)
		signals <- syscall.SIGINT
	}()

	// The child traps the interrupt and exits on its own terms.
	outcome := s.Execute(context.Background(), []string{"/bin/sh", "-c", "trap 'exit 5' INT; while :; do sleep 0.05; done"})
	assert.Equal(t, 5, outcome.StatusCode)
	assert.Nil(t, outcome.ErrorMessage)
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _ := newTestSupervisor(make(chan os.Signal))
	outcome := s.Execute(ctx, []string{"true"})
	assert.Equal(t, metadata.StatusInternalError, outcome.StatusCode)
	require.NotNil(t, outcome.ErrorMessage)
	assert.Equal(t, InterruptedMessage, *outcome.ErrorMessage)
}

func TestExecute_InternalError(t *testing.T) {
	skipOnWindows(t)

	// A directory cannot be executed.
	dir := t.TempDir()
	s, _ := newTestSupervisor(make(chan os.Signal))
	outcome := s.Execute(context.Background(), []string{dir})
	assert.Equal(t, metadata.StatusInternalError, outcome.StatusCode)
	require.NotNil(t, outcome.ErrorMessage)
	assert.Contains(t, *outcome.ErrorMessage, ": ")
	assert.NotContains(t, *outcome.ErrorMessage, "not found")
}

func TestRun_ReportsErrorsOnStderr(t *testing.T) {
	s, stderr := newTestSupervisor(make(chan os.Signal))
	path := filepath.Join(t.TempDir(), "x.json")

	s.Run(context.Background(), []string{"/no/such/binary"}, path)
	assert.Contains(t, stderr.String(), "[scl] Program '/no/such/binary' not found")
}

func TestRun_MetadataWriteFailureKeepsStatus(t *testing.T) {
	skipOnWindows(t)

	s, _ := newTestSupervisor(make(chan os.Signal))
	code := s.Run(context.Background(), []string{"false"}, filepath.Join(t.TempDir(), "missing", "x.json"))
	assert.Equal(t, 1, code)
}

func TestErrorTypeName(t *testing.T) {
	_, err := os.Open("/no/such/file")
	assert.Equal(t, "Errno", errorTypeName(err))
}
