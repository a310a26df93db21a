package backend

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

type recordingRunner struct {
	calls [][]string
	code  int
}

func (r *recordingRunner) Run(_ context.Context, argv []string) (int, error) {
	r.calls = append(r.calls, append([]string(nil), argv...))
	return r.code, nil
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		goos    string
		wantErr bool
	}{
		{"linux on linux", KindScriptLinux, "linux", false},
		{"linux on darwin", KindScriptLinux, "darwin", true},
		{"macos on darwin", KindScriptMacOS, "darwin", false},
		{"macos on linux", KindScriptMacOS, "linux", true},
		{"unknown kind", Kind("asciinema"), "linux", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Select(tt.kind, tt.goos)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, sclerrors.IsBackendUnavailable(err))
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, b.Name())
		})
	}
}

func TestBestKind(t *testing.T) {
	k, err := BestKind("linux")
	require.NoError(t, err)
	assert.Equal(t, KindScriptLinux, k)

	k, err = BestKind("darwin")
	require.NoError(t, err)
	assert.Equal(t, KindScriptMacOS, k)

	_, err = BestKind("windows")
	assert.True(t, sclerrors.IsBackendUnavailable(err))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" script_linux ")
	require.NoError(t, err)
	assert.Equal(t, KindScriptLinux, k)

	_, err = ParseKind("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script_linux, script_macos")
}

func TestNewReplayOptions(t *testing.T) {
	_, err := NewReplayOptions(-1, false)
	assert.True(t, sclerrors.IsUsageError(err))

	opts, err := NewReplayOptions(2.5, true)
	require.NoError(t, err)
	assert.Zero(t, opts.Speed)

	opts, err = NewReplayOptions(2.5, false)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, opts.Speed, 0)
}

func TestScriptLinuxInvocations(t *testing.T) {
	runner := &recordingRunner{code: 3}
	b, err := Select(KindScriptLinux, "linux", WithRunner(runner))
	require.NoError(t, err)

	code, err := b.Log(context.Background(), []string{"/usr/bin/scl", "exec", "WyJscyJd", "/d/ls/x.json"}, "/d/ls/x",
		RecordingOptions{OutputLimit: 4096})
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"script",
		"--log-out", "/d/ls/x.log",
		"--log-timing", "/d/ls/x.time",
		"--command", "/usr/bin/scl exec WyJscyJd /d/ls/x.json",
		"--return",
		"--output-limit", "4096",
		"--quiet",
	}, runner.calls[0])

	t.Run("command is shell quoted", func(t *testing.T) {
		argv := b.(*ScriptLinux).LogInvocation([]string{"echo", "a b", "it's"}, "/x", DefaultRecordingOptions())
		assert.Equal(t, `echo 'a b' 'it'"'"'s'`, argv[6])
		assert.Equal(t, "1073741824", argv[9])
	})

	t.Run("replay divisor", func(t *testing.T) {
		sl := b.(*ScriptLinux)
		assert.Equal(t, []string{"scriptreplay", "--log-out", "/x.log", "--log-timing", "/x.time", "--divisor", "1000000"},
			sl.ReplayInvocation("/x", ReplayOptions{Speed: 0}))
		assert.Equal(t, "2.5", sl.ReplayInvocation("/x", ReplayOptions{Speed: 2.5})[6])
		assert.Equal(t, "1", sl.ReplayInvocation("/x", ReplayOptions{Speed: 1})[6])
	})

	output, timing := b.Extensions()
	assert.Equal(t, ".log", output)
	assert.Equal(t, ".time", timing)
}

func TestScriptMacOSInvocations(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	runner := &recordingRunner{}

	b, err := Select(KindScriptMacOS, "darwin", WithRunner(runner), WithLogger(logger))
	require.NoError(t, err)
	m := b.(*ScriptMacOS)

	assert.Equal(t, []string{"script", "-q", "-r", "/x.script_macos", "ls", "-l"},
		m.LogInvocation([]string{"ls", "-l"}, "/x", DefaultRecordingOptions()))
	assert.Equal(t, []string{"script", "-q", "/x.script_macos", "ls"},
		m.LogInvocation([]string{"ls"}, "/x", RecordingOptions{OutputLimit: DefaultOutputLimit}))
	assert.Empty(t, logs.String())

	assert.Equal(t, []string{"script", "-q", "-p", "-d", "/x.script_macos"},
		m.ReplayInvocation("/x", ReplayOptions{Speed: 0}))
	assert.Equal(t, []string{"script", "-q", "-p", "/x.script_macos"},
		m.ReplayInvocation("/x", ReplayOptions{Speed: 1}))
	assert.Empty(t, logs.String())

	_, err = b.Replay(context.Background(), "/x", ReplayOptions{Speed: 3})
	require.NoError(t, err)
	_, err = b.Replay(context.Background(), "/x", ReplayOptions{Speed: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs.String(), "replay speed is not supported"))
	assert.Equal(t, []string{"script", "-q", "-p", "/x.script_macos"}, runner.calls[1])

	m.LogInvocation([]string{"ls"}, "/x", RecordingOptions{OutputLimit: 10})
	m.LogInvocation([]string{"ls"}, "/x", RecordingOptions{OutputLimit: 10})
	assert.Equal(t, 1, strings.Count(logs.String(), "output size limit is not supported"))

	output, timing := b.Extensions()
	assert.Equal(t, ".script_macos", output)
	assert.Empty(t, timing)
}

func TestOutput(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "2023w23c_120000_ab")
	require.NoError(t, os.WriteFile(base+".log", []byte("hello\n"), 0o644))

	b, err := Select(KindScriptLinux, "linux")
	require.NoError(t, err)

	out, err := b.Output(base)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	_, err = b.Output(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	t.Run("exit code", func(t *testing.T) {
		r := &ExecRunner{Stdout: &bytes.Buffer{}}
		code, err := r.Run(context.Background(), []string{"/bin/sh", "-c", "exit 7"})
		require.NoError(t, err)
		assert.Equal(t, 7, code)
	})

	t.Run("killed by signal", func(t *testing.T) {
		r := &ExecRunner{Stdout: &bytes.Buffer{}}
		code, err := r.Run(context.Background(), []string{"/bin/sh", "-c", "kill -TERM $$"})
		require.NoError(t, err)
		assert.Equal(t, 128+15, code)
	})

	t.Run("missing tool", func(t *testing.T) {
		r := &ExecRunner{}
		_, err := r.Run(context.Background(), []string{"/no/such/tool"})
		assert.Error(t, err)
	})

	t.Run("carriage returns stripped", func(t *testing.T) {
		var out bytes.Buffer
		r := &ExecRunner{Stdout: &out, StripCarriageReturns: true}
		_, err := r.Run(context.Background(), []string{"/bin/sh", "-c", `printf 'a\r\nb\rc\r'`})
		require.NoError(t, err)
		assert.Equal(t, "a\nb\rc\r", out.String())
	})
}

func TestCRLFWriterAcrossWrites(t *testing.T) {
	var out bytes.Buffer
	w := &crlfWriter{w: &out}

	_, err := w.Write([]byte("line\r"))
	require.NoError(t, err)
	_, err = w.Write([]byte("\nnext\r"))
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	assert.Equal(t, "line\nnext\rx", out.String())
}
