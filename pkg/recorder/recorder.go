// Package recorder starts a recording: it resolves the program, picks the
// session location and hands the command to the backend, which runs it
// through the supervisor ("scl exec").
package recorder

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"thoreinstein.com/scl/pkg/argv"
	"thoreinstein.com/scl/pkg/backend"
	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/invocation"
	"thoreinstein.com/scl/pkg/session"
)

// ExecCommand is the hidden subcommand that runs the supervisor.
const ExecCommand = "exec"

// DefaultRandomBytes is the number of random bytes in a base id.
const DefaultRandomBytes = 2

// Recorder records commands with one backend into one output directory.
type Recorder struct {
	backend     backend.Backend
	inv         invocation.Invocation
	outputDir   string
	randomBytes int
	opts        backend.RecordingOptions
	logger      *slog.Logger
	now         func() time.Time
	pathEnv     func() string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithRandomBytes sets the number of random bytes in base ids.
func WithRandomBytes(n int) Option {
	return func(r *Recorder) {
		r.randomBytes = n
	}
}

// WithRecordingOptions sets the options passed to the backend.
func WithRecordingOptions(opts backend.RecordingOptions) Option {
	return func(r *Recorder) {
		r.opts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithClock replaces the time source used for base ids.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithPathEnv replaces the source of the PATH variable.
func WithPathEnv(fn func() string) Option {
	return func(r *Recorder) {
		r.pathEnv = fn
	}
}

// New creates a Recorder writing sessions below outputDir.
func New(b backend.Backend, inv invocation.Invocation, outputDir string, opts ...Option) *Recorder {
	r := &Recorder{
		backend:     b,
		inv:         inv,
		outputDir:   outputDir,
		randomBytes: DefaultRandomBytes,
		opts:        backend.DefaultRecordingOptions(),
		logger:      slog.Default(),
		now:         time.Now,
		pathEnv:     func() string { return os.Getenv("PATH") },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record runs command under the backend and returns the backend's exit
// code. Failures of the program itself are stored in the session metadata,
// not returned. When ctx is cancelled while recording, the exit code is
// InterruptedExitCode and the error wraps ErrInterrupted.
func (r *Recorder) Record(ctx context.Context, command []string) (int, error) {
	if len(command) == 0 {
		return 1, sclerrors.NewUsageError("no command given to record")
	}

	resolved := make([]string, len(command))
	copy(resolved, command)
	resolved[0] = ResolveCommandPath(resolved[0], r.inv.MainExecutable, r.pathEnv())

	dir := session.Dir(r.outputDir, resolved[0])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 1, sclerrors.NewStorageError("mkdir", dir, "failed to create session directory", err)
	}

	baseID, err := session.NewBaseID(r.now(), r.randomBytes)
	if err != nil {
		return 1, err
	}
	paths := session.NewPaths(r.outputDir, resolved[0], baseID)

	encoded, err := argv.Encode(resolved)
	if err != nil {
		return 1, err
	}
	inner := []string{r.inv.MainExecutable, ExecCommand, encoded, paths.Metadata()}

	r.logger.Debug("recording command",
		"command", resolved,
		"session", paths.Base,
		"backend", r.backend.Name())

	code, err := r.backend.Log(ctx, inner, paths.Base, r.opts)
	if ctx.Err() != nil {
		r.logger.Debug("recording interrupted", "session", paths.Base)
		return sclerrors.InterruptedExitCode, sclerrors.Wrapf(sclerrors.ErrInterrupted, "recording %s", paths.Base)
	}
	if err != nil {
		return 1, sclerrors.Wrapf(err, "failed to record with %s", r.backend.Name())
	}
	return code, nil
}

// RecordAsSymlink records the program the binary was invoked as. It is used
// when scl is reached through a link such as ~/bin/ls, where args are the
// arguments for ls.
func (r *Recorder) RecordAsSymlink(ctx context.Context, args []string) (int, error) {
	command := append([]string{r.inv.CalledName()}, args...)
	return r.Record(ctx, command)
}

// ResolveCommandPath returns the absolute path of name from pathList,
// skipping any candidate that is the same file as mainExecutable. That
// keeps a link to scl named like the wrapped program from recursing into
// itself. Names containing a separator are returned unchanged, and so are
// names with no match, which may be shell builtins.
func ResolveCommandPath(name, mainExecutable, pathList string) string {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return name
	}

	var self os.FileInfo
	if mainExecutable != "" {
		if fi, err := os.Stat(mainExecutable); err == nil {
			self = fi
		}
	}

	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		fi, err := os.Stat(candidate)
		if err != nil || !fi.Mode().IsRegular() || !isExecutable(candidate, fi) {
			continue
		}
		if self != nil && os.SameFile(fi, self) {
			continue
		}
		return candidate
	}
	return name
}
