// Package backend wraps the operating system's terminal capture tools
// (script/scriptreplay) behind a uniform interface.
//
// Every operation first builds the native invocation as an argument vector
// and then runs it as a child process attached to the terminal. Building is
// kept separate from running so the invocations can be inspected in tests.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// Kind identifies a recording backend.
type Kind string

const (
	// KindScriptLinux uses util-linux script and scriptreplay.
	KindScriptLinux Kind = "script_linux"
	// KindScriptMacOS uses the BSD script shipped with macOS.
	KindScriptMacOS Kind = "script_macos"
)

// DefaultOutputLimit caps the size of a capture at one gigabyte.
const DefaultOutputLimit int64 = 1024 * 1024 * 1024

// RecordingOptions controls how a command is captured.
type RecordingOptions struct {
	AllowStdinCapture bool
	OutputLimit       int64 // bytes
}

// DefaultRecordingOptions returns the options used when nothing is configured.
func DefaultRecordingOptions() RecordingOptions {
	return RecordingOptions{AllowStdinCapture: true, OutputLimit: DefaultOutputLimit}
}

// ReplayOptions controls playback.
type ReplayOptions struct {
	// Speed divides the recorded delays. 1 replays in real time, 0 replays
	// as fast as possible.
	Speed float64
}

// NewReplayOptions validates speed and returns ReplayOptions. When instant is
// set the speed is ignored and playback skips all delays.
func NewReplayOptions(speed float64, instant bool) (ReplayOptions, error) {
	if speed < 0 {
		return ReplayOptions{}, sclerrors.NewUsageError(fmt.Sprintf("replay speed needs to be positive, but is %g", speed))
	}
	if instant {
		return ReplayOptions{Speed: 0}, nil
	}
	return ReplayOptions{Speed: speed}, nil
}

// Backend records and replays sessions. base is the session path without
// extension; backends append their own artifact extensions.
type Backend interface {
	// Name returns the backend identifier.
	Name() Kind

	// Log runs command under the capture tool and returns its exit code.
	Log(ctx context.Context, command []string, base string, opts RecordingOptions) (int, error)

	// Replay plays the capture stored at base and returns the tool's exit code.
	Replay(ctx context.Context, base string, opts ReplayOptions) (int, error)

	// Extensions returns the extensions of the output and timing artifacts.
	// timing is empty when the backend stores both in one file.
	Extensions() (output, timing string)

	// Output returns the raw captured output of the session at base.
	Output(base string) ([]byte, error)
}

// Option configures a backend.
type Option func(*common)

// WithLogger sets the logger used for warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *common) {
		c.logger = logger
	}
}

// WithRunner replaces the process runner. Used by tests.
func WithRunner(r Runner) Option {
	return func(c *common) {
		c.runner = r
	}
}

// WithCarriageReturnFilter strips the carriage return script appends before
// each newline from the tool's standard output.
func WithCarriageReturnFilter(enabled bool) Option {
	return func(c *common) {
		c.stripCR = enabled
	}
}

// common holds the state shared by all backends.
type common struct {
	logger  *slog.Logger
	runner  Runner
	stripCR bool
}

func newCommon(opts []Option) common {
	c := common{logger: slog.Default()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.runner == nil {
		c.runner = &ExecRunner{StripCarriageReturns: c.stripCR, Logger: c.logger}
	}
	return c
}

// factory describes a backend variant.
type factory struct {
	supported func(goos string) bool
	reason    string
	build     func(common) Backend
}

var factories = map[Kind]factory{
	KindScriptLinux: {
		supported: func(goos string) bool { return goos == "linux" },
		reason:    "requires util-linux script/scriptreplay; the script binary on other systems has different options",
		build:     func(c common) Backend { return &ScriptLinux{common: c} },
	},
	KindScriptMacOS: {
		supported: func(goos string) bool { return goos == "darwin" },
		reason:    "requires the macOS script binary; a tool with the same name but different options exists elsewhere",
		build:     func(c common) Backend { return &ScriptMacOS{common: c} },
	},
}

// Kinds returns all known backend kinds in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ParseKind validates a backend name.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.TrimSpace(name))
	if _, ok := factories[k]; !ok {
		names := make([]string, 0, len(factories))
		for _, known := range Kinds() {
			names = append(names, string(known))
		}
		return "", sclerrors.NewBackendUnavailableError(name, runtime.GOOS,
			fmt.Sprintf("unknown backend, must be one of: %s", strings.Join(names, ", ")))
	}
	return k, nil
}

// BestKind returns the default backend for goos.
func BestKind(goos string) (Kind, error) {
	for _, k := range Kinds() {
		if factories[k].supported(goos) {
			return k, nil
		}
	}
	return "", sclerrors.NewBackendUnavailableError("", goos, "operating system not supported")
}

// Select instantiates the backend kind for goos. It fails with a
// BackendUnavailableError, without touching the file system, when the kind
// is unknown or does not work on goos.
func Select(kind Kind, goos string, opts ...Option) (Backend, error) {
	f, ok := factories[kind]
	if !ok {
		_, err := ParseKind(string(kind))
		return nil, err
	}
	if !f.supported(goos) {
		return nil, sclerrors.NewBackendUnavailableError(string(kind), goos, f.reason)
	}
	return f.build(newCommon(opts)), nil
}
