package backend

import (
	"context"
	"os"
	"strconv"

	"al.essio.dev/pkg/shellescape"
)

// instantDivisor makes scriptreplay skip the recorded delays.
const instantDivisor = "1000000"

// ScriptLinux records with util-linux script into a .log/.time pair.
type ScriptLinux struct {
	common
}

// Name implements Backend.
func (s *ScriptLinux) Name() Kind { return KindScriptLinux }

// Extensions implements Backend.
func (s *ScriptLinux) Extensions() (output, timing string) { return ".log", ".time" }

// Output implements Backend.
func (s *ScriptLinux) Output(base string) ([]byte, error) {
	return os.ReadFile(base + ".log")
}

// Log implements Backend.
func (s *ScriptLinux) Log(ctx context.Context, command []string, base string, opts RecordingOptions) (int, error) {
	return s.runner.Run(ctx, s.LogInvocation(command, base, opts))
}

// Replay implements Backend.
func (s *ScriptLinux) Replay(ctx context.Context, base string, opts ReplayOptions) (int, error) {
	return s.runner.Run(ctx, s.ReplayInvocation(base, opts))
}

// LogInvocation builds the script command line. script hands --command to
// a shell, so the argument vector is joined with shell quoting.
// Input is never recorded by this variant.
func (s *ScriptLinux) LogInvocation(command []string, base string, opts RecordingOptions) []string {
	limit := opts.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}
	return []string{
		"script",
		"--log-out", base + ".log",
		"--log-timing", base + ".time",
		"--command", shellescape.QuoteCommand(command),
		"--return",
		"--output-limit", strconv.FormatInt(limit, 10),
		"--quiet",
	}
}

// ReplayInvocation builds the scriptreplay command line.
func (s *ScriptLinux) ReplayInvocation(base string, opts ReplayOptions) []string {
	divisor := instantDivisor
	if opts.Speed != 0 {
		divisor = strconv.FormatFloat(opts.Speed, 'f', -1, 64)
	}
	return []string{
		"scriptreplay",
		"--log-out", base + ".log",
		"--log-timing", base + ".time",
		"--divisor", divisor,
	}
}
