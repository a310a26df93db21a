package backend

import (
	"context"
	"os"
	"sync"
)

// ScriptMacOS records with the BSD script of macOS into a single
// timestamped .script_macos file.
type ScriptMacOS struct {
	common

	speedWarning sync.Once
	limitWarning sync.Once
}

// Name implements Backend.
func (s *ScriptMacOS) Name() Kind { return KindScriptMacOS }

// Extensions implements Backend.
func (s *ScriptMacOS) Extensions() (output, timing string) { return ".script_macos", "" }

// Output implements Backend. The file holds timestamped records rather than
// plain output, which is good enough for text search.
func (s *ScriptMacOS) Output(base string) ([]byte, error) {
	return os.ReadFile(base + ".script_macos")
}

// Log implements Backend.
func (s *ScriptMacOS) Log(ctx context.Context, command []string, base string, opts RecordingOptions) (int, error) {
	return s.runner.Run(ctx, s.LogInvocation(command, base, opts))
}

// Replay implements Backend.
func (s *ScriptMacOS) Replay(ctx context.Context, base string, opts ReplayOptions) (int, error) {
	return s.runner.Run(ctx, s.ReplayInvocation(base, opts))
}

// LogInvocation builds the script command line. -r records input as well
// as output, with timestamps.
func (s *ScriptMacOS) LogInvocation(command []string, base string, opts RecordingOptions) []string {
	if opts.OutputLimit > 0 && opts.OutputLimit != DefaultOutputLimit {
		s.limitWarning.Do(func() {
			s.logger.Warn("[script_macos] output size limit is not supported, recording without a limit",
				"limit", opts.OutputLimit)
		})
	}

	argv := []string{"script", "-q"}
	if opts.AllowStdinCapture {
		argv = append(argv, "-r")
	}
	argv = append(argv, base+".script_macos")
	return append(argv, command...)
}

// ReplayInvocation builds the script playback command line. -d skips the
// recorded delays; other speeds cannot be expressed.
func (s *ScriptMacOS) ReplayInvocation(base string, opts ReplayOptions) []string {
	argv := []string{"script", "-q", "-p"}
	switch {
	case opts.Speed == 0:
		argv = append(argv, "-d")
	case opts.Speed != 1:
		s.speedWarning.Do(func() {
			s.logger.Warn("[script_macos] replay speed is not supported, replaying at original speed",
				"speed", opts.Speed)
		})
	}
	return append(argv, base+".script_macos")
}
