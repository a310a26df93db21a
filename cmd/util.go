package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"

	"thoreinstein.com/scl/pkg/backend"
	"thoreinstein.com/scl/pkg/bootstrap"
	"thoreinstein.com/scl/pkg/config"
	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/invocation"
	"thoreinstein.com/scl/pkg/recorder"
	"thoreinstein.com/scl/pkg/replay"
	"thoreinstein.com/scl/pkg/search"
	"thoreinstein.com/scl/pkg/ui"
)

// exitStatus carries a non-zero exit code of a recorded or replayed
// program. It is not an error to report, just a code to exit with.
type exitStatus struct {
	code int
}

func (e *exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// withExitCode turns the result of a command into the error returned from RunE.
func withExitCode(code int, err error) error {
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitStatus{code: code}
	}
	return nil
}

// exitCode prints err for the user and returns the process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var status *exitStatus
	if errors.As(err, &status) {
		return status.code
	}
	if errors.Is(err, ui.ErrCancelled) {
		return 1
	}

	fmt.Fprintln(os.Stderr, sclerrors.FormatUserError(err))
	if sclerrors.IsInterrupted(err) {
		return sclerrors.InterruptedExitCode
	}
	return 1
}

// sanitizedConfig loads the configuration and prepares it for this system.
func sanitizedConfig() (*config.Sanitized, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return config.Sanitize(cfg, runtime.GOOS, backendOptions()...)
}

// backendOptions strips the carriage returns script adds to each line when
// the output goes to a pipe instead of a terminal.
func backendOptions() []backend.Option {
	return []backend.Option{
		backend.WithLogger(logger),
		backend.WithCarriageReturnFilter(!replay.IsTerminal(os.Stdout)),
	}
}

// currentInvocation returns how scl was started.
func currentInvocation(ctx context.Context) (invocation.Invocation, error) {
	if inv, ok := invocation.FromContext(ctx); ok {
		return inv, nil
	}
	return invocation.Current()
}

func newRecorder(s *config.Sanitized, inv invocation.Invocation) *recorder.Recorder {
	return recorder.New(s.Backend, inv, s.OutputDir,
		recorder.WithRandomBytes(s.FileNameRandomBytes),
		recorder.WithRecordingOptions(s.RecordingOptions()),
		recorder.WithLogger(logger),
	)
}

// recordAsSymlink handles a call through a link named after a program.
// Global flags are not parsed in this mode.
func recordAsSymlink(ctx context.Context, inv invocation.Invocation, args []string) error {
	setupLogging()
	cfg, _, err := bootstrap.InitConfig("", false)
	if err != nil {
		return err
	}
	s, err := config.Sanitize(cfg, runtime.GOOS, backendOptions()...)
	if err != nil {
		return err
	}
	return withExitCode(newRecorder(s, inv).RecordAsSymlink(ctx, args))
}

// replaySession plays the session at path with the configured settings.
func replaySession(ctx context.Context, s *config.Sanitized, path string, opts replay.Options) error {
	r := replay.New(s.Backend, replay.WithOutput(os.Stdout), replay.WithLogger(logger))
	return withExitCode(r.Replay(ctx, path, opts))
}

// selectCommand lets the user pick one of commands by its label.
func selectCommand(ctx context.Context, s *config.Sanitized, commands []search.SearchableCommand) (string, error) {
	entries := make([]ui.Labeled, len(commands))
	for i, c := range commands {
		entries[i] = ui.Labeled{
			Label: replay.FormatLabel(s.CommandFormat, c.Metadata),
			Path:  c.FilePath,
		}
	}

	path, err := ui.NewSelector(s.SelectorCommand).SelectCommand(ctx, entries)
	if errors.Is(err, ui.ErrNoSessions) {
		return "", errors.Newf("no recorded sessions found in %s", s.OutputDir)
	}
	return path, err
}
