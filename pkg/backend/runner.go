package backend

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// cancelGracePeriod bounds how long a cancelled tool may keep running.
const cancelGracePeriod = 5 * time.Second

// Runner executes a native invocation and returns its exit code.
type Runner interface {
	Run(ctx context.Context, argv []string) (int, error)
}

// ExecRunner runs invocations as child processes attached to the terminal.
type ExecRunner struct {
	StripCarriageReturns bool
	Stdin                io.Reader
	Stdout               io.Writer
	Stderr               io.Writer
	Logger               *slog.Logger
}

// Run implements Runner. A nonzero exit status is returned as the code, not
// as an error; errors are reserved for failing to start the tool.
func (r *ExecRunner) Run(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, sclerrors.New("empty invocation")
	}
	if r.Logger != nil {
		r.Logger.Debug("running backend invocation", "argv", argv)
	}

	// #nosec G204 - argv[0] is one of the fixed capture tool names
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// Cancellation interrupts the capture tool instead of killing it, so the
	// supervisor inside still records the outcome.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = cancelGracePeriod
	cmd.Stdin = os.Stdin
	if r.Stdin != nil {
		cmd.Stdin = r.Stdin
	}
	cmd.Stderr = os.Stderr
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}

	var stdout io.Writer = os.Stdout
	if r.Stdout != nil {
		stdout = r.Stdout
	}
	var filter *crlfWriter
	if r.StripCarriageReturns {
		filter = &crlfWriter{w: stdout}
		stdout = filter
	}
	cmd.Stdout = stdout

	err := cmd.Run()
	if filter != nil {
		if flushErr := filter.Flush(); flushErr != nil && err == nil {
			err = flushErr
		}
	}
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if sclerrors.As(err, &exitErr) {
		return ExitCode(exitErr), nil
	}
	return 0, sclerrors.Wrapf(err, "failed to run %s", argv[0])
}

// ExitCode maps a terminated process to a shell-style status: the exit code,
// or 128+signal when the process was killed by a signal.
func ExitCode(exitErr *exec.ExitError) int {
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}

// crlfWriter drops a carriage return that directly precedes a newline.
// script emits "\r\n" line endings, which break consumers like cut.
type crlfWriter struct {
	w         io.Writer
	pendingCR bool
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+1)
	for _, b := range p {
		if c.pendingCR {
			c.pendingCR = false
			if b != '\n' {
				out = append(out, '\r')
			}
		}
		if b == '\r' {
			c.pendingCR = true
			continue
		}
		out = append(out, b)
	}
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush writes a carriage return held back at the end of the stream.
func (c *crlfWriter) Flush() error {
	if !c.pendingCR {
		return nil
	}
	c.pendingCR = false
	_, err := c.w.Write([]byte{'\r'})
	return err
}
