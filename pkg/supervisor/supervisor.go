// Package supervisor runs a recorded program as a child process and writes
// the session metadata once the child is gone.
//
// The supervisor itself runs inside the capture tool. Interrupts the
// terminal delivers to it are forwarded to the child, so one Ctrl-C stops
// the program while the outcome still gets recorded.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"os/user"
	"reflect"
	"syscall"
	"time"

	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/metadata"
)

// InterruptedMessage is recorded when the user stopped the program.
const InterruptedMessage = "Interrupted by user (Ctrl-C / SIGINT)"

// forwardedSignals are relayed to the child instead of stopping the supervisor.
var forwardedSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

// Outcome is the classified result of running a program.
type Outcome struct {
	StatusCode   int
	ErrorMessage *string
}

// Supervisor executes commands and records their metadata.
type Supervisor struct {
	logger  *slog.Logger
	now     func() time.Time
	signals <-chan os.Signal
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) {
		s.now = now
	}
}

// WithSignals makes the supervisor read signals from ch instead of
// subscribing to the process signals.
func WithSignals(ch <-chan os.Signal) Option {
	return func(s *Supervisor) {
		s.signals = ch
	}
}

// WithStdio replaces the streams handed to the child.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		s.stdin = stdin
		s.stdout = stdout
		s.stderr = stderr
	}
}

// New creates a Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		logger: slog.Default(),
		now:    time.Now,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes command, writes its metadata to metadataPath and returns the
// recorded status code. The metadata is written exactly once, whatever the
// outcome; a failed write is logged and does not change the status code.
func (s *Supervisor) Run(ctx context.Context, command []string, metadataPath string) int {
	md := metadata.Metadata{
		Command:    command,
		User:       currentUser(),
		Hostname:   hostname(),
		WorkingDir: workingDir(),
		StartTime:  s.timestamp(),
	}

	outcome := s.Execute(ctx, command)
	if outcome.ErrorMessage != nil {
		fmt.Fprintf(s.stderr, "[scl] %s\n", *outcome.ErrorMessage)
	}

	md.EndTime = s.timestamp()
	md.StatusCode = outcome.StatusCode
	md.ErrorMessage = outcome.ErrorMessage

	if err := metadata.Write(context.WithoutCancel(ctx), metadataPath, md); err != nil {
		s.logger.Error("failed to write metadata", "path", metadataPath, "error", err)
	}

	return outcome.StatusCode
}

// Execute runs command to completion and classifies how it ended.
func (s *Supervisor) Execute(ctx context.Context, command []string) Outcome {
	if len(command) == 0 {
		return internalError(sclerrors.NewExecutionError("", "empty command", nil))
	}
	if ctx.Err() != nil {
		return interrupted()
	}

	signals := s.signals
	if signals == nil {
		ch := make(chan os.Signal, 4)
		signal.Notify(ch, forwardedSignals...)
		defer signal.Stop(ch)
		signals = ch
	}

	// #nosec G204 - running the user's command is the point
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr

	if err := cmd.Start(); err != nil {
		if sclerrors.Is(err, exec.ErrNotFound) || sclerrors.Is(err, fs.ErrNotExist) {
			msg := fmt.Sprintf("Program '%s' not found", command[0])
			return Outcome{StatusCode: metadata.StatusInternalError, ErrorMessage: &msg}
		}
		return internalError(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	forwarded := false
	ctxDone := ctx.Done()
	for {
		select {
		case sig := <-signals:
			s.logger.Debug("forwarding signal to child", "signal", sig, "pid", cmd.Process.Pid)
			if err := cmd.Process.Signal(sig); err == nil {
				forwarded = true
			}
		case <-ctxDone:
			ctxDone = nil
			if err := cmd.Process.Signal(os.Interrupt); err == nil {
				forwarded = true
			}
		case err := <-done:
			return classify(err, forwarded)
		}
	}
}

// classify maps the result of Wait to an outcome. A child killed by a signal
// counts as interrupted only when the supervisor forwarded one; otherwise it
// is a normal exit with the shell status 128+signal.
func classify(waitErr error, forwarded bool) Outcome {
	if waitErr == nil {
		return Outcome{StatusCode: 0}
	}

	var exitErr *exec.ExitError
	if !sclerrors.As(waitErr, &exitErr) {
		return internalError(waitErr)
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		if forwarded {
			return interrupted()
		}
		return Outcome{StatusCode: 128 + int(ws.Signal())}
	}
	return Outcome{StatusCode: exitErr.ExitCode()}
}

func interrupted() Outcome {
	msg := InterruptedMessage
	return Outcome{StatusCode: metadata.StatusInternalError, ErrorMessage: &msg}
}

func internalError(err error) Outcome {
	msg := fmt.Sprintf("%s: %s", errorTypeName(err), err.Error())
	return Outcome{StatusCode: metadata.StatusInternalError, ErrorMessage: &msg}
}

// errorTypeName returns the bare type name of the innermost error, e.g.
// "PathError" or "Errno".
func errorTypeName(err error) string {
	for {
		next := sclerrors.Cause(err)
		if next == nil || next == err {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "Error"
	}
	return t.Name()
}

func (s *Supervisor) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// currentUser follows the lookup order of login tools: environment first,
// then the password database.
func currentUser() string {
	for _, key := range []string{"LOGNAME", "USER", "LNAME", "USERNAME"} {
		if name := os.Getenv(key); name != "" {
			return name
		}
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

func workingDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return dir
}
