package search

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/mattn/go-shellwords"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// Defaults for content search.
const (
	DefaultContentCommand = "grep"
	DefaultContentTimeout = 2 * time.Second
)

// ContentMatcher pipes captured output through an external text search
// command. The command matches when it exits with status 0; a timeout or any
// other status is a non-match.
type ContentMatcher struct {
	Command string
	Args    []string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewContentMatcher creates a matcher running grep with patternAndFlags,
// which is split with shell word rules, e.g. `-i "disk full"`.
func NewContentMatcher(patternAndFlags string) (*ContentMatcher, error) {
	args, err := shellwords.Parse(patternAndFlags)
	if err != nil {
		return nil, sclerrors.NewUsageError("cannot parse output pattern: " + err.Error())
	}
	if len(args) == 0 {
		return nil, sclerrors.NewUsageError("output pattern is empty")
	}
	return &ContentMatcher{
		Command: DefaultContentCommand,
		Args:    args,
		Timeout: DefaultContentTimeout,
	}, nil
}

// Match feeds output to the search command and reports whether it matched.
func (m *ContentMatcher) Match(ctx context.Context, output []byte) bool {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultContentTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 - the search command and pattern come from the user
	cmd := exec.CommandContext(ctx, m.Command, m.Args...)
	cmd.Stdin = bytes.NewReader(output)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	cmd.WaitDelay = timeout

	err := cmd.Run()
	if err != nil {
		m.logger().Debug("content search did not match", "command", m.Command, "error", err,
			"timed_out", ctx.Err() != nil)
		return false
	}
	return true
}

func (m *ContentMatcher) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
