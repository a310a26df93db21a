// Package replay plays back recorded sessions, framed by a header and a
// footer built from the session metadata.
package replay

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"al.essio.dev/pkg/shellescape"
	"github.com/charmbracelet/lipgloss"

	"thoreinstein.com/scl/pkg/backend"
	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/metadata"
	"thoreinstein.com/scl/pkg/session"
)

// Options controls a single replay.
type Options struct {
	Speed        float64
	SkipMetadata bool
}

// Replayer replays sessions with one backend.
type Replayer struct {
	backend backend.Backend
	out     io.Writer
	color   bool
	logger  *slog.Logger
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithOutput sets where the header and footer are printed. Colors are
// enabled when w is a terminal.
func WithOutput(w io.Writer) Option {
	return func(r *Replayer) {
		r.out = w
		r.color = IsTerminal(w)
	}
}

// WithColor forces colors on or off.
func WithColor(enabled bool) Option {
	return func(r *Replayer) {
		r.color = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Replayer) {
		r.logger = logger
	}
}

// New creates a Replayer.
func New(b backend.Backend, opts ...Option) *Replayer {
	r := &Replayer{
		backend: b,
		out:     os.Stdout,
		color:   IsTerminal(os.Stdout),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extensions returns every extension that may end a session artifact path.
func (r *Replayer) Extensions() []string {
	exts := []string{metadata.Extension, ".log", ".time"}
	output, timing := r.backend.Extensions()
	return append(exts, output, timing)
}

// StripExtension turns the path of any session artifact into the base path.
func (r *Replayer) StripExtension(path string) string {
	return session.StripExtension(path, r.Extensions()...)
}

// Replay plays the session at path, which may be the base path or the path
// of any of its artifacts. Missing or broken metadata only produces a
// warning. It returns the exit code of the playback tool, or
// InterruptedExitCode with ErrInterrupted when ctx is cancelled.
func (r *Replayer) Replay(ctx context.Context, path string, opts Options) (int, error) {
	replayOpts, err := backend.NewReplayOptions(opts.Speed, false)
	if err != nil {
		return 1, err
	}

	base := r.StripExtension(path)

	var md *metadata.Metadata
	if !opts.SkipMetadata {
		md = r.loadMetadata(base + metadata.Extension)
	}

	if md != nil {
		r.print(infoStyle, Header(*md)...)
	}

	code, err := r.backend.Replay(ctx, base, replayOpts)
	if ctx.Err() != nil {
		return sclerrors.InterruptedExitCode, sclerrors.Wrapf(sclerrors.ErrInterrupted, "replaying %s", base)
	}
	if err != nil {
		return 1, sclerrors.Wrapf(err, "failed to replay %s", base)
	}

	if md != nil {
		style := successStyle
		if !md.Success() {
			style = errorStyle
		}
		r.print(style, Footer(*md)...)
	}
	return code, nil
}

func (r *Replayer) loadMetadata(path string) *metadata.Metadata {
	md, err := metadata.ParseFile(path)
	switch {
	case err == nil:
		return &md
	case sclerrors.Is(err, fs.ErrNotExist):
		r.print(warningStyle, fmt.Sprintf("[scl] Metadata file does not exist: '%s'", path))
	default:
		r.print(warningStyle, fmt.Sprintf("[scl] Failed to parse the metadata in '%s'", path))
		r.logger.Debug("metadata parse error", "path", path, "error", err)
	}
	return nil
}

// Header returns the lines printed before playback.
func Header(md metadata.Metadata) []string {
	return []string{
		fmt.Sprintf("[scl] Command executed by %s@%s at %s", md.User, md.Hostname, md.StartTime.UTC().Format(metadata.TimeLayout)),
		"[scl] Command: " + shellescape.QuoteCommand(md.Command),
	}
}

// Footer returns the lines printed after playback.
func Footer(md metadata.Metadata) []string {
	end := md.EndTime.UTC().Format(metadata.TimeLayout)
	if md.Failed() {
		return []string{
			fmt.Sprintf("[scl] Exited at %s because of internal error", end),
			"[scl] Error message: " + md.Error(),
		}
	}
	return []string{fmt.Sprintf("[scl] Exited at %s with code %d", end, md.StatusCode)}
}

func (r *Replayer) print(style lipgloss.Style, lines ...string) {
	for _, line := range lines {
		if r.color {
			line = style.Render(line)
		}
		fmt.Fprintln(r.out, line)
	}
}
