// Package search finds recorded sessions by their metadata, by the days
// they were running on and by their captured output.
package search

import (
	"context"
	"log/slog"
	"sort"

	"thoreinstein.com/scl/pkg/metadata"
	"thoreinstein.com/scl/pkg/session"
)

// SearchableCommand is a session found on disk.
type SearchableCommand struct {
	FilePath string // path of the metadata file
	Metadata metadata.Metadata
}

// Base returns the session path without extension.
func (c SearchableCommand) Base() string {
	return session.StripExtension(c.FilePath, metadata.Extension)
}

// OutputSource returns the raw captured output of a session.
type OutputSource interface {
	Output(base string) ([]byte, error)
}

// Query combines all search dimensions. Zero values do not filter.
type Query struct {
	StatusCodes Dimension[int]
	Users       Dimension[string]
	Hosts       Dimension[string]
	Errors      Dimension[string]
	Programs    Dimension[string]
	Arguments   Dimension[string]
	Commands    Dimension[string]
	Days        Dimension[DayWindow]

	// Content filters by captured output when set.
	Content *ContentMatcher
}

// Result is the outcome of a search.
type Result struct {
	Commands []SearchableCommand
	// Warnings holds the metadata files that could not be loaded.
	Warnings []error
}

// Engine searches the sessions below one output directory.
type Engine struct {
	root   string
	output OutputSource
	logger *slog.Logger
}

// NewEngine creates an Engine. output may be nil when content search is not
// used.
func NewEngine(root string, output OutputSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{root: root, output: output, logger: logger}
}

// Load parses every metadata file. Files that fail to parse are returned as
// warnings and logged.
func (e *Engine) Load() ([]SearchableCommand, []error, error) {
	results, err := metadata.LoadAll(e.root)
	if err != nil {
		return nil, nil, err
	}

	commands := make([]SearchableCommand, 0, len(results))
	var warnings []error
	for _, r := range results {
		if r.Err != nil {
			e.logger.Warn("skipping unreadable metadata file", "path", r.Path, "error", r.Err)
			warnings = append(warnings, r.Err)
			continue
		}
		commands = append(commands, SearchableCommand{FilePath: r.Path, Metadata: r.Metadata})
	}
	return commands, warnings, nil
}

// Search loads all sessions and applies q. A usage error in q aborts the
// search before any filtering. Results are ordered by start time.
func (e *Engine) Search(ctx context.Context, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}

	commands, warnings, err := e.Load()
	if err != nil {
		return Result{}, err
	}

	commands, err = q.Apply(commands)
	if err != nil {
		return Result{}, err
	}

	if q.Content != nil {
		commands = e.filterContent(ctx, commands, q.Content)
	}

	SortByStartTime(commands)
	return Result{Commands: commands, Warnings: warnings}, nil
}

// Validate checks that no dimension has both only and exclude values.
func (q Query) Validate() error {
	_, err := q.Apply(nil)
	return err
}

// Apply runs the metadata dimensions of q over commands in a fixed order.
func (q Query) Apply(commands []SearchableCommand) ([]SearchableCommand, error) {
	steps := []func([]SearchableCommand) ([]SearchableCommand, error){
		func(c []SearchableCommand) ([]SearchableCommand, error) {
			return apply("status codes", c, q.StatusCodes, MatchStatusCode)
		},
		func(c []SearchableCommand) ([]SearchableCommand, error) { return apply("users", c, q.Users, MatchUser) },
		func(c []SearchableCommand) ([]SearchableCommand, error) { return apply("hosts", c, q.Hosts, MatchHost) },
		func(c []SearchableCommand) ([]SearchableCommand, error) { return apply("errors", c, q.Errors, MatchError) },
		func(c []SearchableCommand) ([]SearchableCommand, error) {
			return apply("programs", c, q.Programs, MatchProgram)
		},
		func(c []SearchableCommand) ([]SearchableCommand, error) {
			return apply("arguments", c, q.Arguments, MatchArgument)
		},
		func(c []SearchableCommand) ([]SearchableCommand, error) {
			return apply("commands", c, q.Commands, MatchCommand)
		},
		func(c []SearchableCommand) ([]SearchableCommand, error) { return apply("days", c, q.Days, MatchDay) },
	}

	var err error
	for _, step := range steps {
		if commands, err = step(commands); err != nil {
			return nil, err
		}
	}
	return commands, nil
}

func (e *Engine) filterContent(ctx context.Context, commands []SearchableCommand, m *ContentMatcher) []SearchableCommand {
	if e.output == nil {
		e.logger.Warn("content search requested without a backend, nothing matches")
		return nil
	}
	if m.Logger == nil {
		m.Logger = e.logger
	}

	out := commands[:0:0]
	for _, c := range commands {
		data, err := e.output.Output(c.Base())
		if err != nil {
			e.logger.Debug("no captured output", "session", c.Base(), "error", err)
			continue
		}
		if m.Match(ctx, data) {
			out = append(out, c)
		}
	}
	return out
}

// SortByStartTime orders commands by start time, then by path.
func SortByStartTime(commands []SearchableCommand) {
	sort.SliceStable(commands, func(i, j int) bool {
		a, b := commands[i], commands[j]
		if !a.Metadata.StartTime.Equal(b.Metadata.StartTime) {
			return a.Metadata.StartTime.Before(b.Metadata.StartTime)
		}
		return a.FilePath < b.FilePath
	})
}
