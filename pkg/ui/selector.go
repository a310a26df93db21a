// Package ui lets the user pick a session with an external selector such
// as fzf or dmenu.
package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-shellwords"
)

// DefaultSelectorCommand is used when no selector is configured.
const DefaultSelectorCommand = "fzf"

var (
	// ErrCancelled is returned when the user cancels the selection
	ErrCancelled = errors.New("selection cancelled")
	// ErrNoSessions is returned when there are no sessions to select from
	ErrNoSessions = errors.New("no recorded sessions found")
)

// Selector runs a command that reads choices on stdin, one per line, and
// prints the chosen line on stdout.
type Selector struct {
	// Command is split with shell word rules, e.g. "dmenu -l 10".
	Command string
	// Stderr receives the selector's UI. fzf draws its menu there.
	Stderr io.Writer
}

// NewSelector creates a Selector for command.
func NewSelector(command string) *Selector {
	if strings.TrimSpace(command) == "" {
		command = DefaultSelectorCommand
	}
	return &Selector{Command: command, Stderr: os.Stderr}
}

// Select lets the user choose one of choices and returns it. A single
// choice is returned without asking.
func (s *Selector) Select(ctx context.Context, choices []string) (string, error) {
	switch len(choices) {
	case 0:
		return "", ErrNoSessions
	case 1:
		return choices[0], nil
	}
	return s.Run(ctx, strings.Join(choices, "\n")+"\n")
}

// Run feeds input to the selector command and returns its trimmed output.
func (s *Selector) Run(ctx context.Context, input string) (string, error) {
	args, err := shellwords.Parse(s.Command)
	if err != nil {
		return "", fmt.Errorf("invalid selector command %q: %w", s.Command, err)
	}
	if len(args) == 0 {
		return "", fmt.Errorf("selector command is empty")
	}

	path, err := exec.LookPath(args[0])
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", args[0], err)
	}

	// #nosec G204 - the selector command comes from the user's configuration
	cmd := exec.CommandContext(ctx, path, args[1:]...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stderr = s.Stderr
	var output bytes.Buffer
	cmd.Stdout = &output

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// fzf returns 130 on cancellation (ESC, Ctrl-C, Ctrl-G)
			if exitErr.ExitCode() == 130 {
				return "", ErrCancelled
			}
		}
		return "", fmt.Errorf("%s failed: %w", args[0], err)
	}

	selected := strings.TrimSpace(output.String())
	if selected == "" {
		return "", ErrCancelled
	}
	return selected, nil
}

// SelectFile lets the user choose one of the files below root ending in
// ext and returns its full path.
func (s *Selector) SelectFile(ctx context.Context, root, ext string) (string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ext) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", root, err)
	}
	sort.Strings(files)

	choice, err := s.Select(ctx, files)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, choice), nil
}

// Labeled is a choice shown under a label.
type Labeled struct {
	Label string
	Path  string
}

// SelectCommand lets the user choose a session by its label and returns the path of the
// chosen entry. Repeated labels are numbered so every line stays unique.
func (s *Selector) SelectCommand(ctx context.Context, entries []Labeled) (string, error) {
	labels := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	// Last number tried per label; a numbered label may itself be taken.
	suffix := make(map[string]int, len(entries))
	for i, e := range entries {
		base := strings.TrimSpace(e.Label)
		label := base
		for {
			if _, taken := index[label]; !taken {
				break
			}
			n := max(suffix[base], 1) + 1
			suffix[base] = n
			label = fmt.Sprintf("%s (%d)", base, n)
		}
		labels[i] = label
		index[label] = i
	}

	choice, err := s.Select(ctx, labels)
	if err != nil {
		return "", err
	}
	i, ok := index[choice]
	if !ok {
		return "", fmt.Errorf("selected entry %q not found in original list", choice)
	}
	return entries[i].Path, nil
}
