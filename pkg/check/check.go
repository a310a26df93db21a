// Package check verifies that the tools scl shells out to are installed.
package check

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/charmbracelet/lipgloss"

	"thoreinstein.com/scl/pkg/ui"
)

// correctChoice is the line the selector round trip expects back.
const correctChoice = "correct choice"

var (
	foundStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Dependency is an external program scl uses.
type Dependency struct {
	Name     string
	Required bool
	// Reason names the feature that needs the dependency.
	Reason string
}

// Result is the outcome of checking one dependency.
type Result struct {
	Dependency
	// Label is printed before the status, e.g. "Binary 'grep' is".
	Label  string
	OK     bool
	Status string
	Hint   string
}

// Report collects all results of a check run.
type Report struct {
	Results []Result
}

// RequiredMissing reports whether a required dependency failed.
func (r *Report) RequiredMissing() bool {
	for _, res := range r.Results {
		if res.Required && !res.OK {
			return true
		}
	}
	return false
}

// ExitCode is 1 when a required dependency is missing and 0 otherwise.
func (r *Report) ExitCode() int {
	if r.RequiredMissing() {
		return 1
	}
	return 0
}

// Binaries returns the programs needed on goos.
func Binaries(goos string) []Dependency {
	deps := []Dependency{{Name: "script", Required: true, Reason: "logging command output"}}
	if goos == "linux" {
		deps = append(deps, Dependency{Name: "scriptreplay", Required: true, Reason: "replaying logged commands"})
	}
	return append(deps, Dependency{Name: "grep", Required: false, Reason: "searching command output"})
}

// Checker runs the dependency checks.
type Checker struct {
	lookPath func(string) (string, error)
}

// Option configures a Checker.
type Option func(*Checker)

// WithLookPath replaces the PATH lookup, used by tests.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(c *Checker) {
		c.lookPath = fn
	}
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run checks the binaries for goos and round trips selectorCommand.
func (c *Checker) Run(ctx context.Context, goos, selectorCommand string) *Report {
	report := &Report{}
	for _, dep := range Binaries(goos) {
		report.Results = append(report.Results, c.checkBinary(dep))
	}
	report.Results = append(report.Results, c.checkSelector(ctx, selectorCommand))
	return report
}

func (c *Checker) checkBinary(dep Dependency) Result {
	res := Result{Dependency: dep, Label: fmt.Sprintf("Binary '%s' is", dep.Name)}
	if _, err := c.lookPath(dep.Name); err != nil {
		res.Status = "missing"
		return res
	}
	res.OK = true
	res.Status = "installed"
	return res
}

// checkSelector feeds a known list to the selector and expects the
// line that the prompt asks for. Non-interactive selectors pass
// only if they pick it on their own.
func (c *Checker) checkSelector(ctx context.Context, command string) Result {
	res := Result{
		Dependency: Dependency{Name: command, Reason: "selecting which command to replay"},
		Label:      fmt.Sprintf("Command for interactive selection (%s)", command),
		Hint:       "You can set a custom command with: scl config --set fzf-command 'put your command here'",
	}
	input := "Please select '" + correctChoice + "' from the choices offered:\nDo not select me\n" + correctChoice + "\nAnother bad choice\n"

	selector := ui.NewSelector(command)
	selector.Stderr = io.Discard
	got, err := selector.Run(ctx, input)
	switch {
	case err != nil:
		res.Status = "caused an error: " + err.Error()
	case got != correctChoice:
		res.Status = "returned unexpected value"
	default:
		res.OK = true
		res.Status = "returned expected result"
		res.Hint = ""
	}
	return res
}

// Print writes the report in a human readable form.
func (r *Report) Print(w io.Writer, color bool) {
	render := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	for _, res := range r.Results {
		if res.OK {
			fmt.Fprintf(w, "%s %s\n", res.Label, render(foundStyle.Bold(res.Required), res.Status))
			continue
		}
		fmt.Fprintf(w, "%s %s\n", res.Label, render(missingStyle.Bold(res.Required), res.Status))

		kind := "Optional"
		if res.Required {
			kind = "Required"
		}
		fmt.Fprintln(w, render(hintStyle.Bold(res.Required), fmt.Sprintf(" -> %s dependency: Used for %s", kind, res.Reason)))
		if res.Hint != "" {
			fmt.Fprintln(w, render(hintStyle, " -> "+res.Hint))
		}
	}
}
