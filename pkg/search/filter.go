package search

import (
	"fmt"
	"path/filepath"
	"strings"

	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/metadata"
)

// Matcher reports whether md matches the given set of values.
type Matcher[V any] func(md metadata.Metadata, values []V) bool

// Dimension holds the only/exclude values of one search dimension. The Set
// flags distinguish "not given" from "given without values".
type Dimension[V any] struct {
	Only       []V
	Exclude    []V
	OnlySet    bool
	ExcludeSet bool
}

// Only returns a Dimension that keeps entries matching one of values.
func Only[V any](values ...V) Dimension[V] {
	return Dimension[V]{Only: values, OnlySet: true}
}

// Exclude returns a Dimension that drops entries matching one of values.
func Exclude[V any](values ...V) Dimension[V] {
	return Dimension[V]{Exclude: values, ExcludeSet: true}
}

// Active reports whether the dimension filters anything.
func (d Dimension[V]) Active() bool {
	return d.OnlySet || d.ExcludeSet
}

// Filter keeps the entries whose metadata matches the only values, or drops
// those matching the exclude values. Supplying both is a usage error and
// leaves entries unfiltered; supplying neither returns entries unchanged.
func Filter[V any](entries []SearchableCommand, only, exclude []V, onlySet, excludeSet bool, match Matcher[V]) ([]SearchableCommand, error) {
	switch {
	case onlySet && excludeSet:
		return entries, sclerrors.NewUsageError("both only and exclude values have been supplied for the same filter")
	case onlySet:
		return keep(entries, func(md metadata.Metadata) bool { return match(md, only) }), nil
	case excludeSet:
		return keep(entries, func(md metadata.Metadata) bool { return !match(md, exclude) }), nil
	default:
		return entries, nil
	}
}

// apply runs Filter for a Dimension and names the dimension in usage errors.
func apply[V any](name string, entries []SearchableCommand, d Dimension[V], match Matcher[V]) ([]SearchableCommand, error) {
	out, err := Filter(entries, d.Only, d.Exclude, d.OnlySet, d.ExcludeSet, match)
	if err != nil {
		return entries, sclerrors.NewUsageError(fmt.Sprintf("%s: only and exclude values are mutually exclusive", name))
	}
	return out, nil
}

func keep(entries []SearchableCommand, pred func(metadata.Metadata) bool) []SearchableCommand {
	out := make([]SearchableCommand, 0, len(entries))
	for _, e := range entries {
		if pred(e.Metadata) {
			out = append(out, e)
		}
	}
	return out
}

// AnyOf lifts a single-value predicate into a Matcher that holds when the
// predicate holds for at least one value.
func AnyOf[V any](pred func(md metadata.Metadata, v V) bool) Matcher[V] {
	return func(md metadata.Metadata, values []V) bool {
		for _, v := range values {
			if pred(md, v) {
				return true
			}
		}
		return false
	}
}

// MatchStatusCode matches sessions recorded with one of the status codes.
var MatchStatusCode = AnyOf(func(md metadata.Metadata, code int) bool {
	return md.StatusCode == code
})

// MatchUser matches sessions recorded by one of the users.
var MatchUser = AnyOf(func(md metadata.Metadata, name string) bool {
	return md.User == name
})

// MatchHost matches sessions recorded on one of the hosts.
var MatchHost = AnyOf(func(md metadata.Metadata, name string) bool {
	return md.Hostname == name
})

// MatchError matches sessions whose error message contains one of the
// values. An empty value set matches any session that has an error message.
func MatchError(md metadata.Metadata, values []string) bool {
	if md.ErrorMessage == nil || *md.ErrorMessage == "" {
		return false
	}
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if strings.Contains(*md.ErrorMessage, v) {
			return true
		}
	}
	return false
}

// MatchProgram matches the base name of the program exactly.
var MatchProgram = AnyOf(func(md metadata.Metadata, name string) bool {
	return md.Program() != "" && filepath.Base(md.Program()) == name
})

// MatchArgument matches a substring of any argument after the program.
var MatchArgument = AnyOf(func(md metadata.Metadata, s string) bool {
	if len(md.Command) < 2 {
		return false
	}
	return containsSubstring(md.Command[1:], s)
})

// MatchCommand matches a substring of any element of the command line,
// the program included.
var MatchCommand = AnyOf(func(md metadata.Metadata, s string) bool {
	return containsSubstring(md.Command, s)
})

// MatchDay matches sessions that were running during one of the windows.
var MatchDay = AnyOf(func(md metadata.Metadata, w DayWindow) bool {
	return RunningDuring(md, w)
})

func containsSubstring(items []string, s string) bool {
	for _, item := range items {
		if strings.Contains(item, s) {
			return true
		}
	}
	return false
}
