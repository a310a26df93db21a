package search

import (
	"fmt"
	"strings"
	"time"

	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/metadata"
)

// Position locates a point in time relative to a DayWindow.
type Position int

const (
	Before Position = iota
	During
	After
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case During:
		return "during"
	case After:
		return "after"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// DayWindow is one UTC calendar day, both bounds inclusive.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// NewDayWindow returns the window of the UTC calendar day containing day.
func NewDayWindow(day time.Time) DayWindow {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999_999_000, time.UTC)
	return DayWindow{Start: start, End: end}
}

// String returns the date of the window.
func (w DayWindow) String() string {
	return w.Start.Format(time.DateOnly)
}

// Classify returns where t lies relative to w.
func Classify(t time.Time, w DayWindow) Position {
	switch {
	case t.Before(w.Start):
		return Before
	case t.After(w.End):
		return After
	default:
		return During
	}
}

// RunningDuring reports whether the session overlapped w. A session that
// started before the day matches when it had not also ended before it.
func RunningDuring(md metadata.Metadata, w DayWindow) bool {
	switch Classify(md.StartTime, w) {
	case During:
		return true
	case Before:
		return Classify(md.EndTime, w) != Before
	default:
		return false
	}
}

var dayLayouts = []string{
	time.DateOnly,
	"2006-01-02 15:04",
	time.DateTime,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// ParseDay parses a day argument. Only the date part is used; values with a
// zone offset are converted to UTC first, all others are read as UTC.
func ParseDay(s string) (DayWindow, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return NewDayWindow(t), nil
		}
	}
	return DayWindow{}, sclerrors.NewUsageError(fmt.Sprintf("cannot parse day %q, expected a date like 2006-01-02", s))
}

// ParseDays parses every argument with ParseDay.
func ParseDays(values []string) ([]DayWindow, error) {
	windows := make([]DayWindow, 0, len(values))
	for _, v := range values {
		w, err := ParseDay(v)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}
