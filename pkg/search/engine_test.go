package search

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/metadata"
)

type mapOutput map[string]string

func (m mapOutput) Output(base string) ([]byte, error) {
	out, ok := m[filepath.Base(base)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(out), nil
}

func writeSession(t *testing.T, root, program, id string, start, end time.Time, status int) string {
	t.Helper()
	dir := filepath.Join(root, program)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, id+".json")
	md := metadata.Metadata{
		Command:    []string{"/usr/bin/" + program, "arg"},
		User:       "alice",
		Hostname:   "box",
		WorkingDir: "/home/alice",
		StartTime:  start,
		EndTime:    end,
		StatusCode: status,
	}
	require.NoError(t, metadata.Write(context.Background(), path, md))
	return path
}

func newFixtureEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	utc := func(d, h int) time.Time { return time.Date(2023, 6, d, h, 0, 0, 0, time.UTC) }

	writeSession(t, root, "make", "2023w23c_230000_aa", utc(7, 23), utc(8, 1), 0)
	writeSession(t, root, "ls", "2023w23c_100000_bb", utc(7, 10), utc(7, 10), 0)
	writeSession(t, root, "ls", "2023w23d_120000_cc", utc(8, 12), utc(8, 12), 2)
	require.NoError(t, os.WriteFile(filepath.Join(root, "ls", "broken.json"), []byte("{"), 0o644))

	output := mapOutput{
		"2023w23c_230000_aa": "compiling...\nerror: disk full\n",
		"2023w23c_100000_bb": "README.md\nmain.go\n",
	}
	return NewEngine(root, output, nil), root
}

func ids(result Result) []string {
	out := make([]string, 0, len(result.Commands))
	for _, c := range result.Commands {
		out = append(out, filepath.Base(c.Base()))
	}
	return out
}

func TestEngine_SearchDays(t *testing.T) {
	e, _ := newFixtureEngine(t)

	day7, err := ParseDay("2023-06-07")
	require.NoError(t, err)
	day8, err := ParseDay("2023-06-08")
	require.NoError(t, err)

	res, err := e.Search(context.Background(), Query{Days: Only(day7)})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023w23c_100000_bb", "2023w23c_230000_aa"}, ids(res))
	assert.Len(t, res.Warnings, 1)

	res, err = e.Search(context.Background(), Query{Days: Only(day8)})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023w23c_230000_aa", "2023w23d_120000_cc"}, ids(res))

	res, err = e.Search(context.Background(), Query{Days: Exclude(day8)})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023w23c_100000_bb"}, ids(res))
}

func TestEngine_ConflictingStatusFilters(t *testing.T) {
	e, _ := newFixtureEngine(t)

	q := Query{StatusCodes: Dimension[int]{Only: []int{0}, Exclude: []int{2}, OnlySet: true, ExcludeSet: true}}
	res, err := e.Search(context.Background(), q)
	require.Error(t, err)
	assert.True(t, sclerrors.IsUsageError(err))
	assert.Empty(t, res.Commands)
}

func TestEngine_SortedByStartTime(t *testing.T) {
	e, _ := newFixtureEngine(t)

	res, err := e.Search(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023w23c_100000_bb", "2023w23c_230000_aa", "2023w23d_120000_cc"}, ids(res))
}

func TestEngine_MissingRoot(t *testing.T) {
	e := NewEngine(filepath.Join(t.TempDir(), "nothing"), nil, nil)
	res, err := e.Search(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, res.Commands)
}

func TestEngine_ContentSearch(t *testing.T) {
	if _, err := exec.LookPath("grep"); err != nil {
		t.Skip("grep not installed")
	}
	e, _ := newFixtureEngine(t)

	tests := []struct {
		pattern string
		want    []string
	}{
		{`"disk full"`, []string{"2023w23c_230000_aa"}},
		{`-i readme`, []string{"2023w23c_100000_bb"}},
		{`-e nothing-here`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			m, err := NewContentMatcher(tt.pattern)
			require.NoError(t, err)
			res, err := e.Search(context.Background(), Query{Content: m})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res))
		})
	}
}

func TestContentMatcher_TimeoutIsNoMatch(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not installed")
	}
	m := &ContentMatcher{Command: "sleep", Args: []string{"5"}, Timeout: 100 * time.Millisecond}

	start := time.Now()
	assert.False(t, m.Match(context.Background(), nil))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestNewContentMatcher(t *testing.T) {
	m, err := NewContentMatcher(`-i "two words"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-i", "two words"}, m.Args)
	assert.Equal(t, "grep", m.Command)

	_, err = NewContentMatcher("   ")
	assert.True(t, sclerrors.IsUsageError(err))

	_, err = NewContentMatcher(`"unterminated`)
	assert.True(t, sclerrors.IsUsageError(err))
}

func TestFormatTimeline(t *testing.T) {
	e, _ := newFixtureEngine(t)
	res, err := e.Search(context.Background(), Query{})
	require.NoError(t, err)

	output := FormatTimeline(res.Commands, "ls and make")

	assert.Contains(t, output, "## Command Timeline - ls and make")
	assert.Contains(t, output, "### 2023-06-07")
	assert.Contains(t, output, "### 2023-06-08")
	assert.Contains(t, output, "- **Total Commands:** 3")
	assert.Contains(t, output, "[Exit: 2]")
	assert.Contains(t, output, "(120m0s)")
	assert.Contains(t, output, "`/usr/bin/make arg`")
	assert.Less(t, strings.Index(output, "### 2023-06-07"), strings.Index(output, "### 2023-06-08"))
}
