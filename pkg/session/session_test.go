package session

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

func TestTimePrefix(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
		want string
	}{
		{"saturday", time.Date(2022, 3, 19, 13, 36, 50, 0, time.UTC), "2022w11f_133650"},
		{"monday", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024w01a_000000"},
		{"sunday", time.Date(2023, 6, 11, 23, 59, 59, 0, time.UTC), "2023w23g_235959"},
		// 2021-01-03 belongs to ISO week 53 of 2020.
		{"iso week year differs", time.Date(2021, 1, 3, 12, 0, 0, 0, time.UTC), "2020w53g_120000"},
		// 2024-12-30 belongs to ISO week 1 of 2025.
		{"iso week year ahead", time.Date(2024, 12, 30, 8, 5, 1, 0, time.UTC), "2025w01a_080501"},
		{"converted to utc", time.Date(2022, 3, 19, 15, 36, 50, 0, time.FixedZone("CEST", 2*3600)), "2022w11f_133650"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimePrefix(tt.time))
		})
	}
}

func TestNewBaseID(t *testing.T) {
	now := time.Date(2022, 3, 19, 13, 36, 50, 0, time.UTC)

	id, err := newBaseID(now, 2, bytes.NewReader([]byte{0x63, 0xff}))
	require.NoError(t, err)
	assert.Equal(t, "2022w11f_133650_63ff", id)
	assert.True(t, IsBaseID(id))

	id, err = NewBaseID(now, 16)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "2022w11f_133650_"))
	assert.Len(t, strings.TrimPrefix(id, "2022w11f_133650_"), 32)
}

func TestNewBaseID_RandomBytesRange(t *testing.T) {
	now := time.Now()
	for _, n := range []int{0, -1, 101} {
		_, err := NewBaseID(now, n)
		assert.True(t, sclerrors.IsConfigError(err), "n=%d: %v", n, err)
	}
	for _, n := range []int{1, 100} {
		_, err := NewBaseID(now, n)
		assert.NoError(t, err, "n=%d", n)
	}
}

// With one random byte there are only 256 suffixes, so 300 ids generated in
// the same second must collide. Collisions are expected, not prevented.
func TestNewBaseID_CollisionsAreObservable(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	duplicates := 0
	for i := 0; i < 300; i++ {
		id, err := NewBaseID(now, 1)
		require.NoError(t, err)
		if seen[id] {
			duplicates++
		}
		seen[id] = true
	}
	assert.Positive(t, duplicates)
	assert.LessOrEqual(t, len(seen), 256)
}

func TestBaseIDsSortByTime(t *testing.T) {
	start := time.Date(2023, 12, 31, 23, 59, 58, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		id, err := NewBaseID(start.Add(time.Duration(i)*time.Second), 2)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, ids, sorted)
}

func TestPaths(t *testing.T) {
	p := NewPaths("/logs", "/usr/bin/ls", "2024w18c_100000_abcd")

	assert.Equal(t, filepath.Join("/logs", "ls", "2024w18c_100000_abcd"), p.Base)
	assert.Equal(t, p.Base+".json", p.Metadata())
	assert.Equal(t, p.Base+".log", p.With(".log"))
	assert.Equal(t, "2024w18c_100000_abcd", p.ID())
	assert.Equal(t, filepath.Join("/logs", "ls"), Dir("/logs", "/usr/bin/ls"))
}

func TestStripExtension(t *testing.T) {
	exts := []string{".json", ".log", ".time"}

	tests := []struct {
		in   string
		want string
	}{
		{"/l/echo/2022w11g_133650_63ff.json", "/l/echo/2022w11g_133650_63ff"},
		{"/l/echo/2022w11g_133650_63ff.log", "/l/echo/2022w11g_133650_63ff"},
		{"/l/echo/2022w11g_133650_63ff.time", "/l/echo/2022w11g_133650_63ff"},
		{"/l/echo/2022w11g_133650_63ff", "/l/echo/2022w11g_133650_63ff"},
		{"/l/echo/2022w11g_133650_63ff.txt", "/l/echo/2022w11g_133650_63ff.txt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripExtension(tt.in, exts...), tt.in)
	}

	assert.Equal(t, "/l/x", StripExtension("/l/x.script_macos", ".json", ".script_macos"))
	assert.Equal(t, "/l/x.log", StripExtension("/l/x.log", "", ".json"))
}
