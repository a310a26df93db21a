// Package session names and locates the artifacts of a recorded session.
//
// A session is stored as up to three files that share one base name:
// the raw capture and timing data written by the recording backend, and the
// metadata document written by the supervisor. All three live in one
// directory per program:
//
//	<output_root>/<program_basename>/<base_id>.json|.log|.time
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/metadata"
)

// Limits for the number of random bytes in a base id.
const (
	MinRandomBytes = 1
	MaxRandomBytes = 100
)

// weekdayLetters maps Monday..Sunday to a..g.
const weekdayLetters = "abcdefg"

// baseIDPattern matches identifiers produced by NewBaseID.
var baseIDPattern = regexp.MustCompile(`^\d{4}w\d{2}[a-g]_\d{6}_[0-9a-f]+$`)

// NewBaseID returns an identifier of the form
// {ISOWeekYear}w{ISOWeek}{weekday}_{HHMMSS}_{hex} for the UTC time now.
// Identifiers sort by time within a program directory. The random suffix
// only makes same-second collisions unlikely; it does not rule them out.
func NewBaseID(now time.Time, randomBytes int) (string, error) {
	return newBaseID(now, randomBytes, rand.Reader)
}

func newBaseID(now time.Time, randomBytes int, entropy io.Reader) (string, error) {
	if randomBytes < MinRandomBytes || randomBytes > MaxRandomBytes {
		return "", sclerrors.NewConfigError("file-name-random-bytes",
			fmt.Sprintf("needs to be between %d and %d, but is %d", MinRandomBytes, MaxRandomBytes, randomBytes))
	}

	buf := make([]byte, randomBytes)
	if _, err := io.ReadFull(entropy, buf); err != nil {
		return "", sclerrors.Wrap(err, "failed to read random bytes")
	}

	return TimePrefix(now) + "_" + hex.EncodeToString(buf), nil
}

// TimePrefix returns the time-derived part of a base id.
func TimePrefix(now time.Time) string {
	now = now.UTC()
	year, week := now.ISOWeek()
	// time.Weekday starts at Sunday=0; shift so Monday=0.
	day := weekdayLetters[(int(now.Weekday())+6)%7]
	return fmt.Sprintf("%04dw%02d%c_%s", year, week, day, now.Format("150405"))
}

// IsBaseID reports whether s looks like an identifier produced by NewBaseID.
func IsBaseID(s string) bool {
	return baseIDPattern.MatchString(s)
}

// Dir returns the directory that holds the sessions of program.
func Dir(outputRoot, program string) string {
	return filepath.Join(outputRoot, filepath.Base(program))
}

// Paths locates the artifacts of one session.
type Paths struct {
	// Base is the full path without extension, e.g. /root/ls/2024w18c_100000_abcd
	Base string
}

// NewPaths returns the Paths for baseID in the directory of program.
func NewPaths(outputRoot, program, baseID string) Paths {
	return Paths{Base: filepath.Join(Dir(outputRoot, program), baseID)}
}

// Metadata returns the path of the metadata file.
func (p Paths) Metadata() string {
	return p.Base + metadata.Extension
}

// With returns the path of the artifact with the given extension.
func (p Paths) With(ext string) string {
	return p.Base + ext
}

// ID returns the base identifier.
func (p Paths) ID() string {
	return filepath.Base(p.Base)
}

// StripExtension removes the first matching known extension from path so any
// of a session's artifacts can be used to refer to the session. Paths without
// a known extension are returned unchanged.
func StripExtension(path string, extensions ...string) string {
	for _, ext := range extensions {
		if ext != "" && strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}
