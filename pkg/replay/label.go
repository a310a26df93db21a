package replay

import (
	"strconv"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"

	"thoreinstein.com/scl/pkg/metadata"
)

// DefaultLabelFormat is the default template for session labels.
const DefaultLabelFormat = "[ {start_time} | {success} ] {command}"

// labelTimeLayout separates date and time with a space for readability.
const labelTimeLayout = time.DateTime

// FormatLabel renders template for md. Supported placeholders are
// {command}, {start_time}, {end_time}, {hostname}, {username},
// {status_code} and {success}. Unknown placeholders are left as they are.
func FormatLabel(template string, md metadata.Metadata) string {
	success := "error"
	if md.Success() {
		success = "success"
	}

	r := strings.NewReplacer(
		"{command}", shellescape.QuoteCommand(md.Command),
		"{start_time}", md.StartTime.UTC().Format(labelTimeLayout),
		"{end_time}", md.EndTime.UTC().Format(labelTimeLayout),
		"{hostname}", md.Hostname,
		"{username}", md.User,
		"{status_code}", strconv.Itoa(md.StatusCode),
		"{success}", success,
	)
	// Selectors work on lines.
	return strings.ReplaceAll(r.Replace(template), "\n", " ")
}
