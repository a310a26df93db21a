package search

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
)

// FormatTimeline generates a markdown timeline of commands grouped by UTC day.
func FormatTimeline(commands []SearchableCommand, title string) string {
	var timeline strings.Builder

	// Calculate summary stats
	totalCommands := len(commands)
	var successCount int
	var totalDuration time.Duration

	dayGroups := make(map[string][]SearchableCommand)
	for _, cmd := range commands {
		md := cmd.Metadata
		if md.Success() {
			successCount++
		}
		totalDuration += md.Duration()

		day := md.StartTime.UTC().Format(time.DateOnly)
		dayGroups[day] = append(dayGroups[day], cmd)
	}

	successRate := 0.0
	if totalCommands > 0 {
		successRate = float64(successCount) / float64(totalCommands) * 100.0
	}

	// Header and Summary
	fmt.Fprintf(&timeline, "## Command Timeline - %s\n\n", title)
	fmt.Fprintf(&timeline, "Generated: %s\n\n", time.Now().UTC().Format(time.DateTime))

	timeline.WriteString("### Summary\n")
	fmt.Fprintf(&timeline, "- **Total Commands:** %d\n", totalCommands)
	fmt.Fprintf(&timeline, "- **Success Rate:** %.1f%%\n", successRate)
	fmt.Fprintf(&timeline, "- **Total Duration:** %s\n\n", formatDuration(totalDuration))

	days := make([]string, 0, len(dayGroups))
	for day := range dayGroups {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		dayCommands := dayGroups[day]
		SortByStartTime(dayCommands)
		fmt.Fprintf(&timeline, "### %s\n\n", day)

		for _, cmd := range dayCommands {
			md := cmd.Metadata
			timeStr := md.StartTime.UTC().Format(time.TimeOnly)

			statusIcon := "✅"
			if !md.Success() {
				statusIcon = "❌"
			}

			var durationStr string
			if d := md.Duration(); d > 0 {
				durationStr = fmt.Sprintf(" (%s)", formatDuration(d))
			}

			var exitStr string
			switch {
			case md.Failed():
				exitStr = fmt.Sprintf(" [Error: %s]", md.Error())
			case !md.Success():
				exitStr = fmt.Sprintf(" [Exit: %d]", md.StatusCode)
			}

			var dirStr string
			if dir := md.WorkingDir; dir != "" {
				if len(dir) > 50 {
					dirStr = fmt.Sprintf(" `.../%s`", dir[len(dir)-30:])
				} else {
					dirStr = fmt.Sprintf(" `%s`", dir)
				}
			}

			fmt.Fprintf(&timeline, "- %s **%s**%s%s%s: `%s`\n",
				statusIcon, timeStr, durationStr, exitStr, dirStr, shellescape.QuoteCommand(md.Command))
		}

		timeline.WriteString("\n")
	}

	return timeline.String()
}

func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	minutes := int(seconds / 60)
	remSeconds := int(seconds) % 60
	return fmt.Sprintf("%dm%ds", minutes, remSeconds)
}
