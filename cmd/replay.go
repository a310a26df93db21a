package cmd

import (
	"github.com/spf13/cobra"

	"thoreinstein.com/scl/pkg/config"
	"thoreinstein.com/scl/pkg/replay"
	"thoreinstein.com/scl/pkg/search"
	"thoreinstein.com/scl/pkg/ui"
)

// replayCmd replays a recorded command
var replayCmd = &cobra.Command{
	Use:     "replay",
	Aliases: []string{"r"},
	Short:   "Replay a recorded command",
	Long: `Replay the output of a command recorded with scl.

Without flags, the recorded commands are listed with the configured
selector (fzf by default) and the chosen one is replayed.

Examples:
  scl replay                              # Pick a command interactively
  scl replay --select-file                # Pick a capture file interactively
  scl replay -i ~/.shell-command-logs/ls/2024w18c_100000_ab12.json
  scl replay --speed 4                    # Four times faster
  scl replay --instant --no-metadata`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplayCommand(cmd)
	},
}

var (
	replayInput      string
	replaySelectFile bool
	replaySpeed      float64
	replayInstant    bool
	replayNoMetadata bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayInput, "input", "i", "", "the session to replay (any of its files or the path without extension)")
	replayCmd.Flags().BoolVarP(&replaySelectFile, "select-file", "f", false, "interactively search the file names")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "replay speed multiplier (default from replay-speed)")
	replayCmd.Flags().BoolVar(&replayInstant, "instant", false, "print the output without delays")
	replayCmd.Flags().BoolVar(&replayNoMetadata, "no-metadata", false, "do not print the header and footer")
	replayCmd.MarkFlagsMutuallyExclusive("input", "select-file")
	replayCmd.MarkFlagsMutuallyExclusive("speed", "instant")
}

func runReplayCommand(cmd *cobra.Command) error {
	s, err := sanitizedConfig()
	if err != nil {
		return err
	}

	opts := replay.Options{Speed: s.ReplaySpeed, SkipMetadata: replayNoMetadata}
	if cmd.Flags().Changed("speed") {
		opts.Speed = replaySpeed
	}
	if replayInstant {
		opts.Speed = 0
	}

	path, err := replayTarget(cmd, s)
	if err != nil {
		return err
	}
	return replaySession(cmd.Context(), s, path, opts)
}

// replayTarget returns the session chosen by the flags or by the user.
func replayTarget(cmd *cobra.Command, s *config.Sanitized) (string, error) {
	ctx := cmd.Context()

	switch {
	case replayInput != "":
		return replayInput, nil
	case replaySelectFile:
		output, _ := s.Backend.Extensions()
		return ui.NewSelector(s.SelectorCommand).SelectFile(ctx, s.OutputDir, output)
	}

	commands, _, err := search.NewEngine(s.OutputDir, s.Backend, logger).Load()
	if err != nil {
		return "", err
	}
	search.SortByStartTime(commands)
	return selectCommand(ctx, s, commands)
}
