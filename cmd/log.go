package cmd

import (
	"github.com/spf13/cobra"
)

// logCmd records a command
var logCmd = &cobra.Command{
	Use:     "log COMMAND [ARGS...]",
	Aliases: []string{"l"},
	Short:   "Record a command",
	Long: `Run the given command and record its output, timing and outcome.

Everything after the first argument is passed to the command unchanged.
The exit code of scl is the exit code of the recorded command.

Examples:
  scl log ls -la
  scl log -- make test
  scl log ssh example.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogCommand(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(logCmd)

	// Flags after the command belong to the command.
	logCmd.Flags().SetInterspersed(false)
}

func runLogCommand(cmd *cobra.Command, command []string) error {
	s, err := sanitizedConfig()
	if err != nil {
		return err
	}

	inv, err := currentInvocation(cmd.Context())
	if err != nil {
		return err
	}

	return withExitCode(newRecorder(s, inv).Record(cmd.Context(), command))
}
