package cmd

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"thoreinstein.com/scl/pkg/check"
	"thoreinstein.com/scl/pkg/config"
	"thoreinstein.com/scl/pkg/replay"
)

// checkCmd verifies the installation
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check if dependencies are satisfied",
	Long: `Check if scl is properly installed and if all dependencies are available.

If a required dependency is missing, the command fails with exit code 1.
Missing optional dependencies are reported but do not fail the check.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheckCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheckCommand(cmd *cobra.Command) error {
	selector := config.DefaultSelector
	if cfg, err := config.Read(); err == nil {
		selector = cfg.SelectorCommand
	}

	report := check.New().Run(cmd.Context(), runtime.GOOS, selector)
	report.Print(os.Stdout, replay.IsTerminal(os.Stdout))

	// The configuration is checked last so a broken config file does not
	// hide missing tools.
	if _, err := sanitizedConfig(); err != nil {
		return err
	}
	return withExitCode(report.ExitCode(), nil)
}
