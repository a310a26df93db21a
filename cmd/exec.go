package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"thoreinstein.com/scl/pkg/argv"
	"thoreinstein.com/scl/pkg/recorder"
	"thoreinstein.com/scl/pkg/supervisor"
)

// execCmd runs inside the recording backend. It executes the encoded
// command and writes the session metadata.
var execCmd = &cobra.Command{
	Use:    recorder.ExecCommand + " ENCODED_COMMAND METADATA_FILE",
	Short:  "Execute an encoded command and record its metadata",
	Hidden: true,
	Args:   cobra.ExactArgs(2),
	// The encoded command is opaque and must never be read as flags.
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExecCommand(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runExecCommand(cmd *cobra.Command, encoded, metadataPath string) error {
	command, err := argv.Decode(encoded)
	if err != nil {
		return err
	}

	// The supervisor forwards signals itself; the root context must not
	// interrupt the child a second time.
	ctx := context.WithoutCancel(cmd.Context())

	sup := supervisor.New(supervisor.WithLogger(logger))
	return withExitCode(sup.Run(ctx, command, metadataPath), nil)
}
