package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"thoreinstein.com/scl/pkg/bootstrap"
	"thoreinstein.com/scl/pkg/config"
	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// configCmd shows and edits the configuration
var configCmd = &cobra.Command{
	Use:     "config [VALUE]",
	Aliases: []string{"c"},
	Short:   "View and modify the configuration",
	Long: `View or modify the configuration of scl.

Without flags the current configuration is printed in config file format.

Examples:
  scl config                                 # Print the configuration
  scl config --get replay-speed
  scl config --set fzf-command 'dmenu -l 20'
  scl config --defaults                      # Reset every setting`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigCommand(args)
	},
}

var (
	configDefaults bool
	configGet      string
	configSet      string
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().BoolVarP(&configDefaults, "defaults", "d", false, "reset all settings back to the defaults")
	configCmd.Flags().StringVarP(&configGet, "get", "g", "", "print the value of a setting")
	configCmd.Flags().StringVarP(&configSet, "set", "s", "", "set a setting to VALUE")
	configCmd.MarkFlagsMutuallyExclusive("defaults", "get", "set")
}

func runConfigCommand(args []string) error {
	if configSet == "" && len(args) > 0 {
		return sclerrors.NewUsageError("a value can only be given together with --set")
	}

	if configDefaults {
		return saveConfig(config.Defaults())
	}

	// The file may hold invalid values; they are shown and fixed here.
	cfg, err := config.Read()
	if err != nil {
		return err
	}

	switch {
	case configGet != "":
		value, err := cfg.Get(configGet)
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	case configSet != "":
		if len(args) != 1 {
			return sclerrors.NewUsageError("--set needs a value, e.g. scl config --set replay-speed 2")
		}
		if err := cfg.Set(configSet, args[0]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return saveConfig(cfg)
	}

	data, err := config.Render(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return errors.Wrap(err, "failed to print configuration")
}

// saveConfig writes cfg to the file given with --config or the user config file.
func saveConfig(cfg *config.Config) error {
	path := cfgFile
	if path == "" {
		var err error
		path, err = bootstrap.UserConfigFile()
		if err != nil {
			return err
		}
	}

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	logger.Debug("configuration saved", "path", path)

	// Later commands in this process must see the new file.
	bootstrap.Reset()
	appConfig = nil
	configErr = nil
	return nil
}
