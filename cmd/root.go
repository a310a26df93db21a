package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"thoreinstein.com/scl/pkg/bootstrap"
	"thoreinstein.com/scl/pkg/config"
	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/invocation"
)

var cfgFile string
var verbose bool
var appConfig *config.Config

// configErr is kept until a command needs the configuration, so that
// 'scl config --defaults' still works with a broken config file.
var configErr error

var logger = slog.Default()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scl",
	Short: "scl - shell command logger",
	Long: `The shell-command-logger (scl) records commands together with their output,
timing and outcome. Afterwards the recorded commands can be replayed and searched.

When scl is called through a symlink (for example ~/bin/ls pointing at scl),
it records the program the link is named after.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	inv, err := invocation.Current()
	if err != nil {
		fmt.Fprintln(os.Stderr, sclerrors.FormatUserError(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx = invocation.WithContext(ctx, inv)

	var code int
	if inv.CalledViaSymlink() {
		// Every argument belongs to the wrapped program.
		code = exitCode(recordAsSymlink(ctx, inv, os.Args[1:]))
	} else {
		// 1. Pre-parse global flags to initialize config and logging early.
		cfgFile, verbose = bootstrap.PreParseGlobalFlags(os.Args)
		setupLogging()

		// 2. Initialize configuration (bootstrap)
		configErr = initConfig()

		code = exitCode(rootCmd.ExecuteContext(ctx))
	}

	stop()
	os.Exit(code)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "C", "", "config file (default is $HOME/.config/scl/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func setupLogging() {
	logger = bootstrap.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error
	appConfig, verbose, err = bootstrap.InitConfig(cfgFile, verbose)
	return err
}

// loadConfig returns the configuration loaded at startup, or the error that
// prevented loading it.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	if appConfig == nil {
		if err := initConfig(); err != nil {
			return nil, err
		}
	}
	return appConfig, nil
}

// resetConfig clears the cached configuration.
// This is primarily used in tests to ensure each test starts with a fresh config.
func resetConfig() {
	appConfig = nil
	configErr = nil
	cfgFile = ""
	bootstrap.Reset()
	viper.Reset()
}
