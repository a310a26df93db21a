// Package config holds the settings of scl and turns them into ready to use
// values: expanded paths, existing directories and a selected backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"thoreinstein.com/scl/pkg/backend"
	sclerrors "thoreinstein.com/scl/pkg/errors"
	"thoreinstein.com/scl/pkg/session"
)

// Configuration keys as they appear in the config file.
const (
	KeyDataDirectory       = "data-directory"
	KeyCreateReadme        = "create-readme"
	KeyCommandFormat       = "command-format"
	KeyReplaySpeed         = "replay-speed"
	KeyOutputLimit         = "script-output-limit"
	KeyFileNameRandomBytes = "file-name-random-bytes"
	KeySelectorCommand     = "fzf-command"
	KeySymlinkDirectory    = "symlink-directory"
	KeyRecordStdin         = "record-stdin"
	KeyBackend             = "backend"
)

// Keys lists every configuration key in file order.
var Keys = []string{
	KeyDataDirectory,
	KeyCreateReadme,
	KeyCommandFormat,
	KeyReplaySpeed,
	KeyOutputLimit,
	KeyFileNameRandomBytes,
	KeySelectorCommand,
	KeySymlinkDirectory,
	KeyRecordStdin,
	KeyBackend,
}

// Config represents the application configuration
type Config struct {
	OutputDir string `mapstructure:"data-directory" toml:"data-directory"`
	AddReadme bool   `mapstructure:"create-readme" toml:"create-readme"`

	// CommandFormat is the label template used for interactive selection.
	CommandFormat string `mapstructure:"command-format" toml:"command-format"`
	// ReplaySpeed divides the recorded delays.
	ReplaySpeed float64 `mapstructure:"replay-speed" toml:"replay-speed"`
	// OutputLimit caps the capture size in bytes.
	OutputLimit         int64 `mapstructure:"script-output-limit" toml:"script-output-limit"`
	FileNameRandomBytes int   `mapstructure:"file-name-random-bytes" toml:"file-name-random-bytes"`

	// SelectorCommand reads choices on stdin and prints the selection,
	// e.g. "fzf" or "dmenu -l 10".
	SelectorCommand   string `mapstructure:"fzf-command" toml:"fzf-command"`
	// SymlinkDir is reserved for the links of managed symlink lists. It is
	// kept in the file but scl does not create or read it.
	SymlinkDir        string `mapstructure:"symlink-directory" toml:"symlink-directory"`
	AllowStdinCapture bool   `mapstructure:"record-stdin" toml:"record-stdin"`
	Backend           string `mapstructure:"backend" toml:"backend"`
}

// Default values.
const (
	DefaultOutputDir     = "~/.shell-command-logs"
	DefaultCommandFormat = "[ {start_time} | {success} ] {command}"
	DefaultSymlinkDir    = "~/.local/share/shell-command-logger/bin"
	DefaultSelector      = "fzf"
)

// Defaults returns the default configuration for the running system.
func Defaults() *Config {
	return &Config{
		OutputDir:           DefaultOutputDir,
		AddReadme:           true,
		CommandFormat:       DefaultCommandFormat,
		ReplaySpeed:         1.0,
		OutputLimit:         backend.DefaultOutputLimit,
		FileNameRandomBytes: 2,
		SelectorCommand:     DefaultSelector,
		SymlinkDir:          DefaultSymlinkDir,
		AllowStdinCapture:   true,
		Backend:             defaultBackend(runtime.GOOS),
	}
}

func defaultBackend(goos string) string {
	kind, err := backend.BestKind(goos)
	if err != nil {
		return ""
	}
	return string(kind)
}

// Read returns the configuration as written, without expanding paths or
// validating it. It is used to show and edit the config file.
func Read() (*Config, error) {
	config := &Config{}

	// Set defaults
	setDefaults()

	// Unmarshal the config
	if err := viper.Unmarshal(config); err != nil {
		return nil, sclerrors.NewConfigErrorWithCause("", "failed to read the configuration", err)
	}

	return config, nil
}

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	config, err := Read()
	if err != nil {
		return nil, err
	}

	// Expand paths
	if err := expandPaths(config); err != nil {
		return nil, sclerrors.NewConfigErrorWithCause("", "failed to expand paths", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	d := Defaults()
	viper.SetDefault(KeyDataDirectory, d.OutputDir)
	viper.SetDefault(KeyCreateReadme, d.AddReadme)
	viper.SetDefault(KeyCommandFormat, d.CommandFormat)
	viper.SetDefault(KeyReplaySpeed, d.ReplaySpeed)
	viper.SetDefault(KeyOutputLimit, d.OutputLimit)
	viper.SetDefault(KeyFileNameRandomBytes, d.FileNameRandomBytes)
	viper.SetDefault(KeySelectorCommand, d.SelectorCommand)
	viper.SetDefault(KeySymlinkDirectory, d.SymlinkDir)
	viper.SetDefault(KeyRecordStdin, d.AllowStdinCapture)
	viper.SetDefault(KeyBackend, d.Backend)
}

// Validate validates the configuration and returns any validation errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return sclerrors.NewConfigError(KeyDataDirectory, "can not be empty")
	}
	if strings.TrimSpace(c.CommandFormat) == "" {
		return sclerrors.NewConfigError(KeyCommandFormat, "can not be empty")
	}
	if c.ReplaySpeed <= 0 {
		return sclerrors.NewConfigError(KeyReplaySpeed, "needs to be larger than zero")
	}
	if c.OutputLimit <= 0 {
		return sclerrors.NewConfigError(KeyOutputLimit, "needs to be larger than zero")
	}
	if c.FileNameRandomBytes < session.MinRandomBytes || c.FileNameRandomBytes > session.MaxRandomBytes {
		return sclerrors.NewConfigError(KeyFileNameRandomBytes,
			fmt.Sprintf("needs to be between %d and %d", session.MinRandomBytes, session.MaxRandomBytes))
	}
	if strings.TrimSpace(c.SelectorCommand) == "" {
		return sclerrors.NewConfigError(KeySelectorCommand, "can not be empty")
	}
	if _, err := backend.ParseKind(c.Backend); err != nil {
		return sclerrors.NewConfigErrorWithCause(KeyBackend, fmt.Sprintf("failed to load backend '%s'", c.Backend), err)
	}
	return nil
}

// Get returns the value of key formatted as in the config file.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case KeyDataDirectory:
		return c.OutputDir, nil
	case KeyCreateReadme:
		return strconv.FormatBool(c.AddReadme), nil
	case KeyCommandFormat:
		return c.CommandFormat, nil
	case KeyReplaySpeed:
		return strconv.FormatFloat(c.ReplaySpeed, 'f', -1, 64), nil
	case KeyOutputLimit:
		return strconv.FormatInt(c.OutputLimit, 10), nil
	case KeyFileNameRandomBytes:
		return strconv.Itoa(c.FileNameRandomBytes), nil
	case KeySelectorCommand:
		return c.SelectorCommand, nil
	case KeySymlinkDirectory:
		return c.SymlinkDir, nil
	case KeyRecordStdin:
		return strconv.FormatBool(c.AllowStdinCapture), nil
	case KeyBackend:
		return c.Backend, nil
	default:
		return "", unknownKey(key)
	}
}

// Set parses value for key and stores it. The result is not validated.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case KeyDataDirectory:
		c.OutputDir = value
	case KeyCreateReadme:
		c.AddReadme, err = strconv.ParseBool(value)
	case KeyCommandFormat:
		c.CommandFormat = value
	case KeyReplaySpeed:
		c.ReplaySpeed, err = strconv.ParseFloat(value, 64)
	case KeyOutputLimit:
		c.OutputLimit, err = strconv.ParseInt(value, 10, 64)
	case KeyFileNameRandomBytes:
		c.FileNameRandomBytes, err = strconv.Atoi(value)
	case KeySelectorCommand:
		c.SelectorCommand = value
	case KeySymlinkDirectory:
		c.SymlinkDir = value
	case KeyRecordStdin:
		c.AllowStdinCapture, err = strconv.ParseBool(value)
	case KeyBackend:
		c.Backend = value
	default:
		return unknownKey(key)
	}
	if err != nil {
		return sclerrors.NewConfigErrorWithCause(key, fmt.Sprintf("invalid value %q", value), err)
	}
	return nil
}

func unknownKey(key string) error {
	return sclerrors.NewConfigError(key, "unknown setting, must be one of: "+strings.Join(Keys, ", "))
}

// expandPaths expands ~ in paths
func expandPaths(config *Config) error {
	var err error

	config.OutputDir, err = expandPath(config.OutputDir)
	if err != nil {
		return err
	}

	config.SymlinkDir, err = expandPath(config.SymlinkDir)
	if err != nil {
		return err
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, path[1:]), nil
}
