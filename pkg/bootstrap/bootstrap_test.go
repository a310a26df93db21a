package bootstrap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

func TestPreParseGlobalFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantCfg     string
		wantVerbose bool
	}{
		{"none", []string{"scl", "log", "ls"}, "", false},
		{"config", []string{"scl", "--config", "/tmp/c.toml", "log"}, "/tmp/c.toml", false},
		{"config equals", []string{"scl", "--config=/tmp/c.toml", "-v", "search"}, "/tmp/c.toml", true},
		{"stops at subcommand", []string{"scl", "log", "grep", "-v", "x"}, "", false},
		{"stops at marker", []string{"scl", "--", "-v"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, verbose := PreParseGlobalFlags(tt.args)
			assert.Equal(t, tt.wantCfg, cfg)
			assert.Equal(t, tt.wantVerbose, verbose)
		})
	}
}

func TestInitConfig(t *testing.T) {
	t.Setenv("GO_TEST", "true")
	t.Cleanup(func() {
		Reset()
		viper.Reset()
	})

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "data-directory = \"/srv/logs\"\nreplay-speed = 2.5\nfile-name-random-bytes = 4\nbackend = \"script_linux\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, _, err := InitConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, "/srv/logs", cfg.OutputDir)
	assert.InDelta(t, 2.5, cfg.ReplaySpeed, 0)
	assert.Equal(t, 4, cfg.FileNameRandomBytes)
	assert.Equal(t, "fzf", cfg.SelectorCommand)

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("SCL_FILE_NAME_RANDOM_BYTES", "8")
		cfg, _, err := InitConfig(path, false)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.FileNameRandomBytes)
	})

	t.Run("invalid value", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(bad, []byte("replay-speed = 0\nbackend = \"script_linux\"\n"), 0o644))
		_, _, err := InitConfig(bad, false)
		require.Error(t, err)
		assert.True(t, sclerrors.IsConfigError(err))
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, _, err := InitConfig(filepath.Join(dir, "missing.toml"), false)
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
