package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// Render serializes cfg in config file format.
func Render(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, sclerrors.Wrap(err, "failed to render configuration")
	}
	return data, nil
}

// Save writes cfg to path, creating the parent directory.
func Save(cfg *Config, path string) error {
	data, err := Render(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sclerrors.NewConfigErrorWithCause("", "failed to create the config directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return sclerrors.NewConfigErrorWithCause("", "failed to write "+path, err)
	}
	return nil
}
