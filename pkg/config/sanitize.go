package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"thoreinstein.com/scl/pkg/backend"
	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// ReadmeName is the file written into the output directory.
const ReadmeName = "README.md"

//go:embed readme_template.md
var readmeTemplate string

// Sanitized is a configuration whose directories exist and whose backend
// works on this system.
type Sanitized struct {
	*Config
	Backend backend.Backend
	// ReadmeCreated is set when this call wrote the README.
	ReadmeCreated bool
}

// RecordingOptions returns the backend options derived from the settings.
func (s *Sanitized) RecordingOptions() backend.RecordingOptions {
	return backend.RecordingOptions{
		AllowStdinCapture: s.AllowStdinCapture,
		OutputLimit:       s.OutputLimit,
	}
}

// Sanitize prepares cfg for use on goos: it creates the output directory,
// writes the README when enabled and selects the backend.
// The backend is checked before anything is written.
func Sanitize(cfg *Config, goos string, opts ...backend.Option) (*Sanitized, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kind, err := backend.ParseKind(cfg.Backend)
	if err != nil {
		return nil, sclerrors.NewConfigErrorWithCause(KeyBackend, fmt.Sprintf("failed to load backend '%s'", cfg.Backend), err)
	}
	b, err := backend.Select(kind, goos, opts...)
	if err != nil {
		return nil, err
	}

	if err := ensureDirectory(KeyDataDirectory, cfg.OutputDir); err != nil {
		return nil, err
	}

	s := &Sanitized{Config: cfg, Backend: b}
	if cfg.AddReadme {
		created, err := writeReadme(cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		s.ReadmeCreated = created
	}
	return s, nil
}

// ensureDirectory creates path and checks that it can be listed and written.
func ensureDirectory(key, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return sclerrors.NewConfigErrorWithCause(key, fmt.Sprintf("could not create directory: '%s'", path), err)
	}
	if _, err := os.ReadDir(path); err != nil {
		return sclerrors.NewConfigErrorWithCause(key, fmt.Sprintf("missing read permission for directory: '%s'", path), err)
	}
	tmp, err := os.CreateTemp(path, ".scl-write-check-*")
	if err != nil {
		return sclerrors.NewConfigErrorWithCause(key, fmt.Sprintf("missing write permission for directory: '%s'", path), err)
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())
	return nil
}

// writeReadme creates the README unless it already exists.
func writeReadme(dir string) (bool, error) {
	path := filepath.Join(dir, ReadmeName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, sclerrors.NewConfigErrorWithCause(KeyCreateReadme, "failed to create the README file", err)
	}
	defer f.Close()

	if _, err := f.WriteString(readmeTemplate); err != nil {
		return false, sclerrors.NewConfigErrorWithCause(KeyCreateReadme, "failed to write the README file", err)
	}
	return true, nil
}
