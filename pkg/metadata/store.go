package metadata

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// Result is the outcome of loading one metadata file. Exactly one of
// Metadata and Err is meaningful.
type Result struct {
	Path     string
	Metadata Metadata
	Err      error
}

// Write persists md at path. The file appears atomically: readers either see
// no file or the complete document.
func Write(ctx context.Context, path string, md Metadata) error {
	payload, err := json.Marshal(md.toDocument())
	if err != nil {
		return sclerrors.Wrap(err, "failed to marshal metadata")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmpFile, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return sclerrors.NewStorageError("create", path, "failed to create temp file", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		_ = tmpFile.Close()
		return sclerrors.NewStorageError("write", tmpPath, "failed to write temp file", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return sclerrors.NewStorageError("sync", tmpPath, "failed to sync temp file", err)
	}
	if err := tmpFile.Close(); err != nil {
		return sclerrors.NewStorageError("close", tmpPath, "failed to close temp file", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return sclerrors.NewStorageError("chmod", tmpPath, "failed to set permissions", err)
	}

	// Renames can fail transiently on some platforms when a reader holds the
	// destination open.
	return sclerrors.RetryFileOp(ctx, sclerrors.DefaultFileRetry, func() error {
		if err := os.Rename(tmpPath, path); err != nil {
			return &sclerrors.StorageError{
				Operation: "rename",
				Path:      path,
				Message:   "failed to move metadata into place",
				Retryable: true,
				Cause:     err,
			}
		}
		return nil
	})
}

// LoadAll parses every metadata file below root. A file that fails to parse
// produces a Result with Err set; it never aborts the batch. A missing root
// yields no results.
func LoadAll(root string) ([]Result, error) {
	var results []Result

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			results = append(results, Result{Path: path, Err: sclerrors.Wrapf(err, "failed to read %s", path)})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsMetadataFile(path) {
			return nil
		}

		md, parseErr := ParseFile(path)
		results = append(results, Result{Path: path, Metadata: md, Err: parseErr})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sclerrors.Wrapf(err, "failed to scan %s", root)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// IsMetadataFile reports whether path names a session metadata file.
func IsMetadataFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, Extension) && !strings.HasPrefix(base, ".")
}
