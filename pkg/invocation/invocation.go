// Package invocation describes how the running scl binary was started.
//
// The recorder needs the path of its own executable to avoid resolving a
// wrapped program back to itself, and the name it was called as to detect
// symlink dispatch. Both travel as a value instead of a process global.
package invocation

import (
	"context"
	"os"
	"path/filepath"

	sclerrors "thoreinstein.com/scl/pkg/errors"
)

// Invocation identifies the running executable.
type Invocation struct {
	// MainExecutable is the resolved path of the running binary.
	MainExecutable string
	// CalledAs is argv[0] as given by the caller, possibly a symlink.
	CalledAs string
}

// Current returns the invocation of this process.
func Current() (Invocation, error) {
	exe, err := os.Executable()
	if err != nil {
		return Invocation{}, sclerrors.Wrap(err, "failed to locate the scl executable")
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	calledAs := exe
	if len(os.Args) > 0 {
		calledAs = os.Args[0]
	}
	return Invocation{MainExecutable: exe, CalledAs: calledAs}, nil
}

// CalledName returns the base name the binary was invoked as.
func (i Invocation) CalledName() string {
	return filepath.Base(i.CalledAs)
}

// RealName returns the base name of the real binary.
func (i Invocation) RealName() string {
	return filepath.Base(i.MainExecutable)
}

// CalledViaSymlink reports whether the binary was started through a link
// with a different name, e.g. ~/bin/ls pointing at scl. The link name is
// then the program to record.
func (i Invocation) CalledViaSymlink() bool {
	if i.CalledAs == "" || i.MainExecutable == "" {
		return false
	}
	return i.CalledName() != i.RealName()
}

type contextKey struct{}

// WithContext stores inv in ctx.
func WithContext(ctx context.Context, inv Invocation) context.Context {
	return context.WithValue(ctx, contextKey{}, inv)
}

// FromContext returns the invocation stored in ctx, if any.
func FromContext(ctx context.Context) (Invocation, bool) {
	inv, ok := ctx.Value(contextKey{}).(Invocation)
	return inv, ok
}
