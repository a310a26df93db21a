//go:build !windows

package recorder

import (
	"os"

	"golang.org/x/sys/unix"
)

// isExecutable asks the kernel, so ACLs and the effective user are honored.
func isExecutable(path string, _ os.FileInfo) bool {
	return unix.Access(path, unix.X_OK) == nil
}
