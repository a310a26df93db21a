//go:build windows

package recorder

import (
	"os"
	"path/filepath"
	"strings"
)

func isExecutable(path string, _ os.FileInfo) bool {
	pathext := os.Getenv("PATHEXT")
	if pathext == "" {
		pathext = ".com;.exe;.bat;.cmd"
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range strings.Split(strings.ToLower(pathext), ";") {
		if e != "" && e == ext {
			return true
		}
	}
	return false
}
