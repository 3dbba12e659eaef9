package infra

import (
	"errors"
	"io/fs"
	"os"
)

// OSFileChecker answers FileChecker from the local filesystem.
type OSFileChecker struct{}

// Exists reports false only when path is known to be gone. Stat failures such
// as permission errors count as present so they never read as an uninstall.
func (OSFileChecker) Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

var _ FileChecker = OSFileChecker{}
