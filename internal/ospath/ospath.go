// Package ospath provides discovery of OS-dependent paths.
package ospath

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the directory where per-user macpgp configuration is
// stored.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		// No home directory at all, keep everything next to the binary.
		base = "."
	}

	return filepath.Join(base, "macpgp")
}

// ResolveUserFriendlyPath expands a leading ~ to the user home directory and
// optionally interprets relative paths as relative to it.
func ResolveUserFriendlyPath(path string, relativeToHome bool) string {
	home, _ := os.UserHomeDir()

	switch {
	case home != "" && strings.HasPrefix(path, "~"):
		return home + path[1:]
	case filepath.IsAbs(path):
		return path
	case relativeToHome && home != "":
		return filepath.Join(home, path)
	default:
		return path
	}
}
