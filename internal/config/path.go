// Package config loads and validates the fees settings.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// memoryDatabase is the SQLite name of a private in-memory database.
const memoryDatabase = ":memory:"

// ExpandPath resolves a configured database path. Environment references
// such as $HOME are expanded first, then a leading ~ becomes the home
// directory and the result is cleaned. Blank paths come back empty and the
// in-memory database name is left alone.
func ExpandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == memoryDatabase {
		return path
	}

	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return filepath.Clean(path)
}
