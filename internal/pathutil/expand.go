// Package pathutil holds small path-handling helpers shared by the CLI and
// config layers. Adapted from the teacher's internal/backup/util.go.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandTilde expands a leading "~" to the current user's home directory.
// Paths not starting with "~" are returned unchanged. "~user"-style
// prefixes are not supported and are also returned unchanged.
func ExpandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~\\") {
		return filepath.Join(home, path[2:]), nil
	}

	return path, nil
}
