// Package backupmeta implements the on-disk backup format: directory
// layout, start/completion/manifest encoding, backup directory naming and
// creation. Grounded on the original implementation's
// incremental_backup/meta/structure.py, adapted to Go idiom the way the
// teacher (djabi-backup) structures its own backup/root.go.
package backupmeta

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
)

const (
	// ManifestFilename is the name of the backup manifest file within a
	// backup directory.
	ManifestFilename = "manifest.json"

	// StartInfoFilename is the name of the backup start information file
	// within a backup directory.
	StartInfoFilename = "start.json"

	// CompletionInfoFilename is the name of the backup completion
	// information file within a backup directory.
	CompletionInfoFilename = "completion.json"

	// DataDirName is the name of the backup data directory (root of copied
	// files) within a backup directory.
	DataDirName = "data"

	// NameLength is the length of a generated backup directory name.
	NameLength = 16

	// CreationRetries is the number of times to retry creating a new
	// backup directory before failing.
	CreationRetries = 20
)

const nameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateName generates a name for a new backup directory: NameLength
// characters drawn uniformly from [a-z0-9]. Uniqueness is not guaranteed by
// the name alone; callers must handle collisions (see CreateDirectory).
func GenerateName() string {
	buf := make([]byte, NameLength)
	for i := range buf {
		buf[i] = nameAlphabet[rand.IntN(len(nameAlphabet))]
	}
	return string(buf)
}

// DirectoryCreationError is returned when a new backup directory could not
// be created within the configured number of retries.
type DirectoryCreationError struct {
	Reason string
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("failed to create backup directory: %s", e.Reason)
}

// CreateDirectory creates a new, uniquely-named backup directory within
// targetDirectory, retrying up to CreationRetries times on name collision
// or other creation failure.
func CreateDirectory(targetDirectory string) (name string, path string, err error) {
	retries := CreationRetries
	for {
		name = GenerateName()
		path = filepath.Join(targetDirectory, name)
		mkErr := os.Mkdir(path, 0755)
		if mkErr == nil {
			return name, path, nil
		}
		if retries <= 0 {
			return "", "", &DirectoryCreationError{Reason: mkErr.Error()}
		}
		retries--
	}
}
