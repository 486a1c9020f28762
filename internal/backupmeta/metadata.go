package backupmeta

import (
	"fmt"
	"os"
	"path/filepath"
)

// Metadata holds everything known about a single backup, derived from its
// start-info and manifest files. Completion information is deliberately not
// included here: it exists only for human/diagnostic purposes and a
// missing or malformed completion file must never cause a backup to be
// treated as invalid.
type Metadata struct {
	Name      string
	StartInfo StartInfo
	Manifest  *Manifest
}

// ReadMetadata reads a backup's metadata (name, start info, manifest) from
// its backup directory.
func ReadMetadata(backupDirectory string) (*Metadata, error) {
	name := filepath.Base(backupDirectory)

	startInfo, err := ReadStartInfo(filepath.Join(backupDirectory, StartInfoFilename))
	if err != nil {
		return nil, err
	}

	manifest, err := ReadManifest(filepath.Join(backupDirectory, ManifestFilename))
	if err != nil {
		return nil, err
	}

	return &Metadata{Name: name, StartInfo: startInfo, Manifest: manifest}, nil
}

// ReadBackupsCallbacks receives non-fatal diagnostics from ReadAllBackups.
type ReadBackupsCallbacks struct {
	// OnInvalidBackup is called when a subdirectory of the target directory
	// doesn't look like a backup (name isn't plain ASCII alphanumeric, or
	// start.json/manifest.json is missing).
	OnInvalidBackup func(name string)
	// OnReadError is called when a subdirectory looks like a backup but its
	// metadata could not be read or parsed. The backup is skipped.
	OnReadError func(name string, err error)
}

func isASCIIAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isDigit := r >= '0' && r <= '9'
		isLower := r >= 'a' && r <= 'z'
		isUpper := r >= 'A' && r <= 'Z'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// looksLikeBackup reports whether directory (a direct child of the target
// directory) looks like a backup directory: its name is plain ASCII
// alphanumeric, and it contains both a start-info and a manifest file. The
// backup name's length is deliberately not checked, in case it changes in
// the future.
func looksLikeBackup(directory string) bool {
	name := filepath.Base(directory)
	return isASCIIAlnum(name) &&
		isRegularFile(filepath.Join(directory, StartInfoFilename)) &&
		isRegularFile(filepath.Join(directory, ManifestFilename))
}

// ReadAllBackups reads the metadata of every backup within targetDirectory.
// A nonexistent target directory is treated as containing no backups. Any
// other failure to enumerate the target directory is fatal. Subdirectories
// that don't look like backups, or whose metadata fails to read/parse, are
// skipped and reported via callbacks rather than aborting the whole read.
func ReadAllBackups(targetDirectory string, callbacks ReadBackupsCallbacks) ([]*Metadata, error) {
	entries, err := os.ReadDir(targetDirectory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to enumerate previous backups: %w", err)
	}

	var backups []*Metadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(targetDirectory, entry.Name())

		if !looksLikeBackup(path) {
			if callbacks.OnInvalidBackup != nil {
				callbacks.OnInvalidBackup(entry.Name())
			}
			continue
		}

		metadata, err := ReadMetadata(path)
		if err != nil {
			if callbacks.OnReadError != nil {
				callbacks.OnReadError(entry.Name(), err)
			}
			continue
		}
		backups = append(backups, metadata)
	}

	return backups, nil
}
