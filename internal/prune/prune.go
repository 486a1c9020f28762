// Package prune identifies and removes backups that contribute nothing to
// the backup history: backups with an empty manifest and empty data
// directory, and (optionally) such backups that also carry unrecognised
// stray data. Grounded on the original implementation's
// incremental_backup/prune.py, adapted to Go idiom the way the teacher
// (djabi-backup) structures its command implementations.
package prune

import (
	"os"
	"path/filepath"

	"github.com/djabi/incremental-backup/internal/backupmeta"
	"github.com/djabi/incremental-backup/internal/platform"
)

// Options controls which classes of backup are considered prunable.
type Options struct {
	// PruneEmpty enables pruning of backups with an empty manifest and
	// empty data directory.
	PruneEmpty bool
	// PruneOtherData additionally enables pruning of otherwise-empty
	// backups that also contain files/directories the format doesn't
	// recognise.
	PruneOtherData bool
	// DryRun, if true, only classifies backups without deleting anything.
	DryRun bool
}

// Callbacks receives non-fatal diagnostics as pruning proceeds.
type Callbacks struct {
	ReadBackups backupmeta.ReadBackupsCallbacks
	// OnDeleteError is called when a prunable backup's directory could not
	// be removed. The backup is not counted as removed. It is also called
	// when a backup could not be classified; that backup is skipped.
	OnDeleteError func(name string, err error)
}

// Results summarises the outcome of a prune run.
type Results struct {
	// Prunable lists the names of backups classified as prunable,
	// regardless of whether this was a dry run.
	Prunable []string
	// Removed lists the names of backups actually deleted (always empty
	// on a dry run).
	Removed []string
}

var expectedEntries = map[string]bool{
	backupmeta.StartInfoFilename:      true,
	backupmeta.ManifestFilename:       true,
	backupmeta.CompletionInfoFilename: true,
	backupmeta.DataDirName:            true,
}

func manifestEmpty(m *backupmeta.Directory) bool {
	return len(m.CopiedFiles) == 0 && len(m.RemovedFiles) == 0 &&
		len(m.RemovedDirectories) == 0 && len(m.Subdirectories) == 0
}

func dataDirEmpty(backupDir string) (bool, error) {
	entries, err := os.ReadDir(filepath.Join(backupDir, backupmeta.DataDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}

func hasStrayData(backupDir string) (bool, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		expected := false
		for name := range expectedEntries {
			if platform.NameEqual(entry.Name(), name) {
				expected = true
				break
			}
		}
		if !expected {
			return true, nil
		}
	}
	return false, nil
}

// isPrunable classifies a single backup, given its target-relative
// directory. A classification error (from querying the data/ directory or
// backup directory contents) is treated as "not prunable" — never delete a
// backup whose structure couldn't be fully understood.
func isPrunable(targetDirectory string, backup *backupmeta.Metadata, options Options) (bool, error) {
	if !manifestEmpty(backup.Manifest.Root) {
		return false, nil
	}

	backupDir := filepath.Join(targetDirectory, backup.Name)

	empty, err := dataDirEmpty(backupDir)
	if err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}

	stray, err := hasStrayData(backupDir)
	if err != nil {
		return false, err
	}
	if stray {
		return options.PruneOtherData, nil
	}
	return options.PruneEmpty, nil
}

// Prune finds backups in targetDirectory matching Options and, unless
// DryRun is set, deletes them.
func Prune(targetDirectory string, options Options, callbacks Callbacks) (Results, error) {
	backups, err := backupmeta.ReadAllBackups(targetDirectory, callbacks.ReadBackups)
	if err != nil {
		return Results{}, err
	}

	var results Results
	for _, backup := range backups {
		prunable, err := isPrunable(targetDirectory, backup, options)
		if err != nil {
			if callbacks.OnDeleteError != nil {
				callbacks.OnDeleteError(backup.Name, err)
			}
			continue
		}
		if !prunable {
			continue
		}

		results.Prunable = append(results.Prunable, backup.Name)

		if options.DryRun {
			continue
		}

		backupDir := filepath.Join(targetDirectory, backup.Name)
		if err := os.RemoveAll(backupDir); err != nil {
			if callbacks.OnDeleteError != nil {
				callbacks.OnDeleteError(backup.Name, err)
			}
			continue
		}
		results.Removed = append(results.Removed, backup.Name)
	}

	return results, nil
}
