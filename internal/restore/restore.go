// Package restore walks a backup sum built from a selected subset of
// backups and copies every surviving file from wherever it was last
// backed up into a destination directory. Grounded on the original
// implementation's incremental_backup/commands/restore.py, adapted to Go
// idiom the way the teacher (djabi-backup) structures its command drivers.
package restore

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/djabi/incremental-backup/internal/backupmeta"
	"github.com/djabi/incremental-backup/internal/backupsum"
	"github.com/djabi/incremental-backup/internal/fsutil"
)

// Callbacks receives non-fatal diagnostics as the restore proceeds. None of
// them abort the restore.
type Callbacks struct {
	ReadBackups  backupmeta.ReadBackupsCallbacks
	OnMkdirError func(directory string, err error)
	OnCopyError  func(source, destination string, err error)
}

// Results summarises a completed restore.
type Results struct {
	FilesRestored int
}

// selectBackups returns the subset of backups whose start time is at or
// before cutoff, sorted ascending by start time. A nil cutoff selects every
// backup (restore to latest).
func selectBackups(backups []*backupmeta.Metadata, cutoff *time.Time) []*backupmeta.Metadata {
	var selected []*backupmeta.Metadata
	for _, b := range backups {
		if cutoff == nil || !b.StartInfo.StartTime.After(*cutoff) {
			selected = append(selected, b)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].StartInfo.StartTime.Before(selected[j].StartInfo.StartTime)
	})
	return selected
}

// CutoffForBackup looks up the start time of the backup named name among
// backups, for use as a restore cutoff: restoring "as of" a named backup
// means including that backup and every backup that started no later than
// it, which is exactly every backup with start time <= its own.
func CutoffForBackup(backups []*backupmeta.Metadata, name string) (time.Time, bool) {
	for _, b := range backups {
		if b.Name == name {
			return b.StartInfo.StartTime, true
		}
	}
	return time.Time{}, false
}

// Run restores the state of a source tree, as of cutoff, from the backups
// found in targetDirectory into destinationDirectory. A nil cutoff restores
// the latest state (every backup in targetDirectory is considered).
func Run(targetDirectory, destinationDirectory string, cutoff *time.Time, callbacks Callbacks) (Results, error) {
	backups, err := backupmeta.ReadAllBackups(targetDirectory, callbacks.ReadBackups)
	if err != nil {
		return Results{}, err
	}

	selected := selectBackups(backups, cutoff)
	sum := backupsum.From(selected)

	var results Results
	walkDirectory(sum.Root, targetDirectory, destinationDirectory, nil, &results, callbacks)
	return results, nil
}

// walkDirectory recursively restores dir (a backupsum directory) into
// destinationRoot, joined with the path segments accumulated so far. The
// same path segments locate each file within its owning backup's data
// directory, since the backup sum tree mirrors the original source tree
// exactly.
func walkDirectory(dir *backupsum.Directory, targetDirectory, destinationRoot string, pathSegments []string, results *Results, callbacks Callbacks) {
	destinationDir := filepath.Join(append([]string{destinationRoot}, pathSegments...)...)

	if len(dir.Files) > 0 {
		if err := os.MkdirAll(destinationDir, 0755); err != nil {
			if callbacks.OnMkdirError != nil {
				callbacks.OnMkdirError(destinationDir, err)
			}
		} else {
			for _, f := range dir.Files {
				restoreFile(f, pathSegments, targetDirectory, destinationDir, results, callbacks)
			}
		}
	}

	for _, sub := range dir.Subdirectories {
		walkDirectory(sub, targetDirectory, destinationRoot, append(append([]string{}, pathSegments...), sub.Name), results, callbacks)
	}
}

func restoreFile(f backupsum.File, pathSegments []string, targetDirectory, destinationDir string, results *Results, callbacks Callbacks) {
	sourceSegments := append(append([]string{targetDirectory, f.LastBackup.Name, backupmeta.DataDirName}, pathSegments...), f.Name)
	source := filepath.Join(sourceSegments...)
	destination := filepath.Join(destinationDir, f.Name)

	if err := fsutil.CopyFile(source, destination); err != nil {
		if callbacks.OnCopyError != nil {
			callbacks.OnCopyError(source, destination, err)
		}
		return
	}
	results.FilesRestored++
}
