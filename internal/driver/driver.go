// Package driver orchestrates a single backup run: read the target's
// previous backups, fold them into a backup sum, scan the source, compute a
// plan against the sum, execute the plan into a freshly created backup
// directory, and record start/completion info alongside the manifest.
// Grounded on the original implementation's incremental_backup/commands/
// backup.py, adapted to Go idiom the way the teacher (djabi-backup)
// structures its top-level Backup type in internal/backup/backup.go.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/djabi/incremental-backup/internal/apperr"
	"github.com/djabi/incremental-backup/internal/backupmeta"
	"github.com/djabi/incremental-backup/internal/backupsum"
	"github.com/djabi/incremental-backup/internal/execute"
	"github.com/djabi/incremental-backup/internal/pathmatch"
	"github.com/djabi/incremental-backup/internal/plan"
	"github.com/djabi/incremental-backup/internal/scan"
)

// Callbacks receives non-fatal diagnostics from the run. OnExclude reports
// an excluded directory; every other field reports a recoverable error.
// None of them abort the backup.
type Callbacks struct {
	OnInvalidBackup func(name string)
	OnReadBackupError func(name string, err error)
	OnExclude         func(path string)
	OnListdirError    func(directory string, err error)
	OnMetadataError   func(path string, err error)
	OnMkdirError      func(directory string, err error)
	OnCopyError       func(source, destination string, err error)
	// OnCompletionInfoError is called when completion.json could not be
	// written; this never fails the backup since the manifest and data
	// were already committed to disk.
	OnCompletionInfoError func(err error)
}

// Results summarises a completed backup run.
type Results struct {
	BackupName   string
	FilesCopied  int
	FilesRemoved int
	PathsSkipped bool
}

// Run performs one backup of sourceDirectory into a freshly created
// directory under targetDirectory, excluding any path matched by exclude.
//
// Returns an *apperr.ArgumentError if sourceDirectory or targetDirectory is
// unusable, an *apperr.RuntimeError if a step the backup cannot proceed
// without fails (enumerating previous backups, creating the backup
// directory, creating the data directory, writing start info, writing the
// manifest), or the run's Results on success.
func Run(sourceDirectory, targetDirectory string, exclude *pathmatch.Predicate, callbacks Callbacks) (Results, error) {
	info, err := os.Stat(sourceDirectory)
	if err != nil || !info.IsDir() {
		return Results{}, apperr.Argument("source directory %q does not exist or is not a directory", sourceDirectory)
	}
	if err := os.MkdirAll(targetDirectory, 0755); err != nil {
		return Results{}, apperr.Argument("target directory %q could not be created: %s", targetDirectory, err)
	}

	startTime := time.Now().UTC()

	previousBackups, err := backupmeta.ReadAllBackups(targetDirectory, backupmeta.ReadBackupsCallbacks{
		OnInvalidBackup: callbacks.OnInvalidBackup,
		OnReadError:     callbacks.OnReadBackupError,
	})
	if err != nil {
		return Results{}, apperr.Runtime("failed to read previous backups", err)
	}
	sum := backupsum.From(previousBackups)

	backupName, backupDirectory, err := backupmeta.CreateDirectory(targetDirectory)
	if err != nil {
		return Results{}, apperr.Runtime("failed to create backup directory", err)
	}

	dataDirectory := filepath.Join(backupDirectory, backupmeta.DataDirName)
	if err := os.Mkdir(dataDirectory, 0755); err != nil {
		return Results{}, apperr.Runtime("failed to create backup data directory", err)
	}

	startInfoPath := filepath.Join(backupDirectory, backupmeta.StartInfoFilename)
	if err := backupmeta.WriteStartInfo(startInfoPath, backupmeta.StartInfo{StartTime: startTime}); err != nil {
		return Results{}, apperr.Runtime("failed to write backup start info", err)
	}

	scanResult := scan.Scan(sourceDirectory, exclude, scan.Callbacks{
		OnExclude:       callbacks.OnExclude,
		OnListdirError:  callbacks.OnListdirError,
		OnMetadataError: callbacks.OnMetadataError,
	})

	backupPlan := plan.Compute(scanResult.Tree, sum)

	execResults, manifest := execute.Execute(backupPlan, sourceDirectory, dataDirectory, execute.Callbacks{
		OnMkdirError: callbacks.OnMkdirError,
		OnCopyError:  callbacks.OnCopyError,
	})

	manifestPath := filepath.Join(backupDirectory, backupmeta.ManifestFilename)
	if err := backupmeta.WriteManifest(manifestPath, manifest); err != nil {
		return Results{}, apperr.Runtime("failed to write backup manifest", err)
	}

	pathsSkipped := scanResult.PathsSkipped || execResults.PathsSkipped

	completionPath := filepath.Join(backupDirectory, backupmeta.CompletionInfoFilename)
	completionInfo := backupmeta.CompletionInfo{EndTime: time.Now().UTC(), PathsSkipped: pathsSkipped}
	if err := backupmeta.WriteCompletionInfo(completionPath, completionInfo); err != nil {
		if callbacks.OnCompletionInfoError != nil {
			callbacks.OnCompletionInfoError(fmt.Errorf("failed to write backup completion info: %w", err))
		}
	}

	return Results{
		BackupName:   backupName,
		FilesCopied:  execResults.FilesCopied,
		FilesRemoved: execResults.FilesRemoved,
		PathsSkipped: pathsSkipped,
	}, nil
}
