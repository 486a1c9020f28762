// Package execute materialises a computed plan into a backup's data
// directory, producing the manifest of what actually happened. Grounded on
// the original implementation's incremental_backup/backup.py:
// execute_backup_plan, adapted to Go idiom the way the teacher
// (djabi-backup) structures its directory-walking and error-callback code.
package execute

import (
	"os"
	"path/filepath"

	"github.com/djabi/incremental-backup/internal/backupmeta"
	"github.com/djabi/incremental-backup/internal/fsutil"
	"github.com/djabi/incremental-backup/internal/plan"
)

// Results summarises the outcome of executing a plan.
type Results struct {
	PathsSkipped bool
	FilesCopied  int
	FilesRemoved int
}

// Callbacks receives non-fatal diagnostics as the plan executes. Every
// field is optional; nil callbacks are simply not invoked.
type Callbacks struct {
	OnMkdirError func(directory string, err error)
	OnCopyError  func(source, destination string, err error)
}

// Execute walks plan depth-first, creating directories and copying files
// under destinationPath (which mirrors sourcePath's layout), and returns
// the accumulated results plus the manifest describing what was actually
// done. The manifest is pruned before being returned.
func Execute(p *plan.Plan, sourcePath, destinationPath string, callbacks Callbacks) (Results, *backupmeta.Manifest) {
	results := Results{}
	manifest := backupmeta.NewManifest()

	type work struct {
		planDir     *plan.Directory
		manifestDir *backupmeta.Directory
		mkdirFailed bool
		popSegment  bool
	}

	stack := []work{{planDir: p.Root, manifestDir: manifest.Root}}
	var pathSegments []string
	isRoot := true

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.popSegment {
			pathSegments = pathSegments[:len(pathSegments)-1]
			continue
		}

		if !isRoot {
			pathSegments = append(pathSegments, top.planDir.Name)
			stack = append(stack, work{popSegment: true})
		}

		relativeDir := filepath.Join(pathSegments...)
		destinationDir := filepath.Join(destinationPath, relativeDir)

		top.manifestDir.RemovedFiles = append(top.manifestDir.RemovedFiles, top.planDir.RemovedFiles...)
		top.manifestDir.RemovedDirectories = append(top.manifestDir.RemovedDirectories, top.planDir.RemovedDirectories...)
		results.FilesRemoved += len(top.planDir.RemovedFiles)

		mkdirFailed := top.mkdirFailed
		if !top.planDir.ContainsCopiedFiles {
			// Nothing to copy in this subtree: don't bother creating the
			// directory at all.
		} else if !mkdirFailed {
			if err := os.MkdirAll(destinationDir, 0755); err != nil {
				mkdirFailed = true
				results.PathsSkipped = true
				if callbacks.OnMkdirError != nil {
					callbacks.OnMkdirError(destinationDir, err)
				}
			} else {
				for _, file := range top.planDir.CopiedFiles {
					sourceFile := filepath.Join(sourcePath, relativeDir, file)
					destinationFile := filepath.Join(destinationDir, file)
					if err := fsutil.CopyFile(sourceFile, destinationFile); err != nil {
						results.PathsSkipped = true
						if callbacks.OnCopyError != nil {
							callbacks.OnCopyError(sourceFile, destinationFile, err)
						}
						continue
					}
					top.manifestDir.CopiedFiles = append(top.manifestDir.CopiedFiles, file)
					results.FilesCopied++
				}
			}
		}

		for i := len(top.planDir.Subdirectories) - 1; i >= 0; i-- {
			subdir := top.planDir.Subdirectories[i]
			if mkdirFailed && !subdir.ContainsRemovedItems {
				continue
			}
			manifestSubdir := &backupmeta.Directory{Name: subdir.Name}
			top.manifestDir.Subdirectories = append(top.manifestDir.Subdirectories, manifestSubdir)
			stack = append(stack, work{planDir: subdir, manifestDir: manifestSubdir, mkdirFailed: mkdirFailed})
		}

		isRoot = false
	}

	backupmeta.PruneManifest(manifest.Root)
	return results, manifest
}
