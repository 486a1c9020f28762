// Package scan walks a source directory into an in-memory fstree.Directory,
// honouring exclude patterns and tolerating per-path I/O errors. Grounded
// on the original implementation's incremental_backup/backup.py:
// scan_filesystem, adapted to Go idiom the way the teacher (djabi-backup)
// structures its filesystem-walking code.
package scan

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/djabi/incremental-backup/internal/fstree"
	"github.com/djabi/incremental-backup/internal/pathmatch"
	"github.com/djabi/incremental-backup/internal/platform"
)

// Callbacks receives non-fatal diagnostics as the scan proceeds. Every
// field is optional; nil callbacks are simply not invoked.
type Callbacks struct {
	// OnExclude is called when a directory is skipped because it matched
	// an exclude pattern. Files are filtered silently, without a callback.
	OnExclude func(path string)
	// OnListdirError is called when a directory's entries could not be
	// enumerated. The directory is not descended into.
	OnListdirError func(directory string, err error)
	// OnMetadataError is called when an entry's metadata could not be
	// queried. The entry is skipped.
	OnMetadataError func(path string, err error)
}

// Result is the outcome of a scan.
type Result struct {
	Tree         *fstree.Directory
	PathsSkipped bool
}

// Scan walks root, producing a tree representation of the filesystem.
// Directories (and their descendants) matching exclude are omitted
// entirely; omission due to an exclude match does not set PathsSkipped.
func Scan(root string, exclude *pathmatch.Predicate, callbacks Callbacks) Result {
	result := Result{Tree: &fstree.Directory{Name: ""}}

	type work struct {
		sourceDir  string
		treeDir    *fstree.Directory
		popSegment bool
	}

	stack := []work{{sourceDir: root, treeDir: result.Tree}}
	var pathSegments []string
	isRoot := true

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.popSegment {
			pathSegments = pathSegments[:len(pathSegments)-1]
			continue
		}

		var directoryPath string
		if isRoot {
			directoryPath = "/"
		} else {
			name := platform.CanonicalizeName(filepath.Base(top.sourceDir))
			pathSegments = append(pathSegments, name)
			stack = append(stack, work{popSegment: true})
			directoryPath = "/" + strings.Join(pathSegments, "/") + "/"
		}

		if exclude.Excluded(directoryPath) {
			if callbacks.OnExclude != nil {
				callbacks.OnExclude(top.sourceDir)
			}
			isRoot = false
			continue
		}

		entries, err := os.ReadDir(top.sourceDir)
		if err != nil {
			result.PathsSkipped = true
			if callbacks.OnListdirError != nil {
				callbacks.OnListdirError(top.sourceDir, err)
			}
			isRoot = false
			continue
		}

		var subdirectories []*fstree.Directory
		var subdirectoryPaths []string
		for _, entry := range entries {
			childPath := filepath.Join(top.sourceDir, entry.Name())

			// Follow symlinks, matching the original's is_file()/is_dir()
			// semantics.
			info, err := os.Stat(childPath)
			if err != nil {
				result.PathsSkipped = true
				if callbacks.OnMetadataError != nil {
					callbacks.OnMetadataError(childPath, err)
				}
				continue
			}

			switch {
			case info.Mode().IsRegular():
				filePath := directoryPath + platform.CanonicalizeName(entry.Name())
				if exclude.Excluded(filePath) {
					continue
				}
				top.treeDir.Files = append(top.treeDir.Files, fstree.File{
					Name:         entry.Name(),
					LastModified: info.ModTime().UTC(),
				})
			case info.IsDir():
				subdirectoryPath := directoryPath + platform.CanonicalizeName(entry.Name()) + "/"
				if exclude.Excluded(subdirectoryPath) {
					if callbacks.OnExclude != nil {
						callbacks.OnExclude(childPath)
					}
					continue
				}
				subTree := &fstree.Directory{Name: entry.Name()}
				top.treeDir.Subdirectories = append(top.treeDir.Subdirectories, subTree)
				subdirectories = append(subdirectories, subTree)
				subdirectoryPaths = append(subdirectoryPaths, childPath)
			}
			// Anything else (sockets, devices, etc.) is silently skipped.
		}

		for i := len(subdirectories) - 1; i >= 0; i-- {
			stack = append(stack, work{sourceDir: subdirectoryPaths[i], treeDir: subdirectories[i]})
		}

		isRoot = false
	}

	return result
}
