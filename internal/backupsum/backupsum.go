// Package backupsum reconstructs the logical state of a source directory
// implied by a sequence of backups: which files exist, and which backup
// last copied each one. Grounded on the original implementation's
// incremental_backup/backup_meta/sum.py.
package backupsum

import (
	"sort"

	"github.com/djabi/incremental-backup/internal/backupmeta"
	"github.com/djabi/incremental-backup/internal/platform"
)

// File is a file known to exist (as of the most recent backup considered),
// along with the backup that last copied it.
type File struct {
	Name       string
	LastBackup *backupmeta.Metadata
}

// Directory is a directory known to exist (as of the most recent backup
// considered), or to contain descendants that do.
type Directory struct {
	Name           string
	Files          []File
	Subdirectories []*Directory
}

// Sum is the reconstructed file/directory structure implied by a sequence
// of backups. Root represents the backup source directory.
type Sum struct {
	Root *Directory
}

// FindDirectory finds a directory within the sum by path, given as a
// sequence of directory names relative to the root. Returns nil if no such
// directory exists in the sum.
func (s *Sum) FindDirectory(path []string) *Directory {
	dir := s.Root
	for _, name := range path {
		dir = findSubdirectory(dir, name)
		if dir == nil {
			return nil
		}
	}
	return dir
}

func findSubdirectory(dir *Directory, name string) *Directory {
	for _, d := range dir.Subdirectories {
		if platform.NameEqual(d.Name, name) {
			return d
		}
	}
	return nil
}

// From constructs a backup sum by folding the manifests of backups in
// start-time order: earliest first, so that each later backup's copies,
// removals, and directory removals correctly supersede earlier ones.
// backups should all be for the same source directory, or the result is
// meaningless.
func From(backups []*backupmeta.Metadata) *Sum {
	root := &Directory{Name: ""}

	sorted := make([]*backupmeta.Metadata, len(backups))
	copy(sorted, backups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartInfo.StartTime.Before(sorted[j].StartInfo.StartTime)
	})

	for _, backup := range sorted {
		foldManifest(root, backup)
	}

	pruneEmpty(root)
	return &Sum{Root: root}
}

// foldManifest applies one backup's manifest onto the sum tree using an
// explicit stack to avoid recursion depth proportional to tree depth.
func foldManifest(root *Directory, backup *backupmeta.Metadata) {
	type frame struct {
		manifestDir *backupmeta.Directory // nil: pop sumStack
	}

	searchStack := []frame{{manifestDir: backup.Manifest.Root}}
	sumStack := []*Directory{root}
	isRoot := true

	for len(searchStack) > 0 {
		top := searchStack[len(searchStack)-1]
		searchStack = searchStack[:len(searchStack)-1]

		if top.manifestDir == nil {
			sumStack = sumStack[:len(sumStack)-1]
			continue
		}
		searchDir := top.manifestDir

		var sumDir *Directory
		if isRoot {
			sumDir = sumStack[len(sumStack)-1]
		} else {
			parent := sumStack[len(sumStack)-1]
			sumDir = findSubdirectory(parent, searchDir.Name)
			if sumDir == nil {
				sumDir = &Directory{Name: searchDir.Name}
				parent.Subdirectories = append(parent.Subdirectories, sumDir)
			}
			sumStack = append(sumStack, sumDir)
		}

		for _, copiedFile := range searchDir.CopiedFiles {
			found := false
			for i := range sumDir.Files {
				if platform.NameEqual(sumDir.Files[i].Name, copiedFile) {
					sumDir.Files[i].LastBackup = backup
					found = true
					break
				}
			}
			if !found {
				sumDir.Files = append(sumDir.Files, File{Name: copiedFile, LastBackup: backup})
			}
		}

		for _, removedFile := range searchDir.RemovedFiles {
			kept := sumDir.Files[:0]
			for _, f := range sumDir.Files {
				if !platform.NameEqual(f.Name, removedFile) {
					kept = append(kept, f)
				}
			}
			sumDir.Files = kept
		}

		for _, removedDir := range searchDir.RemovedDirectories {
			kept := sumDir.Subdirectories[:0]
			for _, d := range sumDir.Subdirectories {
				if !platform.NameEqual(d.Name, removedDir) {
					kept = append(kept, d)
				}
			}
			sumDir.Subdirectories = kept
		}

		searchStack = append(searchStack, frame{manifestDir: nil})
		for i := len(searchDir.Subdirectories) - 1; i >= 0; i-- {
			searchStack = append(searchStack, frame{manifestDir: searchDir.Subdirectories[i]})
		}

		isRoot = false
	}
}

// pruneEmpty removes directories that have no files anywhere in their
// subtree. The root is never removed, even if empty.
func pruneEmpty(root *Directory) {
	var pruneSubtree func(d *Directory) int
	pruneSubtree = func(d *Directory) int {
		kept := d.Subdirectories[:0]
		total := len(d.Files)
		for _, child := range d.Subdirectories {
			if childCount := pruneSubtree(child); childCount > 0 {
				kept = append(kept, child)
				total += childCount
			}
		}
		d.Subdirectories = kept
		return total
	}
	pruneSubtree(root)
}
