// Package plan computes the set of actions ("backup plan") a backup
// operation will attempt, by diffing a freshly scanned source tree against
// the reconstructed backup sum. Grounded on the original implementation's
// incremental_backup/backup.py:compute_backup_plan, adapted to Go idiom
// the way the teacher (djabi-backup) structures its tree-walking code.
package plan

import (
	"github.com/djabi/incremental-backup/internal/backupsum"
	"github.com/djabi/incremental-backup/internal/fstree"
	"github.com/djabi/incremental-backup/internal/platform"
)

// Directory is one directory's worth of planned action.
type Directory struct {
	Name               string
	CopiedFiles        []string
	RemovedFiles       []string
	RemovedDirectories []string
	Subdirectories     []*Directory

	// ContainsCopiedFiles is true if this directory or any descendant has
	// at least one copied file.
	ContainsCopiedFiles bool
	// ContainsRemovedItems is true if this directory or any descendant has
	// at least one removed file or removed directory.
	ContainsRemovedItems bool
}

// Plan is the annotated, pruned tree describing the actions the executor
// will attempt.
type Plan struct {
	Root *Directory
}

// Compute diffs scanTree against sum, producing a plan tree. Sum directory
// lookups are keyed by path; a missing sum directory means "no prior
// history here", so everything scanned there is a fresh copy.
//
// Uses an explicit work-stack rather than recursion, so traversal depth
// isn't bounded by Go's call stack for very deep source trees.
func Compute(scanTree *fstree.Directory, sum *backupsum.Sum) *Plan {
	root := &Directory{Name: ""}

	// A work item is either a directory to visit (scanDir != nil) or a
	// sentinel to pop one segment off path after finishing a subtree
	// (popSegment == true).
	type work struct {
		scanDir    *fstree.Directory
		planDir    *Directory
		popSegment bool
	}

	stack := []work{{scanDir: scanTree, planDir: root}}
	var path []string
	isRoot := true

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.popSegment {
			path = path[:len(path)-1]
			continue
		}

		if !isRoot {
			path = append(path, top.scanDir.Name)
			stack = append(stack, work{popSegment: true})
		}

		diffDirectory(top.planDir, top.scanDir, sum, path)

		for i := len(top.scanDir.Subdirectories) - 1; i >= 0; i-- {
			scanSubdir := top.scanDir.Subdirectories[i]
			planSubdir := &Directory{Name: scanSubdir.Name}
			top.planDir.Subdirectories = append(top.planDir.Subdirectories, planSubdir)
			stack = append(stack, work{scanDir: scanSubdir, planDir: planSubdir})
		}

		isRoot = false
	}

	pruneAndAnnotate(root)
	return &Plan{Root: root}
}

func diffDirectory(planDir *Directory, scanDir *fstree.Directory, sum *backupsum.Sum, path []string) {
	sumDir := sum.FindDirectory(path)

	if sumDir == nil {
		for _, f := range scanDir.Files {
			planDir.CopiedFiles = append(planDir.CopiedFiles, f.Name)
		}
	} else {
		for _, f := range scanDir.Files {
			sumFile := findSumFile(sumDir, f.Name)
			if sumFile == nil || f.LastModified.After(sumFile.LastBackup.StartInfo.StartTime) {
				planDir.CopiedFiles = append(planDir.CopiedFiles, f.Name)
			}
		}

		for _, sf := range sumDir.Files {
			if !containsFSTreeFile(scanDir.Files, sf.Name) {
				planDir.RemovedFiles = append(planDir.RemovedFiles, sf.Name)
			}
		}

		for _, sd := range sumDir.Subdirectories {
			if !containsFSTreeDirectory(scanDir.Subdirectories, sd.Name) {
				planDir.RemovedDirectories = append(planDir.RemovedDirectories, sd.Name)
			}
		}
	}
}

func findSumFile(dir *backupsum.Directory, name string) *backupsum.File {
	for i := range dir.Files {
		if platform.NameEqual(dir.Files[i].Name, name) {
			return &dir.Files[i]
		}
	}
	return nil
}

func containsFSTreeFile(files []fstree.File, name string) bool {
	for _, f := range files {
		if platform.NameEqual(f.Name, name) {
			return true
		}
	}
	return false
}

func containsFSTreeDirectory(dirs []*fstree.Directory, name string) bool {
	for _, d := range dirs {
		if platform.NameEqual(d.Name, name) {
			return true
		}
	}
	return false
}

// pruneAndAnnotate computes ContainsCopiedFiles/ContainsRemovedItems
// bottom-up and drops any child directory that has both flags false. The
// root is never dropped, regardless of its own flags.
func pruneAndAnnotate(root *Directory) {
	var visit func(d *Directory) (bool, bool)
	visit = func(d *Directory) (copies bool, removals bool) {
		copies = len(d.CopiedFiles) > 0
		removals = len(d.RemovedFiles) > 0 || len(d.RemovedDirectories) > 0

		kept := d.Subdirectories[:0]
		for _, child := range d.Subdirectories {
			childCopies, childRemovals := visit(child)
			if childCopies || childRemovals {
				kept = append(kept, child)
				copies = copies || childCopies
				removals = removals || childRemovals
			}
		}
		d.Subdirectories = kept
		d.ContainsCopiedFiles = copies
		d.ContainsRemovedItems = removals
		return copies, removals
	}
	visit(root)
}
