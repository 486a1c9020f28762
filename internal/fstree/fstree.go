// Package fstree is the in-memory representation of a scanned directory
// subtree: files with modification times and nested directories. It is the
// output shape produced by internal/scan and consumed by internal/plan.
package fstree

import "time"

// File is a single file observed during a source scan.
type File struct {
	Name         string
	LastModified time.Time // UTC
}

// Directory is a single directory observed during a source scan, along with
// its immediate files and subdirectories. The root directory of a scan has
// an empty Name.
type Directory struct {
	Name           string
	Files          []File
	Subdirectories []*Directory
}
