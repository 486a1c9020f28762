package execute

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/djabi/incremental-backup/internal/backupsum"
	"github.com/djabi/incremental-backup/internal/fstree"
	"github.com/djabi/incremental-backup/internal/plan"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestExecute_SimpleCopy(t *testing.T) {
	sourceDir := t.TempDir()
	destDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "a.txt"), "hello")

	scan := &fstree.Directory{Files: []fstree.File{{Name: "a.txt", LastModified: time.Now()}}}
	p := plan.Compute(scan, backupsum.From(nil))

	results, manifest := Execute(p, sourceDir, destDir, Callbacks{})

	if results.FilesCopied != 1 || results.PathsSkipped {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(manifest.Root.CopiedFiles) != 1 || manifest.Root.CopiedFiles[0] != "a.txt" {
		t.Fatalf("manifest root copied files = %+v", manifest.Root.CopiedFiles)
	}
	if _, err := os.Stat(filepath.Join(destDir, "a.txt")); err != nil {
		t.Fatalf("expected copied file to exist: %v", err)
	}
}

func TestExecute_NestedDirectories(t *testing.T) {
	sourceDir := t.TempDir()
	destDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "sub", "b.txt"), "world")

	scan := &fstree.Directory{
		Subdirectories: []*fstree.Directory{
			{Name: "sub", Files: []fstree.File{{Name: "b.txt", LastModified: time.Now()}}},
		},
	}
	p := plan.Compute(scan, backupsum.From(nil))

	results, manifest := Execute(p, sourceDir, destDir, Callbacks{})

	if results.FilesCopied != 1 {
		t.Fatalf("expected 1 file copied, got %d", results.FilesCopied)
	}
	if len(manifest.Root.Subdirectories) != 1 || manifest.Root.Subdirectories[0].Name != "sub" {
		t.Fatalf("manifest subdirectories = %+v", manifest.Root.Subdirectories)
	}
	if _, err := os.Stat(filepath.Join(destDir, "sub", "b.txt")); err != nil {
		t.Fatalf("expected nested copied file to exist: %v", err)
	}
}

// TestExecute_PartialMkdirFailure mirrors the spec's partial-failure
// scenario: a destination path component that should be a directory is
// pre-occupied by a file, so mkdir fails for that subtree, no copies are
// recorded there, and copies elsewhere still succeed. Recording of removed
// items under a failed mkdir is checked by the next test.
func TestExecute_PartialMkdirFailure(t *testing.T) {
	sourceDir := t.TempDir()
	destDir := t.TempDir()

	writeFile(t, filepath.Join(sourceDir, "dir1", "mkdir_error", "blocked.txt"), "nope")
	writeFile(t, filepath.Join(sourceDir, "dir1", "ok.txt"), "fine")

	// Pre-occupy the destination path with a file where a directory needs
	// to go.
	if err := os.MkdirAll(filepath.Join(destDir, "dir1"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writeFile(t, filepath.Join(destDir, "dir1", "mkdir_error"), "im-a-file-not-a-dir")

	scan := &fstree.Directory{
		Subdirectories: []*fstree.Directory{
			{
				Name: "dir1",
				Files: []fstree.File{
					{Name: "ok.txt", LastModified: time.Now()},
				},
				Subdirectories: []*fstree.Directory{
					{
						Name: "mkdir_error",
						Files: []fstree.File{
							{Name: "blocked.txt", LastModified: time.Now()},
						},
					},
				},
			},
		},
	}
	p := plan.Compute(scan, backupsum.From(nil))

	var mkdirErrors int
	results, manifest := Execute(p, sourceDir, destDir, Callbacks{
		OnMkdirError: func(directory string, err error) { mkdirErrors++ },
	})

	if !results.PathsSkipped {
		t.Fatal("expected paths_skipped=true")
	}
	if mkdirErrors == 0 {
		t.Fatal("expected at least one mkdir error")
	}
	if results.FilesCopied != 1 {
		t.Fatalf("expected exactly 1 successful copy (ok.txt), got %d", results.FilesCopied)
	}

	dir1 := manifest.Root.Subdirectories[0]
	if dir1.Name != "dir1" {
		t.Fatalf("expected dir1 in manifest, got %+v", manifest.Root.Subdirectories)
	}
	if len(dir1.CopiedFiles) != 1 || dir1.CopiedFiles[0] != "ok.txt" {
		t.Fatalf("dir1 copied files = %+v", dir1.CopiedFiles)
	}
	for _, sub := range dir1.Subdirectories {
		if sub.Name == "mkdir_error" && len(sub.CopiedFiles) != 0 {
			t.Fatalf("expected no copied files recorded under mkdir_error, got %+v", sub.CopiedFiles)
		}
	}
}

func TestExecute_RemovedItemsRecordedDespiteMkdirFailure(t *testing.T) {
	sourceDir := t.TempDir()
	destDir := t.TempDir()

	writeFile(t, filepath.Join(sourceDir, "dir1", "mkdir_error", "new.txt"), "x")

	if err := os.MkdirAll(filepath.Join(destDir, "dir1"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writeFile(t, filepath.Join(destDir, "dir1", "mkdir_error"), "blocker")

	scanDir1 := &fstree.Directory{
		Name: "dir1",
		Subdirectories: []*fstree.Directory{
			{Name: "mkdir_error", Files: []fstree.File{{Name: "new.txt", LastModified: time.Now()}}},
		},
	}
	scan := &fstree.Directory{Subdirectories: []*fstree.Directory{scanDir1}}

	// Directly construct a plan with a removed item under mkdir_error to
	// exercise "removed items recorded even if mkdir fails".
	p := plan.Compute(scan, backupsum.From(nil))
	p.Root.Subdirectories[0].Subdirectories[0].RemovedFiles = []string{"stale.txt"}
	p.Root.Subdirectories[0].Subdirectories[0].ContainsRemovedItems = true

	results, manifest := Execute(p, sourceDir, destDir, Callbacks{})

	if !results.PathsSkipped {
		t.Fatal("expected paths_skipped=true")
	}

	dir1 := manifest.Root.Subdirectories[0]
	var foundRemoval bool
	for _, sub := range dir1.Subdirectories {
		if sub.Name == "mkdir_error" && len(sub.RemovedFiles) == 1 && sub.RemovedFiles[0] == "stale.txt" {
			foundRemoval = true
		}
	}
	if !foundRemoval {
		t.Fatalf("expected stale.txt removal recorded under mkdir_error despite mkdir failure, got %+v", dir1)
	}
}
