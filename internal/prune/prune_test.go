package prune

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/djabi/incremental-backup/internal/backupmeta"
)

func writeBackup(t *testing.T, targetDir, name string, manifest string, extraData bool, extraFile bool) {
	t.Helper()
	backupDir := filepath.Join(targetDir, name)
	if err := os.MkdirAll(filepath.Join(backupDir, backupmeta.DataDirName), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(backupDir, backupmeta.StartInfoFilename),
		[]byte(`{"start_time": "2024-01-01T00:00:00+00:00"}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(backupDir, backupmeta.ManifestFilename), []byte(manifest), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if extraData {
		if err := os.WriteFile(filepath.Join(backupDir, backupmeta.DataDirName, "f.txt"), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	if extraFile {
		if err := os.WriteFile(filepath.Join(backupDir, "my_quirky_data.abc"), []byte("yes"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
}

func TestPrune_NonEmptyBackup_NeverPrunable(t *testing.T) {
	targetDir := t.TempDir()
	writeBackup(t, targetDir, "goodbackup1234", `[{"n": "", "cf": ["x"]}]`, true, false)

	for _, opts := range []Options{
		{PruneEmpty: false, PruneOtherData: false},
		{PruneEmpty: false, PruneOtherData: true},
		{PruneEmpty: true, PruneOtherData: false},
		{PruneEmpty: true, PruneOtherData: true},
	} {
		results, err := Prune(targetDir, opts, Callbacks{})
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if len(results.Prunable) != 0 {
			t.Fatalf("opts=%+v: expected non-empty backup never prunable, got %v", opts, results.Prunable)
		}
	}
}

func TestPrune_EmptyBackup_PrunableOnlyWhenPruneEmptySet(t *testing.T) {
	targetDir := t.TempDir()
	writeBackup(t, targetDir, "emptybackup1234", `[{"n": ""}]`, false, false)

	cases := []struct {
		opts     Options
		prunable bool
	}{
		{Options{PruneEmpty: false, PruneOtherData: false}, false},
		{Options{PruneEmpty: false, PruneOtherData: true}, false},
		{Options{PruneEmpty: true, PruneOtherData: false}, true},
		{Options{PruneEmpty: true, PruneOtherData: true}, true},
	}
	for _, c := range cases {
		results, err := Prune(targetDir, Options{PruneEmpty: c.opts.PruneEmpty, PruneOtherData: c.opts.PruneOtherData, DryRun: true}, Callbacks{})
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		got := len(results.Prunable) == 1
		if got != c.prunable {
			t.Fatalf("opts=%+v: prunable=%v, want %v", c.opts, got, c.prunable)
		}
	}
}

func TestPrune_RemovedItemsOnly_NotPrunable(t *testing.T) {
	targetDir := t.TempDir()
	writeBackup(t, targetDir, "removedbackup1234", `[{"n": "", "rf": ["old.txt"], "rd": ["gone"]}]`, false, false)

	for _, opts := range []Options{
		{PruneEmpty: true, PruneOtherData: false, DryRun: true},
		{PruneEmpty: true, PruneOtherData: true, DryRun: true},
	} {
		results, err := Prune(targetDir, opts, Callbacks{})
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if len(results.Prunable) != 0 {
			t.Fatalf("opts=%+v: backup with removed items must not be prunable, got %v", opts, results.Prunable)
		}
	}
}

func TestPrune_StrayData_RequiresPruneOtherData(t *testing.T) {
	targetDir := t.TempDir()
	writeBackup(t, targetDir, "straybackup12345", `[{"n": ""}]`, false, true)

	cases := []struct {
		opts     Options
		prunable bool
	}{
		{Options{PruneEmpty: false, PruneOtherData: false}, false},
		{Options{PruneEmpty: false, PruneOtherData: true}, true},
		{Options{PruneEmpty: true, PruneOtherData: false}, false},
		{Options{PruneEmpty: true, PruneOtherData: true}, true},
	}
	for _, c := range cases {
		results, err := Prune(targetDir, Options{PruneEmpty: c.opts.PruneEmpty, PruneOtherData: c.opts.PruneOtherData, DryRun: true}, Callbacks{})
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		got := len(results.Prunable) == 1
		if got != c.prunable {
			t.Fatalf("opts=%+v: prunable=%v, want %v", c.opts, got, c.prunable)
		}
	}
}

func TestPrune_DryRun_DoesNotDelete(t *testing.T) {
	targetDir := t.TempDir()
	writeBackup(t, targetDir, "emptybackup1234", `[{"n": ""}]`, false, false)

	results, err := Prune(targetDir, Options{PruneEmpty: true, DryRun: true}, Callbacks{})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(results.Prunable) != 1 || len(results.Removed) != 0 {
		t.Fatalf("expected prunable but not removed on dry run, got %+v", results)
	}
	if _, err := os.Stat(filepath.Join(targetDir, "emptybackup1234")); err != nil {
		t.Fatalf("expected backup directory to survive dry run: %v", err)
	}
}

func TestPrune_CommitRemovesPrunableBackups(t *testing.T) {
	targetDir := t.TempDir()
	writeBackup(t, targetDir, "emptybackup1234", `[{"n": ""}]`, false, false)
	writeBackup(t, targetDir, "goodbackup12345", `[{"n": "", "cf": ["x"]}]`, true, false)

	results, err := Prune(targetDir, Options{PruneEmpty: true}, Callbacks{})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(results.Removed) != 1 || results.Removed[0] != "emptybackup1234" {
		t.Fatalf("expected only emptybackup1234 removed, got %+v", results.Removed)
	}
	if _, err := os.Stat(filepath.Join(targetDir, "emptybackup1234")); !os.IsNotExist(err) {
		t.Fatalf("expected emptybackup1234 to be deleted")
	}
	if _, err := os.Stat(filepath.Join(targetDir, "goodbackup12345")); err != nil {
		t.Fatalf("expected goodbackup12345 to survive: %v", err)
	}
}

func TestPrune_NonexistentTarget(t *testing.T) {
	dir := t.TempDir()
	results, err := Prune(filepath.Join(dir, "nope"), Options{PruneEmpty: true}, Callbacks{})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(results.Prunable) != 0 {
		t.Fatalf("expected no prunable backups for nonexistent target, got %+v", results)
	}
}
