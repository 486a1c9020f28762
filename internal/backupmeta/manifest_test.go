package backupmeta

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writeRaw: %v", err)
	}
}

func TestManifestRoundTrip_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	m := NewManifest()
	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(got.Root.Subdirectories) != 0 {
		t.Fatalf("expected empty root, got %+v", got.Root)
	}
}

func TestManifestRoundTrip_Nested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	m := NewManifest()
	m.Root.CopiedFiles = []string{"top.txt"}
	a := &Directory{Name: "a", CopiedFiles: []string{"a1.txt"}}
	b := &Directory{Name: "b", RemovedFiles: []string{"old.txt"}}
	a.Subdirectories = append(a.Subdirectories, b)
	c := &Directory{Name: "c", RemovedDirectories: []string{"gone"}}
	m.Root.Subdirectories = append(m.Root.Subdirectories, a, c)

	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}

	if len(got.Root.CopiedFiles) != 1 || got.Root.CopiedFiles[0] != "top.txt" {
		t.Fatalf("root copied files mismatch: %+v", got.Root.CopiedFiles)
	}
	if len(got.Root.Subdirectories) != 2 {
		t.Fatalf("expected 2 root subdirs, got %d", len(got.Root.Subdirectories))
	}

	gotA := got.Root.Subdirectories[0]
	if gotA.Name != "a" || len(gotA.Subdirectories) != 1 || gotA.Subdirectories[0].Name != "b" {
		t.Fatalf("subtree a mismatch: %+v", gotA)
	}
	if len(gotA.Subdirectories[0].RemovedFiles) != 1 || gotA.Subdirectories[0].RemovedFiles[0] != "old.txt" {
		t.Fatalf("subtree a/b removed files mismatch: %+v", gotA.Subdirectories[0])
	}

	gotC := got.Root.Subdirectories[1]
	if gotC.Name != "c" || len(gotC.RemovedDirectories) != 1 || gotC.RemovedDirectories[0] != "gone" {
		t.Fatalf("subtree c mismatch: %+v", gotC)
	}
}

func TestWriteManifest_PrunesEmptySubtrees(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	m := NewManifest()
	empty := &Directory{Name: "empty"}
	nested := &Directory{Name: "nested"}
	nested.Subdirectories = append(nested.Subdirectories, &Directory{Name: "deeper-empty"})
	m.Root.Subdirectories = append(m.Root.Subdirectories, empty, nested)

	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(got.Root.Subdirectories) != 0 {
		t.Fatalf("expected fully pruned root, got %+v", got.Root.Subdirectories)
	}
}

func TestWriteManifest_NoTrailingBacktracks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	m := NewManifest()
	a := &Directory{Name: "a"}
	a.Subdirectories = append(a.Subdirectories, &Directory{Name: "b", CopiedFiles: []string{"f"}})
	m.Root.Subdirectories = append(m.Root.Subdirectories, a)

	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := string(raw)
	if got[len(got)-2] == '^' {
		t.Fatalf("manifest should not end with a backtrack token: %s", got)
	}
}

func TestReadManifest_NotArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	writeRaw(t, path, `{"n": ""}`)

	if _, err := ReadManifest(path); err == nil {
		t.Fatal("expected error for non-array manifest")
	}
}

func TestReadManifest_MissingNameField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	writeRaw(t, path, `[{"n": ""}, {"cf": ["x"]}]`)

	if _, err := ReadManifest(path); err == nil {
		t.Fatal("expected error for missing n field on non-root entry")
	}
}

func TestReadManifest_UnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	writeRaw(t, path, `[{"n": "", "bogus": 1}]`)

	if _, err := ReadManifest(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestReadManifest_MalformedBacktrack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	writeRaw(t, path, `[{"n": ""}, {"n": "a"}, "nope"]`)

	if _, err := ReadManifest(path); err == nil {
		t.Fatal("expected error for malformed backtrack token")
	}
}

func TestReadManifest_BacktrackPastRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	writeRaw(t, path, `[{"n": ""}, "^1"]`)

	if _, err := ReadManifest(path); err == nil {
		t.Fatal("expected error for backtrack past root")
	}
}

func TestReadManifest_ExplicitReentryMerges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	writeRaw(t, path, `[{"n": ""}, {"n": "a", "cf": ["x"]}, "^1", {"n": "a", "cf": ["y"]}]`)

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(got.Root.Subdirectories) != 1 {
		t.Fatalf("expected re-entry to merge into a single subdirectory, got %d", len(got.Root.Subdirectories))
	}
	a := got.Root.Subdirectories[0]
	if len(a.CopiedFiles) != 2 {
		t.Fatalf("expected merged copied files, got %+v", a.CopiedFiles)
	}
}

func TestPruneManifest_KeepsNonEmptyDescendant(t *testing.T) {
	root := &Directory{Name: ""}
	mid := &Directory{Name: "mid"}
	leaf := &Directory{Name: "leaf", CopiedFiles: []string{"f"}}
	mid.Subdirectories = append(mid.Subdirectories, leaf)
	root.Subdirectories = append(root.Subdirectories, mid)

	PruneManifest(root)

	if len(root.Subdirectories) != 1 || len(root.Subdirectories[0].Subdirectories) != 1 {
		t.Fatalf("expected mid/leaf to survive pruning, got %+v", root)
	}
}
