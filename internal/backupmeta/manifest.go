package backupmeta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/djabi/incremental-backup/internal/platform"
)

// Manifest lists the files and directories copied and removed by a single
// backup, compared to the logical state established by all prior backups.
// The data is represented as a tree mirroring the filesystem.
type Manifest struct {
	Root *Directory
}

// Directory is one directory's worth of manifest payload.
type Directory struct {
	Name               string
	CopiedFiles        []string
	RemovedFiles       []string
	RemovedDirectories []string
	Subdirectories     []*Directory
}

// NewManifest returns an empty manifest with an unnamed root directory.
func NewManifest() *Manifest {
	return &Manifest{Root: &Directory{Name: ""}}
}

// ManifestParseError is returned when a manifest file cannot be parsed due
// to invalid format.
type ManifestParseError struct {
	FilePath string
	Reason   string
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse backup manifest file %q: %s", e.FilePath, e.Reason)
}

// directoryEntry is the decoded form of a manifest directory object. The
// other shape a manifest entry can take, a "^k" backtrack string, is decoded
// by parseBacktrack.
type directoryEntry struct {
	Name               string
	CopiedFiles        []string
	RemovedFiles       []string
	RemovedDirectories []string
}

// PruneManifest removes subdirectories (recursively) that have no payload
// of their own and no descendant with one. The root is never removed.
// Emptiness is defined purely by the four payload slices being empty.
func PruneManifest(root *Directory) {
	var hasContent func(d *Directory) bool
	hasContent = func(d *Directory) bool {
		kept := d.Subdirectories[:0]
		any := len(d.CopiedFiles) > 0 || len(d.RemovedFiles) > 0 || len(d.RemovedDirectories) > 0
		for _, child := range d.Subdirectories {
			if hasContent(child) {
				kept = append(kept, child)
				any = true
			}
		}
		d.Subdirectories = kept
		return any
	}
	for _, child := range root.Subdirectories {
		hasContent(child)
	}
	kept := root.Subdirectories[:0]
	for _, child := range root.Subdirectories {
		if len(child.CopiedFiles) > 0 || len(child.RemovedFiles) > 0 || len(child.RemovedDirectories) > 0 || len(child.Subdirectories) > 0 {
			kept = append(kept, child)
		}
	}
	root.Subdirectories = kept
}

// WriteManifest writes a backup manifest to path as a linearised pre-order
// traversal: a flat JSON array of directory-entry objects and "^k"
// backtrack tokens. The manifest is pruned (PruneManifest) before encoding,
// so write(M) always reflects prune(M).
func WriteManifest(path string, value *Manifest) error {
	PruneManifest(value.Root)

	// Depth-first pre-order walk emitting either a directory object or a
	// nil sentinel marking "finished this subtree, about to ascend".
	var nodes []interface{} // *Directory or nil
	var walk func(d *Directory)
	walk = func(d *Directory) {
		nodes = append(nodes, d)
		for _, child := range d.Subdirectories {
			walk(child)
		}
		nodes = append(nodes, nil)
	}
	walk(value.Root)

	// Compress consecutive nil sentinels into a single backtrack count,
	// and elide trailing backtracks (which would pop past the root).
	type entry struct {
		dir        *Directory
		backtracks int
	}
	var entries []entry
	backtrackCount := 0
	for _, n := range nodes {
		if n == nil {
			backtrackCount++
			continue
		}
		if backtrackCount > 0 {
			entries = append(entries, entry{backtracks: backtrackCount})
			backtrackCount = 0
		}
		entries = append(entries, entry{dir: n.(*Directory)})
	}
	// Trailing backtracks omitted: don't append the final backtrackCount.

	jsonValues := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		if e.dir == nil {
			jsonValues = append(jsonValues, fmt.Sprintf("^%d", e.backtracks))
			continue
		}
		obj := map[string]interface{}{"n": e.dir.Name}
		if len(e.dir.CopiedFiles) > 0 {
			obj["cf"] = e.dir.CopiedFiles
		}
		if len(e.dir.RemovedFiles) > 0 {
			obj["rf"] = e.dir.RemovedFiles
		}
		if len(e.dir.RemovedDirectories) > 0 {
			obj["rd"] = e.dir.RemovedDirectories
		}
		jsonValues = append(jsonValues, obj)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jsonValues); err != nil {
		return err
	}
	return os.WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"), 0644)
}

// ReadManifest reads a backup manifest from path.
func ReadManifest(path string) (*Manifest, error) {
	parseErr := func(reason string) error {
		return &ManifestParseError{FilePath: path, Reason: reason}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, parseErr(err.Error())
	}

	manifest := NewManifest()
	directoryStack := []*Directory{}

	for i, raw := range items {
		entryNum := i + 1

		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			backtracks, err := parseBacktrack(asString, entryNum)
			if err != nil {
				return nil, &ManifestParseError{FilePath: path, Reason: err.Error()}
			}
			if len(directoryStack) <= backtracks {
				return nil, parseErr(fmt.Sprintf("entry %d: cannot backtrack past backup source directory", entryNum))
			}
			directoryStack = directoryStack[:len(directoryStack)-backtracks]
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, parseErr(fmt.Sprintf("entry %d: invalid value, expected object or string", entryNum))
		}

		de, err := parseDirectoryEntry(obj, entryNum, path)
		if err != nil {
			return nil, err
		}

		var dir *Directory
		if entryNum == 1 {
			dir = manifest.Root
			dir.CopiedFiles = de.CopiedFiles
			dir.RemovedFiles = de.RemovedFiles
			dir.RemovedDirectories = de.RemovedDirectories
		} else {
			parent := directoryStack[len(directoryStack)-1]
			dir = findChild(parent, de.Name)
			if dir == nil {
				dir = &Directory{
					Name:               de.Name,
					CopiedFiles:        de.CopiedFiles,
					RemovedFiles:       de.RemovedFiles,
					RemovedDirectories: de.RemovedDirectories,
				}
				parent.Subdirectories = append(parent.Subdirectories, dir)
			} else {
				dir.CopiedFiles = append(dir.CopiedFiles, de.CopiedFiles...)
				dir.RemovedFiles = append(dir.RemovedFiles, de.RemovedFiles...)
				dir.RemovedDirectories = append(dir.RemovedDirectories, de.RemovedDirectories...)
			}
		}
		directoryStack = append(directoryStack, dir)
	}

	return manifest, nil
}

func findChild(parent *Directory, name string) *Directory {
	for _, d := range parent.Subdirectories {
		if platform.NameEqual(d.Name, name) {
			return d
		}
	}
	return nil
}

func parseBacktrack(s string, entryNum int) (int, error) {
	if !strings.HasPrefix(s, "^") {
		return 0, fmt.Errorf("entry %d: invalid value, backtrack must be in form \"^n\"", entryNum)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("entry %d: invalid backtrack amount, must be positive integer", entryNum)
	}
	return n, nil
}

func parseDirectoryEntry(obj map[string]json.RawMessage, entryNum int, filePath string) (directoryEntry, error) {
	parseErr := func(reason string) error {
		return &ManifestParseError{FilePath: filePath, Reason: reason}
	}

	remaining := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		remaining[k] = v
	}

	var de directoryEntry

	if rawName, ok := remaining["n"]; ok {
		if err := json.Unmarshal(rawName, &de.Name); err != nil {
			return de, parseErr(fmt.Sprintf("entry %d: field %q must be a string", entryNum, "n"))
		}
		delete(remaining, "n")
	} else if entryNum == 1 {
		de.Name = ""
	} else {
		return de, parseErr(fmt.Sprintf("entry %d: missing required field \"n\"", entryNum))
	}

	parseStringList := func(key string) ([]string, error) {
		raw, ok := remaining[key]
		if !ok {
			return nil, nil
		}
		delete(remaining, key)
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, parseErr(fmt.Sprintf("entry %d: field %q must be a list of strings", entryNum, key))
		}
		return list, nil
	}

	var err error
	if de.CopiedFiles, err = parseStringList("cf"); err != nil {
		return de, err
	}
	if de.RemovedFiles, err = parseStringList("rf"); err != nil {
		return de, err
	}
	if de.RemovedDirectories, err = parseStringList("rd"); err != nil {
		return de, err
	}

	if len(remaining) > 0 {
		extra := make([]string, 0, len(remaining))
		for k := range remaining {
			extra = append(extra, k)
		}
		return de, parseErr(fmt.Sprintf("entry %d: invalid fields %v", entryNum, extra))
	}

	return de, nil
}
