// Package platform centralises the one comparison primitive ("name-equal")
// that every component which compares path components must use: sum
// folding, plan diffing, manifest re-entry, and prune classification.
// Divergence between call sites produces silent corruption, so there must
// be exactly one implementation.
package platform

import (
	"runtime"
	"strings"
)

// caseInsensitive reports whether the current platform's filesystems
// typically fold case when comparing names.
var caseInsensitive = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

// NameEqual compares two path components the way the host filesystem would:
// case-folded on platforms whose filesystems are usually case-insensitive,
// exact everywhere else.
func NameEqual(a, b string) bool {
	if caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// CanonicalizeName normalises a single path component for use as an exclude
// pattern match input, so a case-insensitive platform can't be fooled by
// case differences between the pattern and the real path.
func CanonicalizeName(name string) string {
	if caseInsensitive {
		return strings.ToLower(name)
	}
	return name
}
