// Package pathmatch compiles and matches exclude patterns against
// canonicalised synthesised paths, grounded on the gitignore-style matcher
// in the teacher's internal/backup/ignore.go but simplified to the
// full-match regex semantics the backup engine requires: a pattern either
// fully matches an absolute, POSIX-style, canonicalised path or it doesn't.
package pathmatch

import (
	"fmt"
	"regexp"
)

// Predicate tests whether a path should be excluded from a backup.
type Predicate struct {
	patterns []*regexp.Regexp
}

// Compile compiles a set of exclude patterns. Each pattern is a regular
// expression with dot-matches-all semantics, matched with full-string
// anchoring against canonicalised absolute POSIX-style paths.
func Compile(patterns []string) (*Predicate, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, raw := range patterns {
		re, err := regexp.Compile(`\A(?s:` + raw + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		compiled = append(compiled, re)
	}
	return &Predicate{patterns: compiled}, nil
}

// Excluded reports whether path is matched by any compiled pattern. An
// empty pattern list always returns false. path must already be a
// canonicalised absolute POSIX-style path (directories end in "/").
func (p *Predicate) Excluded(path string) bool {
	if p == nil {
		return false
	}
	for _, re := range p.patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
