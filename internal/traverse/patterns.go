package traverse

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quantmind-br/gitingest-go/internal/domain"
)

// pattern is one compiled gitignore-style glob.
type pattern struct {
	glob    string
	negated bool
	rooted  bool // contains a slash, so it anchors at the repository root
	dirOnly bool
}

// Set is a compiled pattern collection with gitignore wildcard semantics:
// `**` globs, patterns without a slash matching at any level, trailing-slash
// directory patterns, and `!` negations re-including earlier matches. The
// last matching pattern decides.
type Set struct {
	patterns []pattern
}

// Compile builds a Set from raw gitignore-style patterns. Empty patterns are
// dropped.
func Compile(raw []string) *Set {
	s := &Set{}
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		var pat pattern
		if strings.HasPrefix(p, "!") {
			pat.negated = true
			p = p[1:]
		}
		if strings.HasSuffix(p, "/") {
			pat.dirOnly = true
			p = strings.TrimSuffix(p, "/")
		}
		p = strings.TrimPrefix(p, "/")
		pat.rooted = strings.Contains(p, "/")
		pat.glob = p
		if pat.glob == "" {
			continue
		}
		s.patterns = append(s.patterns, pat)
	}
	return s
}

var _ domain.Matcher = (*Set)(nil)

// Empty reports whether the set contains no patterns.
func (s *Set) Empty() bool {
	return s == nil || len(s.patterns) == 0
}

// Matches evaluates relPath ("/"-separated, relative to the repository root)
// against the set.
func (s *Set) Matches(relPath string, isDir bool) bool {
	if s.Empty() {
		return false
	}
	relPath = strings.Trim(relPath, "/")

	matched := false
	for _, pat := range s.patterns {
		if pat.dirOnly && !isDir && !parentMatches(pat, relPath) {
			continue
		}
		if pat.matches(relPath) {
			matched = !pat.negated
		}
	}
	return matched
}

// matches checks one pattern against one path, including the gitignore rule
// that matching a directory matches everything beneath it.
func (p pattern) matches(relPath string) bool {
	if p.rooted {
		if ok, _ := doublestar.Match(p.glob, relPath); ok {
			return true
		}
		ok, _ := doublestar.Match(p.glob+"/**", relPath)
		return ok
	}
	// Slash-less patterns match any path component.
	if ok, _ := doublestar.Match("**/"+p.glob, relPath); ok {
		return true
	}
	ok, _ := doublestar.Match("**/"+p.glob+"/**", relPath)
	return ok
}

// parentMatches reports whether a directory-only pattern matches one of the
// path's ancestor directories.
func parentMatches(p pattern, relPath string) bool {
	idx := strings.LastIndex(relPath, "/")
	if idx < 0 {
		return false
	}
	return p.matches(relPath[:idx])
}
