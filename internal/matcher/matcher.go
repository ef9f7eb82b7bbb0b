// Package matcher selects attribute ids with shell-style glob patterns
// such as SELLER_PACKAGE_* or COLOR. Matching ignores case.
package matcher

import (
	"path"
	"slices"
	"strings"

	"github.com/agentstation/attrmap/pkg/errors"
)

// Set matches ids against any of several patterns.
type Set struct {
	patterns []string
}

// Compile validates patterns and returns the Set matching any of them.
// An empty pattern list matches nothing.
func Compile(patterns ...string) (*Set, error) {
	s := &Set{patterns: make([]string, 0, len(patterns))}
	for _, p := range patterns {
		lowered := strings.ToLower(strings.TrimSpace(p))
		if lowered == "" {
			continue
		}
		if _, err := path.Match(lowered, ""); err != nil {
			return nil, errors.NewValidationError("pattern", p, "invalid glob pattern")
		}
		s.patterns = append(s.patterns, lowered)
	}
	return s, nil
}

// Match reports whether id matches any pattern.
func (s *Set) Match(id string) bool {
	id = strings.ToLower(id)
	for _, p := range s.patterns {
		if ok, _ := path.Match(p, id); ok {
			return true
		}
	}
	return false
}

// Filter returns the ids matching any pattern, sorted.
func (s *Set) Filter(ids ...string) []string {
	var out []string
	for _, id := range ids {
		if s.Match(id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of patterns.
func (s *Set) Len() int {
	return len(s.patterns)
}

// IsGlobPattern reports whether pattern holds glob metacharacters.
func IsGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]")
}
