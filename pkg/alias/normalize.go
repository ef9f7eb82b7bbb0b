// Package alias resolves target attribute aliases against flattened
// document keys.
//
// Keys and aliases are first collapsed into comparable tokens with
// NormalizeKey, so "package_width.value", "Package Width Value" and
// "packagewidthvalue" all compare equal. A Matcher then scans the
// normalized record in insertion order.
package alias

import (
	"regexp"
	"strings"

	"github.com/agentstation/attrmap/pkg/flatten"
)

var separators = regexp.MustCompile(`[\s_\-\[\]\.]+`)

// NormalizeKey lowercases k and removes whitespace, underscore, hyphen,
// bracket and dot runs.
func NormalizeKey(k string) string {
	return separators.ReplaceAllString(strings.ToLower(k), "")
}

// Index is the normalized view of a flatten.Record.
//
// Keys that collapse to the same token keep the position of the first
// occurrence and the value of the last one.
type Index struct {
	keys   []string
	values map[string]string
	paths  map[string]string
}

// NewIndex normalizes every key of rec.
func NewIndex(rec *flatten.Record) *Index {
	idx := &Index{
		values: make(map[string]string, rec.Len()),
		paths:  make(map[string]string, rec.Len()),
	}
	rec.Each(func(key, value string) bool {
		nk := NormalizeKey(key)
		if _, ok := idx.values[nk]; !ok {
			idx.keys = append(idx.keys, nk)
		}
		idx.values[nk] = value
		idx.paths[nk] = key
		return true
	})
	return idx
}

// Len returns the number of distinct normalized keys.
func (i *Index) Len() int {
	return len(i.keys)
}

// Keys returns the normalized keys in insertion order.
func (i *Index) Keys() []string {
	out := make([]string, len(i.keys))
	copy(out, i.keys)
	return out
}

// Get returns the value stored under a normalized key.
func (i *Index) Get(nk string) (string, bool) {
	v, ok := i.values[nk]
	return v, ok
}

// Path returns the original flattened path behind a normalized key.
func (i *Index) Path(nk string) string {
	return i.paths[nk]
}
