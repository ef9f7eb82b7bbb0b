// Package equivalence persists learned aliases per target attribute id.
//
// The cache grows across runs: whenever the suggestion provider proposes
// aliases for unresolved attributes, they are merged in and saved, so later
// runs for the same category resolve those attributes without asking again.
// On disk the cache is a JSON object of the form
//
//	{"COLOR": ["colour", "attributes.colour[0].value"]}
package equivalence

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/agentstation/attrmap/pkg/alias"
	"github.com/agentstation/attrmap/pkg/errors"
)

// Cache maps attribute ids to their learned aliases.
type Cache map[string][]string

// Has reports whether id has an entry, even an empty one.
func (c Cache) Has(id string) bool {
	_, ok := c[id]
	return ok
}

// Aliases returns the learned aliases of id as a Bag.
func (c Cache) Aliases(id string) (alias.Bag, bool) {
	v, ok := c[id]
	if !ok {
		return nil, false
	}
	return alias.NewBag(v), true
}

// Merge overwrites c's entries with every entry of other and returns the
// ids that were written, sorted.
func (c Cache) Merge(other Cache) []string {
	ids := make([]string, 0, len(other))
	for id, aliases := range other {
		c[id] = append([]string(nil), aliases...)
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy.
func (c Cache) Clone() Cache {
	out := make(Cache, len(c))
	for id, aliases := range c {
		out[id] = append([]string(nil), aliases...)
	}
	return out
}

// IDs returns the cached attribute ids, sorted.
func (c Cache) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Decode parses a persisted cache. Entries may be a single alias or a list;
// non-string aliases are dropped.
func Decode(data []byte) (Cache, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Cache{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Cache{}, errors.WrapParse("json", "", err)
	}
	c := make(Cache, len(raw))
	for id, v := range raw {
		c[id] = []string(alias.NewBag(v))
		if c[id] == nil {
			c[id] = []string{}
		}
	}
	return c, nil
}

// Encode renders c as indented JSON with sorted ids.
func Encode(c Cache) ([]byte, error) {
	if c == nil {
		c = Cache{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return buf.Bytes(), nil
}
