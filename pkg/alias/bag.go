package alias

import (
	"sort"

	"github.com/goccy/go-yaml"
)

// Bag is an ordered, de-duplicated list of aliases.
type Bag []string

// NewBag converts an alias source into a Bag.
//
// Accepted sources are a single string, a list of strings, a list of
// arbitrary values, a map whose values are aliases or alias lists, or an
// ordered yaml.MapSlice of the same. Non-string entries are dropped. Plain
// maps contribute their values in sorted key order.
func NewBag(src any) Bag {
	var b Bag
	seen := make(map[string]struct{})
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		b = append(b, s)
	}

	var collect func(v any, nested bool)
	collect = func(v any, nested bool) {
		switch x := v.(type) {
		case string:
			add(x)
		case Bag:
			for _, s := range x {
				add(s)
			}
		case []string:
			for _, s := range x {
				add(s)
			}
		case []any:
			for _, item := range x {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case map[string]any:
			if nested {
				return
			}
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				collect(x[k], true)
			}
		case map[string][]string:
			if nested {
				return
			}
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				collect(x[k], true)
			}
		case yaml.MapSlice:
			if nested {
				return
			}
			for _, item := range x {
				collect(item.Value, true)
			}
		}
	}
	collect(src, false)
	return b
}

// Contains reports whether the bag holds alias a verbatim.
func (b Bag) Contains(a string) bool {
	for _, s := range b {
		if s == a {
			return true
		}
	}
	return false
}
