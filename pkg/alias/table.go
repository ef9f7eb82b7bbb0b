package alias

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/attrmap/internal/embedded"
	"github.com/agentstation/attrmap/pkg/errors"
)

// Table maps target attribute ids to their static aliases, keeping the
// order in which ids were declared.
type Table struct {
	ids  []string
	bags map[string]Bag
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{bags: make(map[string]Bag)}
}

// TableFrom builds a table from a plain map. Ids are not ordered.
func TableFrom(m map[string][]string) *Table {
	t := NewTable()
	for id, aliases := range m {
		t.Set(id, NewBag(aliases))
	}
	return t
}

// Set replaces the aliases of id.
func (t *Table) Set(id string, b Bag) {
	if t.bags == nil {
		t.bags = make(map[string]Bag)
	}
	if _, ok := t.bags[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.bags[id] = b
}

// Get returns the aliases declared for id.
func (t *Table) Get(id string) (Bag, bool) {
	if t == nil {
		return nil, false
	}
	b, ok := t.bags[id]
	return b, ok
}

// IDs returns attribute ids in declaration order.
func (t *Table) IDs() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// Len returns the number of attribute ids.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.ids)
}

// Merge overlays other onto t. Ids present in both take other's aliases.
func (t *Table) Merge(other *Table) {
	for _, id := range other.IDs() {
		b, _ := other.Get(id)
		t.Set(id, b)
	}
}

// ParseTable decodes a YAML or JSON alias table of the form
// {ATTRIBUTE_ID: [alias, ...]}.
func ParseTable(data []byte) (*Table, error) {
	var raw yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.UseOrderedMap()); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	t := NewTable()
	for _, item := range raw {
		id := fmt.Sprint(item.Key)
		t.Set(id, NewBag(item.Value))
	}
	return t, nil
}

// LoadTable reads an alias table file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, &errors.ParseError{Format: "yaml", File: path, Message: err.Error(), Err: err}
	}
	return t, nil
}

// DefaultTable returns the built-in base alias table.
func DefaultTable() *Table {
	data, err := embedded.FS.ReadFile(embedded.BaseAliasesPath)
	if err != nil {
		panic(fmt.Sprintf("alias: embedded base table missing: %v", err))
	}
	t, err := ParseTable(data)
	if err != nil {
		panic(fmt.Sprintf("alias: embedded base table invalid: %v", err))
	}
	return t
}
