// Package schema models the target marketplace attribute schema of a
// category and the providers that supply it.
package schema

import (
	"encoding/json"
	"strings"
)

// ValueType is the declared shape of an attribute value.
type ValueType string

// Value types. Marketplace spellings are canonical.
const (
	NumberUnit ValueType = "number_unit"
	List       ValueType = "list"
	String     ValueType = "string"
)

// ParseValueType maps marketplace and descriptive spellings onto the
// canonical value types. Anything else is returned as is.
func ParseValueType(s string) ValueType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "number_unit", "number-unit", "struct-number-unit", "struct_number_unit":
		return NumberUnit
	case "list", "enumerated-list", "enumerated_list", "enum":
		return List
	case "string", "free-text", "free_text", "text":
		return String
	}
	return ValueType(strings.TrimSpace(s))
}

// Attribute is one target attribute of a category.
type Attribute struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	ValueType ValueType `json:"value_type" yaml:"value_type"`
	// Values maps lowercased enumeration names to value ids.
	Values       map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
	AllowedUnits []string          `json:"allowed_units,omitempty" yaml:"allowed_units,omitempty"`
	Required     bool              `json:"required,omitempty" yaml:"required,omitempty"`
}

// LookupValue returns the enumeration id for name, compared lowercased.
func (a Attribute) LookupValue(name string) (string, bool) {
	id, ok := a.Values[strings.ToLower(name)]
	return id, ok
}

// DefaultUnit returns the first allowed unit, if any.
func (a Attribute) DefaultUnit() (string, bool) {
	if len(a.AllowedUnits) == 0 {
		return "", false
	}
	return a.AllowedUnits[0], true
}

// Schema is an ordered, immutable set of attributes.
type Schema struct {
	attrs []Attribute
	index map[string]int
}

// New builds a schema. Later duplicates of an id replace earlier ones in
// place.
func New(attrs ...Attribute) *Schema {
	s := &Schema{index: make(map[string]int, len(attrs))}
	for _, a := range attrs {
		if a.ID == "" {
			continue
		}
		if a.Values == nil {
			a.Values = map[string]string{}
		}
		if i, ok := s.index[a.ID]; ok {
			s.attrs[i] = a
			continue
		}
		s.index[a.ID] = len(s.attrs)
		s.attrs = append(s.attrs, a)
	}
	return s
}

// Empty returns a schema with no attributes.
func Empty() *Schema {
	return New()
}

// Get returns the attribute with the given id.
func (s *Schema) Get(id string) (Attribute, bool) {
	if s == nil {
		return Attribute{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Attribute{}, false
	}
	return s.attrs[i], true
}

// Has reports whether the schema declares id.
func (s *Schema) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// IDs returns attribute ids in schema order.
func (s *Schema) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		ids[i] = a.ID
	}
	return ids
}

// Attributes returns a copy of the attributes in schema order.
func (s *Schema) Attributes() []Attribute {
	if s == nil {
		return nil
	}
	out := make([]Attribute, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Len returns the number of attributes.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.attrs)
}

// MarshalJSON encodes the schema as an attribute array.
func (s *Schema) MarshalJSON() ([]byte, error) {
	attrs := s.Attributes()
	if attrs == nil {
		attrs = []Attribute{}
	}
	return json.Marshal(attrs)
}

// UnmarshalJSON accepts any form understood by Decode.
func (s *Schema) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}
