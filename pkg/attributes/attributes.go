// Package attributes builds the target attribute set of a category from a
// source product document.
//
// A build flattens the document, resolves identifiers and package
// dimensions directly, then walks the category schema resolving each
// remaining attribute through static aliases, the learned equivalence
// cache and, for ids the cache has never seen, a suggestion provider.
// Resolved values are coerced into the shape the schema declares.
package attributes

import (
	"github.com/agentstation/attrmap/pkg/dimensions"
	"github.com/agentstation/attrmap/pkg/equivalence"
)

// Source tells where a resolved value came from.
type Source string

// Resolution sources.
const (
	SourceIdentifier Source = "identifier"
	SourceDimension  Source = "dimension"
	SourceStatic     Source = "static"
	SourceCache      Source = "cache"
	SourceLearned    Source = "learned"
)

// Resolution is one resolved attribute before coercion.
type Resolution struct {
	ID     string `json:"id" yaml:"id"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Source Source `json:"source" yaml:"source"`
	// Key is the flattened document path the value was read from.
	Key   string  `json:"key,omitempty" yaml:"key,omitempty"`
	Alias string  `json:"alias,omitempty" yaml:"alias,omitempty"`
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`
	// Dimension is set for values that are already a number and unit.
	Dimension *dimensions.Dimension `json:"dimension,omitempty" yaml:"dimension,omitempty"`
}

// ValueStruct is a numeric attribute value with its unit.
type ValueStruct struct {
	Number float64 `json:"number" yaml:"number"`
	Unit   string  `json:"unit" yaml:"unit"`
}

// Attribute is one output attribute. Exactly one of ValueStruct, ValueID
// and ValueName is set.
type Attribute struct {
	ID          string       `json:"id" yaml:"id"`
	ValueStruct *ValueStruct `json:"value_struct,omitempty" yaml:"value_struct,omitempty"`
	ValueID     string       `json:"value_id,omitempty" yaml:"value_id,omitempty"`
	ValueName   string       `json:"value_name,omitempty" yaml:"value_name,omitempty"`
}

// Kind names the populated value field.
func (a Attribute) Kind() string {
	switch {
	case a.ValueStruct != nil:
		return "value_struct"
	case a.ValueID != "":
		return "value_id"
	default:
		return "value_name"
	}
}

// Value renders the populated value for display.
func (a Attribute) Value() string {
	switch {
	case a.ValueStruct != nil:
		return dimensions.Dimension{Number: a.ValueStruct.Number, Unit: a.ValueStruct.Unit}.String()
	case a.ValueID != "":
		return a.ValueID
	default:
		return a.ValueName
	}
}

// Stats counts resolution outcomes of one build.
type Stats struct {
	// Direct counts identifier, dimension and static alias resolutions.
	Direct  int `json:"direct" yaml:"direct"`
	Reused  int `json:"reused" yaml:"reused"`
	Learned int `json:"learned" yaml:"learned"`
	Missing int `json:"missing" yaml:"missing"`
}

// Result is the outcome of one build. Unresolved schema attributes are
// listed in Missing, never dropped silently.
type Result struct {
	RunID      string       `json:"run_id" yaml:"run_id"`
	CategoryID string       `json:"category_id" yaml:"category_id"`
	Attributes []Attribute  `json:"attributes" yaml:"attributes"`
	Missing    []string     `json:"missing" yaml:"missing"`
	Matched    []Resolution `json:"matched" yaml:"matched"`
	// Package is set only when all four package measurements resolved.
	Package      *dimensions.Summary `json:"package,omitempty" yaml:"package,omitempty"`
	PrimaryID    string              `json:"primary_id,omitempty" yaml:"primary_id,omitempty"`
	ProductCodes []string            `json:"product_codes,omitempty" yaml:"product_codes,omitempty"`
	Learned      equivalence.Cache   `json:"learned,omitempty" yaml:"learned,omitempty"`
	Persisted    bool                `json:"persisted,omitempty" yaml:"persisted,omitempty"`
	Stats        Stats               `json:"stats" yaml:"stats"`
}

// Resolved returns the resolution of id, if any.
func (r *Result) Resolved(id string) (Resolution, bool) {
	for _, m := range r.Matched {
		if m.ID == id {
			return m, true
		}
	}
	return Resolution{}, false
}

// Attribute returns the output attribute with the given id.
func (r *Result) Attribute(id string) (Attribute, bool) {
	for _, a := range r.Attributes {
		if a.ID == id {
			return a, true
		}
	}
	return Attribute{}, false
}
