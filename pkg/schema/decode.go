package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/flatten"
)

// apiAttribute is the marketplace attribute wire format. Values and units
// also accept the compact spellings so encoded schemas decode again.
type apiAttribute struct {
	ID string `json:"id"`
	compactAttribute
	Tags map[string]any `json:"tags"`
}

// compactAttribute is the {id: {...}} shorthand used in files and tests.
type compactAttribute struct {
	Name         string `json:"name"`
	ValueType    string `json:"value_type"`
	Values       any    `json:"values"`
	AllowedUnits []any  `json:"allowed_units"`
	Required     bool   `json:"required"`
}

// Decode parses a schema from JSON or YAML. Two forms are accepted:
//
//   - the marketplace attribute array,
//     [{"id", "value_type", "values": [{"id", "name"}], "allowed_units": [{"id"}]}]
//   - a compact object keyed by attribute id,
//     {"COLOR": {"value_type": "list", "values": {"red": "123"}, "allowed_units": ["cm"]}}
//
// Attribute order follows the document. Enumeration names are lowercased.
func Decode(data []byte) (*Schema, error) {
	doc, err := flatten.Decode(data)
	if err != nil {
		return nil, err
	}

	switch v := doc.(type) {
	case []any:
		attrs := make([]Attribute, 0, len(v))
		for _, item := range v {
			var raw apiAttribute
			if err := remarshal(item, &raw); err != nil {
				return nil, errors.WrapParse("json", "schema", err)
			}
			if raw.ID == "" {
				continue
			}
			attrs = append(attrs, fromAPI(raw))
		}
		return New(attrs...), nil
	case yaml.MapSlice:
		attrs := make([]Attribute, 0, len(v))
		for _, item := range v {
			var raw compactAttribute
			if err := remarshal(item.Value, &raw); err != nil {
				return nil, errors.WrapParse("json", "schema", err)
			}
			attrs = append(attrs, fromCompact(fmt.Sprint(item.Key), raw))
		}
		return New(attrs...), nil
	case nil:
		return Empty(), nil
	}
	return nil, errors.NewParseError("json", "schema", fmt.Sprintf("unexpected top-level %T", doc), nil)
}

func fromAPI(raw apiAttribute) Attribute {
	a := fromCompact(raw.ID, raw.compactAttribute)
	if req, ok := raw.Tags["required"].(bool); ok {
		a.Required = a.Required || req
	}
	return a
}

func fromCompact(id string, raw compactAttribute) Attribute {
	a := Attribute{
		ID:        id,
		Name:      raw.Name,
		ValueType: ParseValueType(raw.ValueType),
		Values:    make(map[string]string),
		Required:  raw.Required,
	}
	switch values := raw.Values.(type) {
	case map[string]any:
		for name, v := range values {
			if vid := idString(v); vid != "" {
				a.Values[strings.ToLower(name)] = vid
			}
		}
	case []any:
		for _, item := range values {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			if vid := idString(m["id"]); vid != "" {
				a.Values[strings.ToLower(name)] = vid
			}
		}
	}
	for _, u := range raw.AllowedUnits {
		switch x := u.(type) {
		case string:
			a.AllowedUnits = append(a.AllowedUnits, x)
		case map[string]any:
			if s := idString(x["id"]); s != "" {
				a.AllowedUnits = append(a.AllowedUnits, s)
			}
		}
	}
	return a
}

// idString renders string and numeric ids.
func idString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return fmt.Sprintf("%.0f", x)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// remarshal converts a decoded ordered document into a struct.
func remarshal(v any, target any) error {
	data, err := json.Marshal(plain(v))
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	return dec.Decode(target)
}

// plain turns yaml.MapSlice trees into map[string]any trees.
func plain(v any) any {
	switch x := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(x))
		for _, item := range x {
			m[fmt.Sprint(item.Key)] = plain(item.Value)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item)
		}
		return out
	}
	return v
}
