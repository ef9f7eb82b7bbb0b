package attributes

import (
	"maps"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/attrmap/pkg/dimensions"
	"github.com/agentstation/attrmap/pkg/schema"
	"github.com/agentstation/attrmap/pkg/units"
)

// Coerce shapes a resolution into the value form declared by attr.
//
//   - a resolved number and unit passes through as a value struct
//   - number_unit reads the leading number and a unit token, falling back
//     to the first allowed unit or cm, and converts weights to kg and
//     length, width and height to cm
//   - list looks the lowercased value up in the enumeration, emitting the
//     value id on a hit and the text otherwise
//   - anything else is free text
//
// A number_unit value without any number degrades to free text.
func Coerce(attr schema.Attribute, r Resolution) Attribute {
	out := Attribute{ID: r.ID}

	if r.Dimension != nil {
		out.ValueStruct = &ValueStruct{Number: r.Dimension.Number, Unit: r.Dimension.Unit}
		return out
	}

	switch attr.ValueType {
	case schema.NumberUnit:
		if vs, ok := numberUnit(attr, r.ID, r.Value); ok {
			out.ValueStruct = vs
			return out
		}
	case schema.List:
		if id, ok := lookupValue(attr, r.Value); ok {
			out.ValueID = id
			return out
		}
	}
	out.ValueName = r.Value
	return out
}

func numberUnit(attr schema.Attribute, id, raw string) (*ValueStruct, bool) {
	num, ok := units.ExtractNumber(raw)
	if !ok {
		return nil, false
	}
	unit, ok := units.DetectUnit(raw)
	if !ok {
		unit = units.Centimeter
		if u, has := attr.DefaultUnit(); has && u != "" {
			unit = u
		}
	}

	switch kind, ok := measuredKind(id); {
	case ok && kind == dimensions.Weight:
		num = units.Round(units.ToKilograms(num, unit), 3)
		unit = units.Kilogram
	case ok:
		num = units.Round(units.ToCentimeters(num, unit), 2)
		unit = units.Centimeter
	}
	return &ValueStruct{Number: num, Unit: unit}, true
}

// measuredKind infers the measurement an attribute id denotes.
func measuredKind(id string) (dimensions.Kind, bool) {
	id = strings.ToUpper(id)
	switch {
	case strings.Contains(id, "WEIGHT"):
		return dimensions.Weight, true
	case strings.HasSuffix(id, "LENGTH"):
		return dimensions.Length, true
	case strings.HasSuffix(id, "WIDTH"):
		return dimensions.Width, true
	case strings.HasSuffix(id, "HEIGHT"):
		return dimensions.Height, true
	}
	return "", false
}

// lookupValue matches the lowercased value, then retries with accents
// folded on both sides.
func lookupValue(attr schema.Attribute, value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if id, ok := attr.Values[v]; ok {
		return id, true
	}
	folded := fold(v)
	for _, name := range slices.Sorted(maps.Keys(attr.Values)) {
		if fold(name) == folded {
			return attr.Values[name], true
		}
	}
	return "", false
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
