// Package dimensions resolves the length, width, height and weight of the
// outer shipping package from a flattened product document.
//
// Resolution is ordered and the first success wins:
//
//  1. Structured probe over known package path prefixes, reading the
//     "<prefix>.<kind>.value" number and its companion unit, converted to
//     the canonical unit.
//  2. Explicit package keys such as "box_length" or "gross_weight". A unit
//     stored beside a ".value" key is honored, otherwise the number is
//     assumed canonical.
//  3. Any key naming the kind together with a packaging marker
//     ("package", "shipping", "outer", "carton"), also assumed canonical.
//
// Item dimensions are never consulted. Every resolved Dimension is in
// centimeters (length, width, height) or kilograms (weight).
package dimensions

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap/pkg/alias"
	"github.com/agentstation/attrmap/pkg/flatten"
	"github.com/agentstation/attrmap/pkg/logging"
	"github.com/agentstation/attrmap/pkg/units"
)

// Kind is a package measurement.
type Kind string

// Package measurement kinds.
const (
	Length Kind = "length"
	Width  Kind = "width"
	Height Kind = "height"
	Weight Kind = "weight"
)

// Kinds lists every measurement in output order.
var Kinds = []Kind{Length, Width, Height, Weight}

// Canonical returns the unit every resolved value of k is expressed in.
func (k Kind) Canonical() string {
	if k == Weight {
		return units.Kilogram
	}
	return units.Centimeter
}

// AttributeID returns the target attribute id that carries k.
func (k Kind) AttributeID() string {
	return "SELLER_PACKAGE_" + strings.ToUpper(string(k))
}

// places is the rounding precision for k.
func (k Kind) places() int {
	if k == Weight {
		return 3
	}
	return 2
}

// measure reads the number embedded in raw and converts it from unit to the
// canonical unit of k. A raw value without a number yields no dimension.
func (k Kind) measure(raw, unit string) (Dimension, bool) {
	var num *float64
	if v, ok := units.ExtractNumber(raw); ok {
		num = &v
	}
	if unit == "" {
		unit = k.Canonical()
	}
	conv := units.CentimetersOf
	if k == Weight {
		conv = units.KilogramsOf
	}
	v := conv(num, unit)
	if v == nil {
		return Dimension{}, false
	}
	return Dimension{Number: units.Round(*v, k.places()), Unit: k.Canonical()}, true
}

// Dimension is a resolved package measurement in its canonical unit.
type Dimension struct {
	Number float64 `json:"number" yaml:"number"`
	Unit   string  `json:"unit" yaml:"unit"`
}

// String renders the dimension as "30.48 cm".
func (d Dimension) String() string {
	return fmt.Sprintf("%g %s", d.Number, d.Unit)
}

// structuredPrefixes are the nested package paths probed first.
var structuredPrefixes = []string{
	"attributes.item_package_dimensions[0]",
	"item_package_dimensions[0]",
	"item_package_dimensions",
	"package_dimensions[0]",
	"package_dimensions",
	"shipping_dimensions",
	"outer_package_dimensions",
}

// packageKeys are explicit package measurement fields, probed after the
// structured prefixes.
var packageKeys = map[Kind][]string{
	Length: {
		"attributes.item_package_dimensions[0].length.value",
		"package_dimensions.length", "item_package_length", "package_length",
		"shipping_dimensions.length", "outer_dimensions.length", "outer_carton_dimensions.length",
		"outer_package_length", "box_length", "parcel_length",
	},
	Width: {
		"attributes.item_package_dimensions[0].width.value",
		"package_dimensions.width", "item_package_width", "package_width",
		"shipping_dimensions.width", "outer_dimensions.width", "outer_carton_dimensions.width",
		"outer_package_width", "box_width", "parcel_width",
	},
	Height: {
		"attributes.item_package_dimensions[0].height.value",
		"package_dimensions.height", "item_package_height", "package_height",
		"shipping_dimensions.height", "outer_dimensions.height", "outer_carton_dimensions.height",
		"outer_package_height", "box_height", "parcel_height",
	},
	Weight: {
		"attributes.item_package_weight[0].value",
		"item_package_weight", "package_weight", "shipping_weight",
		"package_dimensions.weight", "outer_package_weight", "carton_weight",
		"gross_weight", "boxed_weight", "parcel_weight",
	},
}

// markers identify keys that describe the shipping package.
var markers = []string{"package", "shipping", "outer", "carton"}

// Extract resolves kind from rec. A miss is logged at warn level.
func Extract(rec *flatten.Record, kind Kind, logger *zerolog.Logger) (Dimension, bool) {
	return ExtractIndexed(alias.NewIndex(rec), kind, logger)
}

// ExtractIndexed is Extract over a prebuilt index.
func ExtractIndexed(idx *alias.Index, kind Kind, logger *zerolog.Logger) (Dimension, bool) {
	logger = logging.OrNop(logger)

	if d, key, ok := structured(idx, kind); ok {
		logger.Debug().Str("kind", string(kind)).Str("key", key).Str("strategy", "structured").Msg("Package dimension resolved")
		return d, true
	}
	if d, key, ok := explicit(idx, kind); ok {
		logger.Debug().Str("kind", string(kind)).Str("key", key).Str("strategy", "explicit").Msg("Package dimension resolved")
		return d, true
	}
	if d, key, ok := generic(idx, kind); ok {
		logger.Debug().Str("kind", string(kind)).Str("key", key).Str("strategy", "generic").Msg("Package dimension resolved")
		return d, true
	}

	logger.Warn().Str("kind", string(kind)).Msg("Package dimension not found")
	return Dimension{}, false
}

// ExtractAll resolves every kind that can be found.
func ExtractAll(rec *flatten.Record, logger *zerolog.Logger) map[Kind]Dimension {
	idx := alias.NewIndex(rec)
	out := make(map[Kind]Dimension, len(Kinds))
	for _, k := range Kinds {
		if d, ok := ExtractIndexed(idx, k, logger); ok {
			out[k] = d
		}
	}
	return out
}

func structured(idx *alias.Index, kind Kind) (Dimension, string, bool) {
	for _, prefix := range structuredPrefixes {
		base := prefix + "." + string(kind)
		key, raw, ok := firstContaining(idx, alias.NormalizeKey(base+".value"), true)
		if !ok {
			continue
		}
		if d, ok := kind.measure(raw, companionUnit(idx, base)); ok {
			return d, key, true
		}
	}
	return Dimension{}, "", false
}

// companionUnit prefers the unit stored beside the value, then any other
// known prefix.
func companionUnit(idx *alias.Index, base string) string {
	if _, raw, ok := firstContaining(idx, alias.NormalizeKey(base+".unit"), false); ok {
		return strings.TrimSpace(raw)
	}
	kind := base[strings.LastIndex(base, ".")+1:]
	for _, prefix := range structuredPrefixes {
		if _, raw, ok := firstContaining(idx, alias.NormalizeKey(prefix+"."+kind+".unit"), false); ok {
			return strings.TrimSpace(raw)
		}
	}
	return ""
}

func explicit(idx *alias.Index, kind Kind) (Dimension, string, bool) {
	for _, candidate := range packageKeys[kind] {
		key, raw, ok := firstContaining(idx, alias.NormalizeKey(candidate), true)
		if !ok {
			continue
		}
		unit, _ := siblingUnit(idx, key)
		if d, ok := kind.measure(raw, unit); ok {
			return d, key, true
		}
	}
	return Dimension{}, "", false
}

// siblingUnit reads "<path>.unit" for a "<path>.value" key.
func siblingUnit(idx *alias.Index, key string) (string, bool) {
	base, ok := strings.CutSuffix(key, ".value")
	if !ok {
		return "", false
	}
	raw, ok := idx.Get(alias.NormalizeKey(base + ".unit"))
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

func generic(idx *alias.Index, kind Kind) (Dimension, string, bool) {
	token := string(kind)
	for _, nk := range idx.Keys() {
		if !strings.Contains(nk, token) || !hasMarker(nk) {
			continue
		}
		raw, _ := idx.Get(nk)
		if d, ok := kind.measure(raw, ""); ok {
			return d, idx.Path(nk), true
		}
	}
	return Dimension{}, "", false
}

func hasMarker(nk string) bool {
	for _, m := range markers {
		if strings.Contains(nk, m) {
			return true
		}
	}
	return false
}

// firstContaining returns the first key, in insertion order, that contains
// the normalized candidate. With numeric set, keys whose value carries no
// number are skipped.
func firstContaining(idx *alias.Index, candidate string, numeric bool) (string, string, bool) {
	for _, nk := range idx.Keys() {
		if !strings.Contains(nk, candidate) {
			continue
		}
		raw, _ := idx.Get(nk)
		if numeric {
			if _, ok := units.ExtractNumber(raw); !ok {
				continue
			}
		}
		return idx.Path(nk), raw, true
	}
	return "", "", false
}
