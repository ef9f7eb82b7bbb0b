// Package units canonicalizes length and mass unit tokens and converts
// values into centimeters and kilograms.
//
// Conversions run on decimal arithmetic so that factors such as 2.54 and
// 0.45359237 are applied exactly before the result is handed back as a
// float64.
package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Canonical unit codes.
const (
	Millimeter = "mm"
	Centimeter = "cm"
	Meter      = "m"
	Inch       = "in"
	Gram       = "g"
	Kilogram   = "kg"
	Pound      = "lb"
	Ounce      = "oz"
)

var aliases = map[string]string{
	"centimeters": Centimeter, "centimeter": Centimeter, "centimetres": Centimeter, "centimetre": Centimeter, "cm": Centimeter,
	"millimeters": Millimeter, "millimeter": Millimeter, "millimetres": Millimeter, "millimetre": Millimeter, "mm": Millimeter,
	"meters": Meter, "meter": Meter, "metres": Meter, "metre": Meter, "m": Meter,
	"inches": Inch, "inch": Inch, "in": Inch,
	"kilograms": Kilogram, "kilogram": Kilogram, "kg": Kilogram,
	"grams": Gram, "gram": Gram, "g": Gram,
	"pounds": Pound, "pound": Pound, "lb": Pound, "lbs": Pound,
	"ounces": Ounce, "ounce": Ounce, "oz": Ounce,
}

type factor struct {
	op    string // "mul" or "div"
	value string
}

var toCM = map[string]factor{
	Millimeter: {"div", "10"},
	Meter:      {"mul", "100"},
	Inch:       {"mul", "2.54"},
}

var toKG = map[string]factor{
	Gram:  {"div", "1000"},
	Pound: {"mul", "0.45359237"},
	Ounce: {"mul", "0.028349523125"},
}

var (
	numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)
	// unitPattern matches whole unit words only: "10cm" reads as cm,
	// "centimeters" never as m.
	unitPattern = regexp.MustCompile(`(?:^|[^a-z])(` +
		`centimet(?:er|re)s?|millimet(?:er|re)s?|met(?:er|re)s?|inch(?:es)?|` +
		`kilograms?|grams?|pounds?|lbs?|ounces?|` +
		`cm|mm|kg|g|m|in|lb|oz)(?:[^a-z]|$)`)
)

// Normalize maps a verbose unit token to its canonical code.
// Unrecognized tokens are returned trimmed and lowercased.
func Normalize(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if code, ok := aliases[u]; ok {
		return code
	}
	return u
}

// IsLength reports whether unit normalizes to a length code.
func IsLength(unit string) bool {
	switch Normalize(unit) {
	case Millimeter, Centimeter, Meter, Inch:
		return true
	}
	return false
}

// IsMass reports whether unit normalizes to a mass code.
func IsMass(unit string) bool {
	switch Normalize(unit) {
	case Gram, Kilogram, Pound, Ounce:
		return true
	}
	return false
}

// ToCentimeters converts value from unit to centimeters. Units that are not
// recognized lengths are treated as centimeters already.
func ToCentimeters(value float64, unit string) float64 {
	return convert(value, toCM[Normalize(unit)])
}

// ToKilograms converts value from unit to kilograms. Units that are not
// recognized masses are treated as kilograms already.
func ToKilograms(value float64, unit string) float64 {
	return convert(value, toKG[Normalize(unit)])
}

// CentimetersOf is ToCentimeters for an optional value; nil stays nil.
func CentimetersOf(value *float64, unit string) *float64 {
	if value == nil {
		return nil
	}
	v := ToCentimeters(*value, unit)
	return &v
}

// KilogramsOf is ToKilograms for an optional value; nil stays nil.
func KilogramsOf(value *float64, unit string) *float64 {
	if value == nil {
		return nil
	}
	v := ToKilograms(*value, unit)
	return &v
}

// ExtractNumber returns the first signed decimal number embedded in s.
func ExtractNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// DetectUnit returns the canonical code of the first unit word in s.
// Verbose forms such as "inches" or "kilograms" are normalized.
func DetectUnit(s string) (string, bool) {
	m := unitPattern.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return "", false
	}
	return Normalize(m[1]), true
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	var d, r apd.Decimal
	if _, err := d.SetFloat64(v); err != nil {
		return v
	}
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	if _, err := ctx.Quantize(&r, &d, -int32(places)); err != nil {
		return v
	}
	out, err := r.Float64()
	if err != nil {
		return v
	}
	return out
}

func convert(value float64, f factor) float64 {
	if f.value == "" || math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	var d, k, result apd.Decimal
	if _, err := d.SetFloat64(value); err != nil {
		return value
	}
	if _, _, err := k.SetString(f.value); err != nil {
		return value
	}
	ctx := apd.BaseContext.WithPrecision(34)
	var err error
	if f.op == "div" {
		_, err = ctx.Quo(&result, &d, &k)
	} else {
		_, err = ctx.Mul(&result, &d, &k)
	}
	if err != nil {
		return value
	}
	out, err := result.Float64()
	if err != nil {
		return value
	}
	return out
}
