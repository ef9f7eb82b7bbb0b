// Package identifiers resolves the primary product identifier and
// GTIN-like product codes from a flattened document.
package identifiers

import (
	"regexp"
	"strings"

	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/flatten"
)

// Target attribute ids fed by this package.
const (
	PrimaryAttributeID = "SELLER_SKU"
	CodeAttributeID    = "GTIN"
)

const (
	primaryMarker = "asin"
	codeArray     = "externally_assigned_product_identifier"
)

var (
	nonDigits = regexp.MustCompile(`\D`)
	codeToken = regexp.MustCompile(`\b\d{8,14}\b`)
)

// Options tune product code extraction.
type Options struct {
	// ValueScan searches every value for bare 8 to 14 digit tokens when
	// no identifier array is present.
	ValueScan bool
}

// Primary returns the value of the first key, in insertion order, that is
// the identifier marker or ends with it as a path segment.
func Primary(rec *flatten.Record) (string, bool) {
	var (
		found string
		ok    bool
	)
	rec.Each(func(key, value string) bool {
		if key == primaryMarker || strings.HasSuffix(key, "."+primaryMarker) {
			found, ok = value, true
			return false
		}
		return true
	})
	return found, ok
}

// ProductCodes returns distinct product codes in first-seen order.
func ProductCodes(rec *flatten.Record, opts Options) []string {
	var codes []string
	seen := make(map[string]struct{})
	add := func(code string) {
		if !validLength(code) {
			return
		}
		if _, dup := seen[code]; dup {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	rec.Each(func(key, value string) bool {
		if strings.Contains(key, codeArray) && strings.HasSuffix(key, ".value") {
			add(nonDigits.ReplaceAllString(value, ""))
		}
		return true
	})

	if len(codes) == 0 && opts.ValueScan {
		rec.Each(func(_, value string) bool {
			for _, tok := range codeToken.FindAllString(value, -1) {
				add(tok)
			}
			return true
		})
	}
	return codes
}

// FirstProductCode applies the single-value policy: only the first
// surviving code is emitted.
func FirstProductCode(rec *flatten.Record, opts Options) (string, bool) {
	codes := ProductCodes(rec, opts)
	if len(codes) == 0 {
		return "", false
	}
	return codes[0], true
}

func validLength(code string) bool {
	return len(code) >= constants.MinProductCodeDigits && len(code) <= constants.MaxProductCodeDigits
}
