package identifiers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap/pkg/flatten"
	"github.com/agentstation/attrmap/pkg/identifiers"
)

func mustFlatten(t *testing.T, doc string) *flatten.Record {
	t.Helper()
	rec, err := flatten.FlattenBytes([]byte(doc))
	require.NoError(t, err)
	return rec
}

func TestPrimary(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
		ok   bool
	}{
		{"top level", `{"asin": "B00TEST123"}`, "B00TEST123", true},
		{"nested suffix", `{"summaries": [{"marketplace": "x"}], "identifiers": {"ASIN": "B0NESTED"}}`, "B0NESTED", true},
		{"first wins", `{"parent": {"asin": "B0FIRST"}, "asin": "B0SECOND"}`, "B0FIRST", true},
		{"not a segment", `{"basin": "nope"}`, "", false},
		{"absent", `{"brand": "Acme"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := identifiers.Primary(mustFlatten(t, tt.doc))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

const identifierDoc = `{
	"attributes": {
		"externally_assigned_product_identifier": [
			{"type": "ean", "value": "0 012345-678905"},
			{"type": "upc", "value": "012345678905"},
			{"type": "isbn", "value": "123"},
			{"type": "gtin", "value": "00098765432109"}
		]
	}
}`

func TestProductCodes(t *testing.T) {
	codes := identifiers.ProductCodes(mustFlatten(t, identifierDoc), identifiers.Options{})
	assert.Equal(t, []string{"0012345678905", "012345678905", "00098765432109"}, codes)

	first, ok := identifiers.FirstProductCode(mustFlatten(t, identifierDoc), identifiers.Options{})
	require.True(t, ok)
	assert.Equal(t, "0012345678905", first)
}

func TestProductCodesValueScan(t *testing.T) {
	rec := mustFlatten(t, `{"description": "UPC 012345678905, model 12", "ean": "4006381333931"}`)

	assert.Empty(t, identifiers.ProductCodes(rec, identifiers.Options{}))
	assert.Equal(t,
		[]string{"012345678905", "4006381333931"},
		identifiers.ProductCodes(rec, identifiers.Options{ValueScan: true}),
	)
}

func TestProductCodesLengthBounds(t *testing.T) {
	rec := flatten.New()
	rec.Set("a.externally_assigned_product_identifier[0].value", "1234567")
	rec.Set("a.externally_assigned_product_identifier[1].value", "12345678")
	rec.Set("a.externally_assigned_product_identifier[2].value", "12345678901234")
	rec.Set("a.externally_assigned_product_identifier[3].value", "123456789012345")

	assert.Equal(t, []string{"12345678", "12345678901234"}, identifiers.ProductCodes(rec, identifiers.Options{}))
}
