package dimensions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap/pkg/dimensions"
	"github.com/agentstation/attrmap/pkg/flatten"
	"github.com/agentstation/attrmap/pkg/logging"
)

func mustFlatten(t *testing.T, doc string) *flatten.Record {
	t.Helper()
	rec, err := flatten.FlattenBytes([]byte(doc))
	require.NoError(t, err)
	return rec
}

func TestExtractStructured(t *testing.T) {
	rec := mustFlatten(t, `{"item_package_dimensions":{"length":{"value":"12","unit":"inches"}}}`)

	d, ok := dimensions.Extract(rec, dimensions.Length, nil)
	require.True(t, ok)
	assert.Equal(t, dimensions.Dimension{Number: 30.48, Unit: "cm"}, d)
}

func TestExtractStructuredAmazonShape(t *testing.T) {
	rec := mustFlatten(t, `{
		"attributes": {
			"item_dimensions": [{"length": {"value": 99, "unit": "inches"}}],
			"item_package_dimensions": [{
				"length": {"value": 10.5, "unit": "inches"},
				"width": {"value": 250, "unit": "millimeters"},
				"height": {"value": 4, "unit": "centimeters"}
			}],
			"item_package_weight": [{"value": 2, "unit": "pounds"}]
		}
	}`)

	dims := dimensions.ExtractAll(rec, nil)
	require.Len(t, dims, 4)
	assert.Equal(t, 26.67, dims[dimensions.Length].Number)
	assert.Equal(t, 25.0, dims[dimensions.Width].Number)
	assert.Equal(t, 4.0, dims[dimensions.Height].Number)
	assert.Equal(t, dimensions.Dimension{Number: 0.907, Unit: "kg"}, dims[dimensions.Weight])

	summary, ok := dimensions.Summarize(dims)
	require.True(t, ok)
	assert.Equal(t, &dimensions.Summary{LengthCM: 26.67, WidthCM: 25, HeightCM: 4, WeightKG: 0.907}, summary)
}

func TestExtractStructuredTopLevelArray(t *testing.T) {
	rec := mustFlatten(t, `{
		"item_package_dimensions": [{
			"length": {"value": 12, "unit": "inches"},
			"width": {"value": 100, "unit": "millimeters"}
		}],
		"package_dimensions": [{"weight": {"value": 500, "unit": "grams"}}]
	}`)

	dims := dimensions.ExtractAll(rec, nil)
	assert.Equal(t, dimensions.Dimension{Number: 30.48, Unit: "cm"}, dims[dimensions.Length])
	assert.Equal(t, dimensions.Dimension{Number: 10, Unit: "cm"}, dims[dimensions.Width])
	assert.Equal(t, dimensions.Dimension{Number: 0.5, Unit: "kg"}, dims[dimensions.Weight])
}

func TestExtractDefaultsToCanonicalUnit(t *testing.T) {
	rec := mustFlatten(t, `{"package_dimensions":{"weight":{"value":"1.23456"}}}`)

	d, ok := dimensions.Extract(rec, dimensions.Weight, nil)
	require.True(t, ok)
	assert.Equal(t, dimensions.Dimension{Number: 1.235, Unit: "kg"}, d)
}

func TestExtractExplicitKeys(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind dimensions.Kind
		want float64
	}{
		{"box length", `{"box_length": "22.456 cm"}`, dimensions.Length, 22.46},
		{"gross weight", `{"gross_weight": "3.5"}`, dimensions.Weight, 3.5},
		{"package weight with sibling unit", `{"item_package_weight": {"value": 16, "unit": "ounces"}}`, dimensions.Weight, 0.454},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := dimensions.Extract(mustFlatten(t, tt.doc), tt.kind, nil)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.Number)
			assert.Equal(t, tt.kind.Canonical(), d.Unit)
		})
	}
}

func TestExtractGenericMarkers(t *testing.T) {
	rec := mustFlatten(t, `{"carton": {"size": {"height_in_cm": "about 18"}}}`)

	d, ok := dimensions.Extract(rec, dimensions.Height, nil)
	require.True(t, ok)
	assert.Equal(t, dimensions.Dimension{Number: 18, Unit: "cm"}, d)
}

func TestExtractIgnoresItemDimensions(t *testing.T) {
	rec := mustFlatten(t, `{"attributes":{"item_dimensions":[{"width":{"value":5,"unit":"inches"}}]},"width":"12"}`)
	logger := logging.NewTestLogger(t)

	_, ok := dimensions.Extract(rec, dimensions.Width, logger.Logger)
	assert.False(t, ok)
	assert.True(t, logger.ContainsAll("Package dimension not found", `"kind":"width"`))
}

func TestResolvedUnitsAreCanonical(t *testing.T) {
	docs := []string{
		`{"package_dimensions":{"length":{"value":3,"unit":"m"},"weight":{"value":700,"unit":"g"}}}`,
		`{"shipping_dimensions":{"height":{"value":"2 ft","unit":"feet"}}}`,
		`{"outer_package_dimensions":{"width":{"value":1,"unit":"in"}}}`,
	}
	for _, doc := range docs {
		for kind, d := range dimensions.ExtractAll(mustFlatten(t, doc), nil) {
			assert.Equal(t, kind.Canonical(), d.Unit)
			assert.Contains(t, []string{"cm", "kg"}, d.Unit)
		}
	}
}

func TestSummarizeIncomplete(t *testing.T) {
	_, ok := dimensions.Summarize(map[dimensions.Kind]dimensions.Dimension{
		dimensions.Length: {Number: 1, Unit: "cm"},
	})
	assert.False(t, ok)
}

func TestKindAttributeID(t *testing.T) {
	assert.Equal(t, "SELLER_PACKAGE_WEIGHT", dimensions.Weight.AttributeID())
	assert.Equal(t, "kg", dimensions.Weight.Canonical())
	assert.Equal(t, "cm", dimensions.Height.Canonical())
	assert.Equal(t, "30.48 cm", dimensions.Dimension{Number: 30.48, Unit: "cm"}.String())
}
