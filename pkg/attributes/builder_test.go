package attributes_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap/pkg/alias"
	"github.com/agentstation/attrmap/pkg/attributes"
	"github.com/agentstation/attrmap/pkg/dimensions"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/flatten"
	"github.com/agentstation/attrmap/pkg/logging"
	"github.com/agentstation/attrmap/pkg/schema"
	"github.com/agentstation/attrmap/pkg/suggest"
)

func decode(t *testing.T, doc string) any {
	t.Helper()
	v, err := flatten.Decode([]byte(doc))
	require.NoError(t, err)
	return v
}

func mustSchema(t *testing.T, doc string) *schema.Schema {
	t.Helper()
	s, err := schema.Decode([]byte(doc))
	require.NoError(t, err)
	return s
}

type recorder struct {
	mu          sync.Mutex
	builds      []attributes.Stats
	suggestions int
	lastErr     error
}

func (r *recorder) ObserveBuild(_ string, stats attributes.Stats, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds = append(r.builds, stats)
}

func (r *recorder) ObserveSuggestion(_ string, _ int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suggestions++
	r.lastErr = err
}

func TestBuildBrandAndColor(t *testing.T) {
	b := attributes.NewBuilder(attributes.Options{
		BaseAliases: alias.TableFrom(map[string][]string{
			"BRAND": {"brand"},
			"COLOR": {"color"},
		}),
	})
	s := mustSchema(t, `{
		"BRAND": {"value_type": "free-text"},
		"COLOR": {"value_type": "enumerated-list", "values": {"red": "123"}}
	}`)

	res := b.Build(context.Background(), "CBT1157", decode(t, `{"brand":"Acme","color":"Red"}`), s)

	want := []attributes.Attribute{
		{ID: "BRAND", ValueName: "Acme"},
		{ID: "COLOR", ValueID: "123"},
	}
	if diff := cmp.Diff(want, res.Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, res.Missing)
	assert.Equal(t, attributes.Stats{Direct: 2}, res.Stats)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "CBT1157", res.CategoryID)
}

func TestBuildReportsMissing(t *testing.T) {
	rec := &recorder{}
	b := attributes.NewBuilder(attributes.Options{
		BaseAliases: alias.NewTable(),
		Recorder:    rec,
	})
	s := schema.New(schema.Attribute{ID: "X", ValueType: schema.String})

	res := b.Build(context.Background(), "CBT1", decode(t, `{"brand":"Acme"}`), s)

	assert.Equal(t, []string{"X"}, res.Missing)
	assert.Empty(t, res.Attributes)
	_, ok := res.Resolved("X")
	assert.False(t, ok)
	assert.Equal(t, 1, res.Stats.Missing)
	require.Len(t, rec.builds, 1)
	assert.Equal(t, res.Stats, rec.builds[0])
	assert.Zero(t, rec.suggestions)
}

func TestBuildIdentifiersAndPackage(t *testing.T) {
	doc := `{
		"asin": "B0TEST1234",
		"attributes": {
			"brand": [{"value": "Acme"}],
			"externally_assigned_product_identifier": [{"type": "ean", "value": "0012345678905"}],
			"item_package_dimensions": [{
				"length": {"value": 10.5, "unit": "inches"},
				"width": {"value": 250, "unit": "millimeters"},
				"height": {"value": 4, "unit": "centimeters"}
			}],
			"item_package_weight": [{"value": 2, "unit": "pounds"}]
		}
	}`
	b := attributes.NewBuilder(attributes.Options{
		BaseAliases: alias.TableFrom(map[string][]string{"BRAND": {"attributes.brand[0].value"}}),
	})
	s := mustSchema(t, `{
		"BRAND": {"value_type": "string"},
		"SELLER_PACKAGE_LENGTH": {"value_type": "number_unit", "allowed_units": ["cm"]}
	}`)

	res := b.Build(context.Background(), "CBT1157", decode(t, doc), s)

	want := []attributes.Attribute{
		{ID: "SELLER_SKU", ValueName: "B0TEST1234"},
		{ID: "GTIN", ValueName: "0012345678905"},
		{ID: "BRAND", ValueName: "Acme"},
		{ID: "SELLER_PACKAGE_LENGTH", ValueStruct: &attributes.ValueStruct{Number: 26.67, Unit: "cm"}},
	}
	if diff := cmp.Diff(want, res.Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, &dimensions.Summary{LengthCM: 26.67, WidthCM: 25, HeightCM: 4, WeightKG: 0.907}, res.Package)
	assert.Equal(t, "B0TEST1234", res.PrimaryID)
	assert.Equal(t, []string{"0012345678905"}, res.ProductCodes)
	assert.Equal(t, 7, res.Stats.Direct)

	weight, ok := res.Resolved("SELLER_PACKAGE_WEIGHT")
	require.True(t, ok)
	assert.Equal(t, attributes.SourceDimension, weight.Source)
	_, emitted := res.Attribute("SELLER_PACKAGE_WEIGHT")
	assert.False(t, emitted, "undeclared package dimensions stay in the summary only")
}

func TestBuildLearnsAndReusesEquivalences(t *testing.T) {
	ctx := context.Background()
	store := equivalence.NewFileStore(filepath.Join(t.TempDir(), "logs", "cache.json"))
	s := mustSchema(t, `{"COLOR": {"value_type": "list", "values": {"red": "52049"}}}`)

	var asked []string
	var preview string
	learner := attributes.NewBuilder(attributes.Options{
		BaseAliases: alias.NewTable(),
		Store:       store,
		Suggester: suggest.Func(func(_ context.Context, _ string, missing []string, p string) (equivalence.Cache, error) {
			asked = missing
			preview = p
			return equivalence.Cache{"COLOR": {"colour"}, "EXTRA": {"nothing"}}, nil
		}),
	})

	first := learner.Build(ctx, "CBT1157", decode(t, `{"colour":"Red"}`), s)
	assert.Equal(t, []string{"COLOR"}, asked)
	assert.Equal(t, "colour: Red", preview)
	assert.Empty(t, first.Missing)
	assert.True(t, first.Persisted)
	assert.Equal(t, 1, first.Stats.Learned)
	color, ok := first.Attribute("COLOR")
	require.True(t, ok)
	assert.Equal(t, "52049", color.ValueID)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"colour"}, persisted["COLOR"])
	assert.Contains(t, persisted, "EXTRA")

	// A later run without a suggester resolves from the cache alone.
	reuser := attributes.NewBuilder(attributes.Options{
		BaseAliases: alias.NewTable(),
		Store:       equivalence.NewFileStore(store.Path()),
	})
	second := reuser.Build(ctx, "CBT1157", decode(t, `{"colour":"red"}`), s)
	assert.Empty(t, second.Missing)
	assert.Equal(t, 1, second.Stats.Reused)
	r, ok := second.Resolved("COLOR")
	require.True(t, ok)
	assert.Equal(t, attributes.SourceCache, r.Source)
	assert.Equal(t, "colour", r.Key)
}

func TestBuildDoesNotReaskCachedIDs(t *testing.T) {
	calls := 0
	b := attributes.NewBuilder(attributes.Options{
		BaseAliases: alias.NewTable(),
		Store:       equivalence.NewMemoryStore(equivalence.Cache{"X": {"nonexistent"}}),
		Suggester: suggest.Func(func(context.Context, string, []string, string) (equivalence.Cache, error) {
			calls++
			return equivalence.Cache{}, nil
		}),
	})
	s := schema.New(schema.Attribute{ID: "X", ValueType: schema.String})

	res := b.Build(context.Background(), "CBT1", decode(t, `{"brand":"Acme"}`), s)
	assert.Zero(t, calls)
	assert.Equal(t, []string{"X"}, res.Missing)
}

func TestBuildSuggestionFailureDegrades(t *testing.T) {
	rec := &recorder{}
	logger := logging.NewTestLogger(t)
	store := equivalence.NewMemoryStore(nil)
	b := attributes.NewBuilder(attributes.Options{
		BaseAliases: alias.NewTable(),
		Store:       store,
		Recorder:    rec,
		Logger:      logger.Logger,
		Suggester: suggest.Func(func(context.Context, string, []string, string) (equivalence.Cache, error) {
			return nil, errors.New("model unavailable")
		}),
	})
	s := schema.New(schema.Attribute{ID: "MATERIAL", ValueType: schema.String})

	res := b.Build(context.Background(), "CBT1", decode(t, `{"fabric":"cotton"}`), s)

	assert.Equal(t, []string{"MATERIAL"}, res.Missing)
	assert.Nil(t, res.Learned)
	assert.False(t, res.Persisted)
	assert.Zero(t, store.Saves())
	assert.Equal(t, 1, rec.suggestions)
	assert.EqualError(t, rec.lastErr, "model unavailable")
	assert.True(t, logger.ContainsAll("Suggestion failed", "model unavailable"))
}

func TestBuildWithoutSchema(t *testing.T) {
	b := attributes.NewBuilder(attributes.Options{})
	res := b.Build(context.Background(), "CBT1", decode(t, `{"asin":"B01","externally_assigned_product_identifier":[{"value":"0012345678905"}]}`), nil)

	assert.Empty(t, res.Missing)
	want := []attributes.Attribute{
		{ID: "SELLER_SKU", ValueName: "B01"},
		{ID: "GTIN", ValueName: "0012345678905"},
	}
	if diff := cmp.Diff(want, res.Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildVerboseUnits(t *testing.T) {
	b := attributes.NewBuilder(attributes.Options{
		BaseAliases: alias.TableFrom(map[string][]string{
			"ITEM_WEIGHT": {"weight"},
			"ITEM_LENGTH": {"length"},
		}),
	})
	s := schema.New(
		schema.Attribute{ID: "ITEM_WEIGHT", ValueType: schema.NumberUnit},
		schema.Attribute{ID: "ITEM_LENGTH", ValueType: schema.NumberUnit},
	)

	res := b.Build(context.Background(), "CBT1", decode(t, `{"weight":"5 kilograms","length":"10 centimeters"}`), s)

	want := []attributes.Attribute{
		{ID: "ITEM_WEIGHT", ValueStruct: &attributes.ValueStruct{Number: 5, Unit: "kg"}},
		{ID: "ITEM_LENGTH", ValueStruct: &attributes.ValueStruct{Number: 10, Unit: "cm"}},
	}
	if diff := cmp.Diff(want, res.Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildAcceptsRecords(t *testing.T) {
	rec := flatten.FromEntries(flatten.Entry{Key: "attributes.brand[0].value", Value: "Acme"})
	b := attributes.NewBuilder(attributes.Options{})
	s := schema.New(schema.Attribute{ID: "BRAND", ValueType: schema.String})

	res := b.Build(context.Background(), "CBT1", rec, s)
	brand, ok := res.Attribute("BRAND")
	require.True(t, ok)
	assert.Equal(t, "Acme", brand.ValueName)
}

func TestBuildScoredMatcher(t *testing.T) {
	b := attributes.NewBuilder(attributes.Options{
		BaseAliases: alias.TableFrom(map[string][]string{"WIDTH": {"width"}}),
		Matcher:     alias.NewScored(0.8),
	})
	s := schema.New(schema.Attribute{ID: "WIDTH", ValueType: schema.NumberUnit})

	// Containment would take the first key containing "width".
	res := b.Build(context.Background(), "CBT1", decode(t, `{"bandwidth_limit":"5","width":"3 in"}`), s)
	width, ok := res.Attribute("WIDTH")
	require.True(t, ok)
	assert.Equal(t, &attributes.ValueStruct{Number: 7.62, Unit: "cm"}, width.ValueStruct)
}
