package schema_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/logging"
	"github.com/agentstation/attrmap/pkg/schema"
)

const marketplaceSchema = `[
	{"id": "BRAND", "name": "Brand", "value_type": "string", "tags": {"required": true}},
	{"id": "COLOR", "name": "Color", "value_type": "list", "values": [
		{"id": "52049", "name": "Red"},
		{"id": "52055", "name": "Blue"},
		{"name": "No id"}
	]},
	{"id": "PACKAGE_WEIGHT", "value_type": "number_unit", "allowed_units": [{"id": "g", "name": "g"}, {"id": "kg"}]},
	{"name": "missing id"}
]`

func TestDecodeMarketplaceArray(t *testing.T) {
	s, err := schema.Decode([]byte(marketplaceSchema))
	require.NoError(t, err)

	assert.Equal(t, []string{"BRAND", "COLOR", "PACKAGE_WEIGHT"}, s.IDs())

	brand, ok := s.Get("BRAND")
	require.True(t, ok)
	assert.Equal(t, schema.String, brand.ValueType)
	assert.True(t, brand.Required)

	color, ok := s.Get("COLOR")
	require.True(t, ok)
	assert.Equal(t, schema.List, color.ValueType)
	assert.Equal(t, map[string]string{"red": "52049", "blue": "52055"}, color.Values)
	id, ok := color.LookupValue("RED")
	require.True(t, ok)
	assert.Equal(t, "52049", id)

	weight, _ := s.Get("PACKAGE_WEIGHT")
	assert.Equal(t, []string{"g", "kg"}, weight.AllowedUnits)
	unit, ok := weight.DefaultUnit()
	require.True(t, ok)
	assert.Equal(t, "g", unit)
}

func TestDecodeCompactMap(t *testing.T) {
	data := `{
		"BRAND": {"value_type": "free-text"},
		"COLOR": {"value_type": "enumerated-list", "values": {"Red": "123", "blue": 456}},
		"HEIGHT": {"value_type": "struct-number-unit", "allowed_units": ["in", {"id": "cm"}]}
	}`
	s, err := schema.Decode([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"BRAND", "COLOR", "HEIGHT"}, s.IDs())
	color, _ := s.Get("COLOR")
	assert.Equal(t, schema.List, color.ValueType)
	assert.Equal(t, map[string]string{"red": "123", "blue": "456"}, color.Values)

	height, _ := s.Get("HEIGHT")
	assert.Equal(t, schema.NumberUnit, height.ValueType)
	assert.Equal(t, []string{"in", "cm"}, height.AllowedUnits)

	brand, _ := s.Get("BRAND")
	assert.Equal(t, schema.String, brand.ValueType)
}

func TestDecodeYAML(t *testing.T) {
	s, err := schema.Decode([]byte("COLOR:\n  value_type: list\n  values:\n    red: \"1\"\n"))
	require.NoError(t, err)
	color, ok := s.Get("COLOR")
	require.True(t, ok)
	assert.Equal(t, "1", color.Values["red"])
}

func TestDecodeInvalid(t *testing.T) {
	_, err := schema.Decode([]byte(`"just a string"`))
	assert.Error(t, err)
	_, err = schema.Decode([]byte(`[{"id": `))
	assert.Error(t, err)
}

func TestParseValueType(t *testing.T) {
	tests := map[string]schema.ValueType{
		"number_unit":        schema.NumberUnit,
		"struct-number-unit": schema.NumberUnit,
		"list":               schema.List,
		"enumerated-list":    schema.List,
		"string":             schema.String,
		"free-text":          schema.String,
		"boolean":            schema.ValueType("boolean"),
	}
	for in, want := range tests {
		assert.Equal(t, want, schema.ParseValueType(in), in)
	}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	s := schema.New(
		schema.Attribute{ID: "COLOR", ValueType: schema.List, Values: map[string]string{"red": "1"}},
		schema.Attribute{ID: "BRAND", ValueType: schema.String},
		schema.Attribute{ID: "COLOR", ValueType: schema.String},
		schema.Attribute{ID: "SIZE", ValueType: schema.List, Values: map[string]string{"xl": "9"}, AllowedUnits: []string{"cm"}, Required: true},
	)
	require.Equal(t, []string{"COLOR", "BRAND", "SIZE"}, s.IDs())
	color, _ := s.Get("COLOR")
	assert.Equal(t, schema.String, color.ValueType, "duplicates replace in place")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var back schema.Schema
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.IDs(), back.IDs())
	size, ok := back.Get("SIZE")
	require.True(t, ok)
	want, _ := s.Get("SIZE")
	assert.Equal(t, want, size)
}

func TestHTTPProvider(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(marketplaceSchema))
	}))
	defer srv.Close()

	p := schema.NewHTTPProvider(schema.HTTPConfig{BaseURL: srv.URL + "/", Token: "tok", RateLimit: 100})
	s, err := p.Schema(context.Background(), "CBT1157")
	require.NoError(t, err)

	assert.Equal(t, "/categories/CBT1157/attributes", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, 3, s.Len())
}

func TestHTTPProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"category not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p := schema.NewHTTPProvider(schema.HTTPConfig{BaseURL: srv.URL, Timeout: time.Second})
	_, err := p.Schema(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = p.Schema(context.Background(), " ")
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CBT1157.json"), []byte(marketplaceSchema), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CBT2.yaml"), []byte("BRAND:\n  value_type: string\n"), 0o644))

	p := schema.NewFileProvider(dir)
	s, err := p.Schema(context.Background(), "CBT1157")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	s, err = p.Schema(context.Background(), "CBT2")
	require.NoError(t, err)
	assert.Equal(t, []string{"BRAND"}, s.IDs())

	_, err = p.Schema(context.Background(), "MISSING")
	assert.True(t, pkgerrors.IsNotFound(err))

	single := schema.NewFileProvider(filepath.Join(dir, "CBT1157.json"))
	s, err = single.Schema(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func TestCachedProvider(t *testing.T) {
	var calls atomic.Int32
	fail := true
	next := schema.ProviderFunc(func(_ context.Context, categoryID string) (*schema.Schema, error) {
		calls.Add(1)
		if fail {
			return nil, errors.New("boom")
		}
		return schema.New(schema.Attribute{ID: categoryID + "_ATTR", ValueType: schema.String}), nil
	})
	cached := schema.NewCached(next, time.Minute, time.Minute)
	ctx := context.Background()

	_, err := cached.Schema(ctx, "CBT1")
	require.Error(t, err)
	assert.Equal(t, 0, cached.Len(), "failures are not cached")

	fail = false
	first, err := cached.Schema(ctx, "CBT1")
	require.NoError(t, err)
	second, err := cached.Schema(ctx, "CBT1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(2), calls.Load())

	cached.Invalidate("CBT1")
	_, err = cached.Schema(ctx, "CBT1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDegradesToEmpty(t *testing.T) {
	logger := logging.NewTestLogger(t)
	failing := schema.ProviderFunc(func(context.Context, string) (*schema.Schema, error) {
		return nil, pkgerrors.NewAPIError("schema-api", http.StatusBadGateway, "upstream down")
	})

	s := schema.Fetch(context.Background(), failing, "CBT1157", logger.Logger)
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Len())
	assert.True(t, logger.ContainsAll("Schema unavailable", "CBT1157", "upstream down"))

	s = schema.Fetch(context.Background(), nil, "CBT1157", nil)
	assert.Equal(t, 0, s.Len())

	static := schema.NewStatic(schema.New(schema.Attribute{ID: "BRAND"}))
	s = schema.Fetch(context.Background(), static, "CBT1157", nil)
	assert.Equal(t, []string{"BRAND"}, s.IDs())
}
