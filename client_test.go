package attrmap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap/pkg/alias"
	"github.com/agentstation/attrmap/pkg/attributes"
	"github.com/agentstation/attrmap/pkg/equivalence"
	pkgerrors "github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/logging"
	"github.com/agentstation/attrmap/pkg/schema"
	"github.com/agentstation/attrmap/pkg/suggest"
)

const colorSchema = `{
	"BRAND": {"value_type": "free-text"},
	"COLOR": {"value_type": "enumerated-list", "values": {"red": "123"}}
}`

func staticSchema(t *testing.T, doc string) schema.Provider {
	t.Helper()
	s, err := schema.Decode([]byte(doc))
	require.NoError(t, err)
	return schema.NewStatic(s)
}

func TestBuildBytes(t *testing.T) {
	c, err := New(
		WithSchemaProvider(staticSchema(t, colorSchema)),
		WithStore(equivalence.NewMemoryStore(nil)),
		WithBaseAliases(alias.TableFrom(map[string][]string{"BRAND": {"brand"}, "COLOR": {"color"}})),
	)
	require.NoError(t, err)

	res, err := c.BuildBytes(context.Background(), "CBT1157", []byte(`{"brand":"Acme","color":"Red"}`))
	require.NoError(t, err)
	assert.Equal(t, []attributes.Attribute{
		{ID: "BRAND", ValueName: "Acme"},
		{ID: "COLOR", ValueID: "123"},
	}, res.Attributes)
}

func TestBuildValidatesInput(t *testing.T) {
	c, err := New(WithStore(equivalence.NewMemoryStore(nil)))
	require.NoError(t, err)

	_, err = c.Build(context.Background(), " ", map[string]any{})
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = c.BuildBytes(context.Background(), "CBT1", []byte(`{"brand": `))
	assert.Error(t, err)
}

func TestBuildDegradesWithoutSchema(t *testing.T) {
	logger := logging.NewTestLogger(t)
	failing := schema.ProviderFunc(func(context.Context, string) (*schema.Schema, error) {
		return nil, errors.New("connection refused")
	})
	c, err := New(
		WithSchemaProvider(failing),
		WithStore(equivalence.NewMemoryStore(nil)),
		WithLogger(logger.Logger),
	)
	require.NoError(t, err)

	res, err := c.Build(context.Background(), "CBT1", map[string]any{"brand": "Acme"})
	require.NoError(t, err)
	assert.Empty(t, res.Attributes)
	assert.Empty(t, res.Missing)
	assert.True(t, logger.Contains("Schema unavailable"))
}

func TestHooks(t *testing.T) {
	store := equivalence.NewMemoryStore(nil)
	c, err := New(
		WithSchemaProvider(staticSchema(t, `{"MATERIAL": {"value_type": "string"}}`)),
		WithStore(store),
		WithBaseAliases(alias.NewTable()),
		WithSuggester(suggest.Func(func(context.Context, string, []string, string) (equivalence.Cache, error) {
			return equivalence.Cache{"MATERIAL": {"fabric"}}, nil
		})),
	)
	require.NoError(t, err)

	var built atomic.Int32
	var learnedFor string
	var learned equivalence.Cache
	c.OnBuilt(func(*attributes.Result) { built.Add(1) })
	c.OnLearned(func(categoryID string, eqs equivalence.Cache) {
		learnedFor = categoryID
		learned = eqs
	})

	res, err := c.Build(context.Background(), "CBT1", map[string]any{"fabric": "cotton"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), built.Load())
	assert.Equal(t, "CBT1", learnedFor)
	assert.Equal(t, equivalence.Cache{"MATERIAL": {"fabric"}}, learned)
	material, ok := res.Attribute("MATERIAL")
	require.True(t, ok)
	assert.Equal(t, "cotton", material.ValueName)

	// Already learned: the second build reuses the cache and fires no learned hook.
	learnedFor = ""
	res, err = c.Build(context.Background(), "CBT1", map[string]any{"fabric": "linen"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Reused)
	assert.Empty(t, learnedFor)
	assert.Equal(t, int32(2), built.Load())
}

func TestSchemaCacheOption(t *testing.T) {
	var calls atomic.Int32
	provider := schema.ProviderFunc(func(_ context.Context, _ string) (*schema.Schema, error) {
		calls.Add(1)
		return schema.New(schema.Attribute{ID: "BRAND", ValueType: schema.String}), nil
	})
	c, err := New(
		WithSchemaProvider(provider),
		WithSchemaCache(time.Minute),
		WithStore(equivalence.NewMemoryStore(nil)),
	)
	require.NoError(t, err)

	for range 3 {
		assert.Equal(t, 1, c.Schema(context.Background(), "CBT1").Len())
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestOptionValidation(t *testing.T) {
	_, err := New(WithPreviewLimits(0, 10))
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = New(WithSchemaCache(-time.Second))
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestDefaultStoreIsFile(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	fs, ok := c.Store().(*equivalence.FileStore)
	require.True(t, ok)
	assert.Equal(t, "logs/ai_equivalences_cache.json", fs.Path())
}
