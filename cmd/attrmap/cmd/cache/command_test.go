package cache_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap"
	"github.com/agentstation/attrmap/cmd/attrmap/cmd/cache"
	"github.com/agentstation/attrmap/internal/appcontext"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/errors"
)

func seeded() *equivalence.MemoryStore {
	return equivalence.NewMemoryStore(equivalence.Cache{
		"BRAND": {"manufacturer", "maker"},
		"COLOR": {"colour"},
	})
}

func run(t *testing.T, store equivalence.Store, format string, args ...string) (string, error) {
	t.Helper()
	mock := &appcontext.Mock{
		Format:  format,
		Options: []attrmap.Option{attrmap.WithStore(store)},
	}
	cmd := cache.NewCommand(mock)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestShow(t *testing.T) {
	out, err := run(t, seeded(), "json", "show")
	require.NoError(t, err)

	var got equivalence.Cache
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, equivalence.Cache{
		"BRAND": {"manufacturer", "maker"},
		"COLOR": {"colour"},
	}, got)
}

func TestShowSubset(t *testing.T) {
	out, err := run(t, seeded(), "json", "show", "COLOR", "SIZE")
	require.NoError(t, err)

	var got equivalence.Cache
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, equivalence.Cache{"COLOR": {"colour"}}, got)
}

func TestShowTable(t *testing.T) {
	out, err := run(t, seeded(), "table", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "manufacturer, maker")
	assert.Contains(t, out, "colour")
}

func TestPath(t *testing.T) {
	out, err := run(t, seeded(), "json", "path")
	require.NoError(t, err)
	assert.Equal(t, "memory\n", out)
}

func TestForget(t *testing.T) {
	store := seeded()

	out, err := run(t, store, "json", "forget", "BRAND", "SIZE")
	require.NoError(t, err)
	assert.Contains(t, out, "Forgot 1 of 2 ids")

	c, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, c.Has("BRAND"))
	assert.True(t, c.Has("COLOR"))

	out, err = run(t, store, "json", "forget", "SIZE")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to forget")

	_, err = run(t, store, "json", "forget")
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	store := seeded()

	_, err := run(t, store, "json", "clear")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	c, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, c, 2)

	out, err := run(t, store, "json", "clear", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared memory")

	c, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestForgetGlob(t *testing.T) {
	store := equivalence.NewMemoryStore(equivalence.Cache{
		"SELLER_PACKAGE_WIDTH":  {"box width"},
		"SELLER_PACKAGE_HEIGHT": {"box height"},
		"BRAND":                 {"maker"},
	})

	out, err := run(t, store, "json", "forget", "seller_package_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Forgot 2 of 2 ids")

	c, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, equivalence.Cache{"BRAND": {"maker"}}, c)

	_, err = run(t, store, "json", "forget", "[broken")
	assert.Error(t, err)
}

func TestShowGlob(t *testing.T) {
	out, err := run(t, seeded(), "json", "show", "B*")
	require.NoError(t, err)

	var got equivalence.Cache
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, equivalence.Cache{"BRAND": {"manufacturer", "maker"}}, got)
}
