package equivalence_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap/pkg/equivalence"
	pkgerrors "github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/logging"
)

func TestCacheMerge(t *testing.T) {
	c := equivalence.Cache{"COLOR": {"color"}, "BRAND": {"brand"}}
	ids := c.Merge(equivalence.Cache{"COLOR": {"colour"}, "MATERIAL": {"material"}})

	assert.Equal(t, []string{"COLOR", "MATERIAL"}, ids)
	assert.Equal(t, []string{"colour"}, c["COLOR"], "merge overwrites")
	assert.Equal(t, []string{"brand"}, c["BRAND"])
	assert.True(t, c.Has("MATERIAL"))
	assert.Equal(t, []string{"BRAND", "COLOR", "MATERIAL"}, c.IDs())
}

func TestCacheClone(t *testing.T) {
	c := equivalence.Cache{"COLOR": {"color"}}
	clone := c.Clone()
	clone["COLOR"][0] = "changed"
	assert.Equal(t, "color", c["COLOR"][0])
}

func TestDecode(t *testing.T) {
	c, err := equivalence.Decode([]byte(`{"COLOR": "colour", "BRAND": ["brand", 3, "marca"], "EMPTY": []}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"colour"}, c["COLOR"])
	assert.Equal(t, []string{"brand", "marca"}, c["BRAND"])
	assert.True(t, c.Has("EMPTY"))

	bag, ok := c.Aliases("BRAND")
	require.True(t, ok)
	assert.Len(t, bag, 2)

	_, err = equivalence.Decode([]byte(`{not json`))
	assert.Error(t, err)
}

func TestEncodeSortedAndReadable(t *testing.T) {
	data, err := equivalence.Encode(equivalence.Cache{"b": {"ñandú"}, "a": {"<x>"}})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    \"<x>\"\n  ],\n  \"b\": [\n    \"ñandú\"\n  ]\n}\n", string(data))
}

func TestFileStoreMissingFile(t *testing.T) {
	store := equivalence.NewFileStore(filepath.Join(t.TempDir(), "nested", "cache.json"))
	c, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o644))

	store := equivalence.NewFileStore(path)
	c, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.NotNil(t, c)
	assert.Empty(t, c)

	merged, err := store.Upsert(context.Background(), equivalence.Cache{"COLOR": {"colour"}})
	require.NoError(t, err)
	assert.Equal(t, equivalence.Cache{"COLOR": {"colour"}}, merged)
}

func TestFileStoreSaveCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "deep", "ai_equivalences_cache.json")
	store := equivalence.NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, equivalence.Cache{"COLOR": {"colour"}}))
	require.NoError(t, store.Save(ctx, equivalence.Cache{"BRAND": {"marca"}}))

	c, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, equivalence.Cache{"BRAND": {"marca"}}, c, "save is last writer wins")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStoreUpsertMerges(t *testing.T) {
	store := equivalence.NewFileStore(filepath.Join(t.TempDir(), "cache.json"), equivalence.WithLock(true))
	ctx := context.Background()

	_, err := store.Upsert(ctx, equivalence.Cache{"COLOR": {"colour"}})
	require.NoError(t, err)
	merged, err := store.Upsert(ctx, equivalence.Cache{"BRAND": {"marca"}})
	require.NoError(t, err)

	assert.Equal(t, equivalence.Cache{"COLOR": {"colour"}, "BRAND": {"marca"}}, merged)
	_, err = os.Stat(store.Path() + ".lock")
	assert.True(t, os.IsNotExist(err), "lock released")
}

func TestFileStoreConcurrentUpserts(t *testing.T) {
	store := equivalence.NewFileStore(filepath.Join(t.TempDir(), "cache.json"),
		equivalence.WithLock(true),
		equivalence.WithLockTimeout(10*time.Second),
	)
	ctx := context.Background()

	ids := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := store.Upsert(ctx, equivalence.Cache{id: {id + "_alias"}})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	c, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, c.IDs(), "no lost updates under the lock")
}

func TestFileStoreLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path+".lock", []byte("1\n"), 0o644))

	store := equivalence.NewFileStore(path,
		equivalence.WithLock(true),
		equivalence.WithLockTimeout(100*time.Millisecond),
	)
	err := store.Save(context.Background(), equivalence.Cache{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsLockTimeout(err))
}

func TestFileStoreStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	lock := path + ".lock"
	require.NoError(t, os.WriteFile(lock, []byte("1\n"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(lock, old, old))

	logger := logging.NewTestLogger(t)
	store := equivalence.NewFileStore(path,
		equivalence.WithLock(true),
		equivalence.WithStaleLockAge(time.Minute),
		equivalence.WithFileLogger(logger.Logger),
	)
	require.NoError(t, store.Save(context.Background(), equivalence.Cache{"COLOR": {"colour"}}))
	assert.True(t, logger.Contains("Removing stale cache lock"))
}

func TestFileStoreClear(t *testing.T) {
	store := equivalence.NewFileStore(filepath.Join(t.TempDir(), "cache.json"))
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, equivalence.Cache{"COLOR": {"colour"}}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	c, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	seed := equivalence.Cache{"COLOR": {"colour"}}
	store := equivalence.NewMemoryStore(seed)
	seed["COLOR"][0] = "mutated"

	c, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"colour"}, c["COLOR"])

	merged, err := store.Upsert(ctx, equivalence.Cache{"BRAND": {"marca"}})
	require.NoError(t, err)
	assert.Len(t, merged, 2)
	assert.Equal(t, 1, store.Saves())
	assert.Equal(t, "memory", store.Location())
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	store := equivalence.NewMemoryStore(equivalence.Cache{
		"COLOR": {"colour"},
		"BRAND": {"marca"},
	})

	removed, err := equivalence.Forget(ctx, store, "COLOR", "SIZE")
	require.NoError(t, err)
	assert.Equal(t, []string{"COLOR"}, removed)
	assert.Equal(t, 1, store.Saves())

	c, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, equivalence.Cache{"BRAND": {"marca"}}, c)

	removed, err = equivalence.Forget(ctx, store, "SIZE")
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, 1, store.Saves())

	require.NoError(t, store.Clear(ctx))
	c, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, c)
}
