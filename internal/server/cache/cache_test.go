package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap/pkg/attributes"
)

func result(runID string) *attributes.Result {
	return &attributes.Result{RunID: runID, CategoryID: "CBT1157"}
}

func TestPutAndGet(t *testing.T) {
	c := New(5*time.Minute, 10*time.Minute)

	c.Put(result("run-1"))
	got, ok := c.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, "CBT1157", got.CategoryID)

	_, ok = c.Get("run-2")
	assert.False(t, ok)
}

func TestPutIgnoresResultsWithoutRunID(t *testing.T) {
	c := New(5*time.Minute, 10*time.Minute)

	c.Put(nil)
	c.Put(result(""))
	assert.Zero(t, c.ItemCount())
}

func TestExpiry(t *testing.T) {
	c := New(50*time.Millisecond, time.Hour)

	c.Put(result("run-1"))
	_, ok := c.Get("run-1")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("run-1")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestDeleteAndClear(t *testing.T) {
	c := New(5*time.Minute, 10*time.Minute)
	for i := range 3 {
		c.Put(result(fmt.Sprintf("run-%d", i)))
	}
	assert.Equal(t, Stats{ItemCount: 3}, c.GetStats())

	c.Delete("run-0")
	_, ok := c.Get("run-0")
	assert.False(t, ok)
	assert.Equal(t, 2, c.ItemCount())

	c.Delete("missing")
	c.Clear()
	assert.Zero(t, c.ItemCount())
}

func TestConcurrentAccess(t *testing.T) {
	c := New(5*time.Minute, 10*time.Minute)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 50 {
				id := fmt.Sprintf("run-%d-%d", i, j)
				c.Put(result(id))
				_, _ = c.Get(id)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 500, c.ItemCount())
}
