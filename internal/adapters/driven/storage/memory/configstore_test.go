package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("store.root", "folder-1"))
	require.NoError(t, store.Set("store.root", "folder-2"))

	val, ok := store.Get("store.root")
	assert.True(t, ok)
	assert.Equal(t, "folder-2", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("renderer.binary", "/usr/bin/mscore"))
	require.NoError(t, store.Set("renderer.retries", int64(3)))
	require.NoError(t, store.Set("layout.min_spacing", 1.6))
	require.NoError(t, store.Set("layout.margin", 2))
	require.NoError(t, store.Set("debug", true))
	require.NoError(t, store.Set("folders", []any{"a", 1, "b"}))

	assert.Equal(t, "/usr/bin/mscore", store.GetString("renderer.binary"))
	assert.Equal(t, 3, store.GetInt("renderer.retries"))
	assert.InDelta(t, 1.6, store.GetFloat("layout.min_spacing"), 1e-9)
	assert.InDelta(t, 2.0, store.GetFloat("layout.margin"), 1e-9)
	assert.True(t, store.GetBool("debug"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("folders"))
}

func TestConfigStore_WrongTypesReturnZero(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("key", struct{}{}))

	assert.Empty(t, store.GetString("key"))
	assert.Zero(t, store.GetInt("key"))
	assert.Zero(t, store.GetFloat("key"))
	assert.False(t, store.GetBool("key"))
	assert.Nil(t, store.GetStringSlice("key"))
}

func TestConfigStore_NoOps(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("watch.full_scan_every", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("watch.full_scan_every")
		}()
	}
	wg.Wait()

	_, ok := store.Get("watch.full_scan_every")
	assert.True(t, ok)
}
