package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_CopiesSeed(t *testing.T) {
	seed := map[string]any{"policy.keep_history": true}
	store := NewConfigStore(seed)
	seed["policy.keep_history"] = false

	assert.True(t, store.GetBool("policy.keep_history"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"s":      "value",
		"i":      int64(7),
		"f":      float64(3),
		"b":      true,
		"number": 12,
	})

	assert.Equal(t, "value", store.GetString("s"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 3, store.GetInt("f"))
	assert.Equal(t, 12, store.GetInt("number"))
	assert.True(t, store.GetBool("b"))
}

func TestConfigStore_MissingAndMistyped(t *testing.T) {
	store := NewConfigStore(map[string]any{"b": "yes"})

	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))
	assert.False(t, store.GetBool("b"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_Set(t *testing.T) {
	store := NewConfigStore(nil)
	require.NoError(t, store.Set("notifications.on_publish_failure", "warn"))

	assert.Equal(t, "warn", store.GetString("notifications.on_publish_failure"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("k", i)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("k")
		}()
	}
	wg.Wait()
}
