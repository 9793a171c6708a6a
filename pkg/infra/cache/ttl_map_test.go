package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/snapstyle/snapstyle-backend/pkg/infra/cache"
	"github.com/stretchr/testify/assert"
)

func TestTTLMap_GetReturnsLastSetValue(t *testing.T) {
	m := cache.NewTTLMap(time.Minute)

	m.Set("key", "first")
	m.Set("key", "second")

	value, ok := m.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestTTLMap_GetMissingKey(t *testing.T) {
	m := cache.NewTTLMap(time.Minute)

	value, ok := m.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestTTLMap_ExpiredEntryIsAbsentWithoutSweep(t *testing.T) {
	current := time.Now()
	m := cache.NewTTLMapWithClock(time.Minute, func() time.Time { return current })

	m.Set("key", "value")
	current = current.Add(time.Minute)

	value, ok := m.Get("key")
	assert.False(t, ok)
	assert.Nil(t, value)
	assert.Equal(t, 0, m.Len(), "expired entry should be evicted on read")
}

func TestTTLMap_EntryVisibleJustBeforeExpiry(t *testing.T) {
	current := time.Now()
	m := cache.NewTTLMapWithClock(time.Minute, func() time.Time { return current })

	m.Set("key", "value")
	current = current.Add(time.Minute - time.Millisecond)

	value, ok := m.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", value)
}

func TestTTLMap_SetRestampsStoreTime(t *testing.T) {
	current := time.Now()
	m := cache.NewTTLMapWithClock(time.Minute, func() time.Time { return current })

	m.Set("key", "old")
	current = current.Add(45 * time.Second)
	m.Set("key", "new")
	current = current.Add(45 * time.Second)

	value, ok := m.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "new", value)
}

func TestTTLMap_NegativeResultIsCached(t *testing.T) {
	m := cache.NewTTLMap(time.Minute)

	m.Set("search:empty", []string{})

	value, ok := m.Get("search:empty")
	assert.True(t, ok)
	assert.Empty(t, value)
}

func TestTTLMap_Invalidate(t *testing.T) {
	m := cache.NewTTLMap(time.Minute)
	m.Set("key", "value")

	assert.True(t, m.Invalidate("key"))
	assert.False(t, m.Invalidate("key"))

	_, ok := m.Get("key")
	assert.False(t, ok)
}

func TestTTLMap_InvalidatePrefix(t *testing.T) {
	m := cache.NewTTLMap(time.Minute)
	m.Set("sections:42:free", "a")
	m.Set("sections:42:pro", "b")
	m.Set("sections:42:unlimited", "c")
	m.Set("sections:421:free", "other user")
	m.Set("sections:7:free", "other user")

	removed := m.InvalidatePrefix("sections:42:")

	assert.Equal(t, 3, removed)
	_, ok := m.Get("sections:421:free")
	assert.True(t, ok, "longer user id sharing digits must survive")
	_, ok = m.Get("sections:7:free")
	assert.True(t, ok)
}

func TestTTLMap_SweepExpired(t *testing.T) {
	current := time.Now()
	m := cache.NewTTLMapWithClock(time.Minute, func() time.Time { return current })

	m.Set("old-1", 1)
	m.Set("old-2", 2)
	current = current.Add(2 * time.Minute)
	m.Set("fresh", 3)

	removed := m.SweepExpired()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Len())
	value, ok := m.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 3, value)
}

func TestTTLMap_ConcurrentAccess(t *testing.T) {
	m := cache.NewTTLMap(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%10)
			m.Set(key, n)
			m.Get(key)
			m.InvalidatePrefix("key-9")
		}(i)
	}
	wg.Wait()
}
