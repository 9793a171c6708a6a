package cache

import (
	"strings"
	"sync"
	"time"
)

// TTLEntry represents an entry in TTLMap
type TTLEntry struct {
	Value    interface{}
	StoredAt time.Time
}

// TTLMap is a thread-safe map whose entries expire a fixed TTL after the
// store. Negative results (empty fetches, failed calls) are stored like
// positive ones so repeated failing lookups do not re-attempt within the
// window.
type TTLMap struct {
	Data map[string]*TTLEntry
	Mu   sync.RWMutex
	TTL  time.Duration

	now func() time.Time
}

// NewTTLMap creates a new TTLMap with the specified TTL
func NewTTLMap(ttl time.Duration) *TTLMap {
	return &TTLMap{
		Data: make(map[string]*TTLEntry),
		TTL:  ttl,
		now:  time.Now,
	}
}

// NewTTLMapWithClock is NewTTLMap with an injectable clock for tests.
func NewTTLMapWithClock(ttl time.Duration, now func() time.Time) *TTLMap {
	m := NewTTLMap(ttl)
	m.now = now
	return m
}

// Get retrieves a value if it hasn't expired. An expired entry counts as
// absent and is evicted on the way out.
func (m *TTLMap) Get(key string) (interface{}, bool) {
	m.Mu.RLock()
	entry, exists := m.Data[key]
	if !exists {
		m.Mu.RUnlock()
		return nil, false
	}
	isExpired := m.now().Sub(entry.StoredAt) >= m.TTL
	value := entry.Value
	m.Mu.RUnlock()

	if isExpired {
		m.Mu.Lock()
		if current, ok := m.Data[key]; ok && m.now().Sub(current.StoredAt) >= m.TTL {
			delete(m.Data, key)
		}
		m.Mu.Unlock()
		return nil, false
	}

	return value, true
}

// Set adds or updates a value, restamping its store time. Overwrites
// silently.
func (m *TTLMap) Set(key string, value interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	m.Data[key] = &TTLEntry{
		Value:    value,
		StoredAt: m.now(),
	}
}

// Invalidate removes one entry and reports whether it existed.
func (m *TTLMap) Invalidate(key string) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	_, existed := m.Data[key]
	delete(m.Data, key)
	return existed
}

// InvalidatePrefix removes every entry whose key starts with prefix and
// returns the count removed. Cache keys embed the owning user id as a
// prefix component, so one call clears all of a user's variants.
func (m *TTLMap) InvalidatePrefix(prefix string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	count := 0
	for key := range m.Data {
		if strings.HasPrefix(key, prefix) {
			delete(m.Data, key)
			count++
		}
	}
	return count
}

// SweepExpired removes all expired entries and returns the count removed.
// Intended to run periodically to bound memory, not on every access.
func (m *TTLMap) SweepExpired() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	now := m.now()
	count := 0
	for key, entry := range m.Data {
		if now.Sub(entry.StoredAt) >= m.TTL {
			delete(m.Data, key)
			count++
		}
	}
	return count
}

// Len returns the number of entries currently stored, expired or not.
func (m *TTLMap) Len() int {
	m.Mu.RLock()
	defer m.Mu.RUnlock()
	return len(m.Data)
}

// Clear removes all entries from the TTLMap
func (m *TTLMap) Clear() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Data = make(map[string]*TTLEntry)
}

// StartSweeper runs SweepExpired on the given interval until stop is
// closed.
func (m *TTLMap) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.SweepExpired()
			case <-stop:
				return
			}
		}
	}()
}
