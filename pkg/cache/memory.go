// Package cache provides the search result caches: an in-process store and a
// Redis-backed store, both implementing interfaces.Cache.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// sweepThreshold is the entry count at which Set first drops expired entries.
const sweepThreshold = 1024

type entry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process cache. Values are stored JSON-encoded so callers
// never share memory with the cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get decodes the value under key into target.
func (m *Memory) Get(ctx context.Context, key string, target any) (bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, nil
	}
	return true, json.Unmarshal(e.data, target)
}

// Set stores value under key. A non-positive ttl never expires.
func (m *Memory) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	e := entry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	if len(m.entries) >= sweepThreshold {
		m.sweep()
	}
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// sweep drops expired entries. Callers hold the write lock.
func (m *Memory) sweep() {
	now := m.now()
	for k, e := range m.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(m.entries, k)
		}
	}
}

// Close drops all entries.
func (m *Memory) Close() error {
	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
	return nil
}
