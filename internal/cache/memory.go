package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process Store. It is lost on exit.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	policy  TTLPolicy
	now     func() time.Time
}

func NewMemory(policy TTLPolicy) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		policy:  policy,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string, typ Type) ([]byte, bool, error) {
	k := compositeKey(typ, key)
	m.mu.RLock()
	entry, ok := m.entries[k]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		m.mu.Lock()
		delete(m.entries, k)
		m.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, typ Type, value []byte) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl := m.policy.For(typ); ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[compositeKey(typ, key)] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string, typ Type) error {
	m.mu.Lock()
	delete(m.entries, compositeKey(typ, key))
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
