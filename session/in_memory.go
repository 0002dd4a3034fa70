package session

import (
	"context"
	"sync"
	"time"
)

// InMemoryKV is a volatile KV implementation storing values in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo deployments. Expired entries are dropped lazily on access.
type InMemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	clock   func() time.Time
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// NewInMemoryKV constructs an empty in-memory key-value store.
func NewInMemoryKV() *InMemoryKV {
	return &InMemoryKV{entries: make(map[string]memEntry), clock: time.Now}
}

// SetClock overrides the time source. Test hook.
func (s *InMemoryKV) SetClock(clock func() time.Time) { s.clock = clock }

// Get implements KV.
func (s *InMemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.clock().After(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set implements KV.
func (s *InMemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[key] = memEntry{value: stored, expires: s.clock().Add(ttl)}
	return nil
}

// Delete implements KV.
func (s *InMemoryKV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Keys implements KV.
func (s *InMemoryKV) Keys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	keys := make([]string, 0, len(s.entries))
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}
