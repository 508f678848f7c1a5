package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// KeyedMutex serializes callers per key. Entries are reference counted and
// removed once the last waiter releases, so the map does not grow with the
// number of distinct keys seen over the process lifetime.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedMutexEntry
}

type keyedMutexEntry struct {
	slot chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*keyedMutexEntry),
	}
}

func (m *KeyedMutex) WithLock(ctx context.Context, key string, fn func() error) error {
	if m == nil {
		return fmt.Errorf("core: keyed mutex is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("core: lock key is required")
	}
	if fn == nil {
		return fmt.Errorf("core: lock callback is required")
	}

	entry := m.retain(key)
	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		m.release(key)
		return ctx.Err()
	}

	defer func() {
		<-entry.slot
		m.release(key)
	}()
	return fn()
}

func (m *KeyedMutex) retain(key string) *keyedMutexEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &keyedMutexEntry{slot: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (m *KeyedMutex) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.entries, key)
	}
}

// Len reports the number of live lock entries. Exposed for tests.
func (m *KeyedMutex) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RefreshGroup collapses concurrent refreshes of the same key into a single
// provider call; latecomers share the winner's result.
type RefreshGroup struct {
	group singleflight.Group
}

func (g *RefreshGroup) Do(key string, fn func() (TokenPair, error)) (TokenPair, bool, error) {
	if g == nil {
		return TokenPair{}, false, fmt.Errorf("core: refresh group is not configured")
	}
	value, err, shared := g.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return TokenPair{}, shared, err
	}
	pair, ok := value.(TokenPair)
	if !ok {
		return TokenPair{}, shared, fmt.Errorf("core: unexpected refresh result type %T", value)
	}
	return pair, shared, nil
}
