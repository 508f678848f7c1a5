package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultLoginStateTTL = 10 * time.Minute

// MemoryLoginStateStore holds pending authorization flows in process memory.
// Single-host deployments only need one login flow surface, so there is a
// memory implementation and no SQL one.
type MemoryLoginStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]LoginState
}

func NewMemoryLoginStateStore(ttl time.Duration, clock Clock) *MemoryLoginStateStore {
	if ttl <= 0 {
		ttl = defaultLoginStateTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryLoginStateStore{
		ttl:     ttl,
		clock:   clock,
		entries: map[string]LoginState{},
	}
}

func (s *MemoryLoginStateStore) Put(_ context.Context, state LoginState) error {
	if s == nil {
		return fmt.Errorf("core: login state store is not configured")
	}
	id := strings.TrimSpace(state.ID)
	if id == "" {
		return fmt.Errorf("core: login state id is required")
	}
	if strings.TrimSpace(state.CodeVerifier) == "" {
		return fmt.Errorf("core: login state code verifier is required")
	}

	now := s.clock.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = state.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[id] = cloneLoginState(state)
	s.mu.Unlock()

	return nil
}

func (s *MemoryLoginStateStore) Consume(_ context.Context, stateID string) (LoginState, error) {
	if s == nil {
		return LoginState{}, fmt.Errorf("core: login state store is not configured")
	}
	stateID = strings.TrimSpace(stateID)
	if stateID == "" {
		return LoginState{}, fmt.Errorf("core: login state id is required")
	}

	s.mu.Lock()
	state, ok := s.entries[stateID]
	if ok {
		delete(s.entries, stateID)
	}
	s.mu.Unlock()

	if !ok {
		return LoginState{}, fmt.Errorf("core: login state not found")
	}
	if !state.ExpiresAt.IsZero() && s.clock.Now().After(state.ExpiresAt) {
		return LoginState{}, fmt.Errorf("core: login state expired")
	}

	return cloneLoginState(state), nil
}

func (s *MemoryLoginStateStore) PruneExpired(_ context.Context, now time.Time) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, state := range s.entries {
		if !state.ExpiresAt.IsZero() && now.After(state.ExpiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func generateLoginStateID() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate login state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func cloneLoginState(state LoginState) LoginState {
	cloned := state
	cloned.Scopes = append([]string(nil), state.Scopes...)
	return cloned
}
