package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLoginStateStore_ConsumeRemovesEntry(t *testing.T) {
	ctx := context.Background()
	clock := NewFrozenClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryLoginStateStore(10*time.Minute, clock)

	if err := store.Put(ctx, LoginState{
		ID:           "state_1",
		CodeVerifier: "verifier_1",
		RedirectURI:  "http://localhost:1135/auth/callback",
		Scopes:       []string{"openid", "offline_access"},
	}); err != nil {
		t.Fatalf("put login state: %v", err)
	}

	state, err := store.Consume(ctx, "state_1")
	if err != nil {
		t.Fatalf("consume login state: %v", err)
	}
	if state.CodeVerifier != "verifier_1" {
		t.Fatalf("expected stored verifier, got %q", state.CodeVerifier)
	}

	if _, err := store.Consume(ctx, "state_1"); err == nil {
		t.Fatalf("expected second consume to fail")
	}
}

func TestMemoryLoginStateStore_ExpiredStateIsRejected(t *testing.T) {
	ctx := context.Background()
	clock := NewFrozenClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryLoginStateStore(10*time.Minute, clock)

	if err := store.Put(ctx, LoginState{ID: "state_1", CodeVerifier: "verifier_1"}); err != nil {
		t.Fatalf("put login state: %v", err)
	}
	clock.Advance(11 * time.Minute)

	if _, err := store.Consume(ctx, "state_1"); err == nil {
		t.Fatalf("expected expired state rejection")
	}
}

func TestMemoryLoginStateStore_PutValidation(t *testing.T) {
	store := NewMemoryLoginStateStore(0, nil)
	if err := store.Put(context.Background(), LoginState{CodeVerifier: "v"}); err == nil {
		t.Fatalf("expected error for missing state id")
	}
	if err := store.Put(context.Background(), LoginState{ID: "state_1"}); err == nil {
		t.Fatalf("expected error for missing code verifier")
	}
}

func TestMemoryLoginStateStore_PruneExpired(t *testing.T) {
	ctx := context.Background()
	clock := NewFrozenClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryLoginStateStore(5*time.Minute, clock)

	for _, id := range []string{"state_1", "state_2"} {
		if err := store.Put(ctx, LoginState{ID: id, CodeVerifier: "v"}); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	clock.Advance(2 * time.Minute)
	if err := store.Put(ctx, LoginState{ID: "state_3", CodeVerifier: "v"}); err != nil {
		t.Fatalf("put state_3: %v", err)
	}

	removed := store.PruneExpired(ctx, clock.Now().Add(4*time.Minute))
	if removed != 2 {
		t.Fatalf("expected two pruned states, got %d", removed)
	}
	if _, err := store.Consume(ctx, "state_3"); err != nil {
		t.Fatalf("expected the younger state to survive: %v", err)
	}
}

func TestMemoryLoginStateStore_ClonesScopes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLoginStateStore(time.Minute, nil)
	scopes := []string{"openid"}
	if err := store.Put(ctx, LoginState{ID: "state_1", CodeVerifier: "v", Scopes: scopes}); err != nil {
		t.Fatalf("put login state: %v", err)
	}
	scopes[0] = "mutated"

	state, err := store.Consume(ctx, "state_1")
	if err != nil {
		t.Fatalf("consume login state: %v", err)
	}
	if state.Scopes[0] != "openid" {
		t.Fatalf("stored scopes were aliased to caller slice: %v", state.Scopes)
	}
}
