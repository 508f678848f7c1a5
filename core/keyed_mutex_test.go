package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	mutex := NewKeyedMutex()
	ctx := context.Background()

	var active int32
	var maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mutex.WithLock(ctx, "key_1", func() error {
				current := atomic.AddInt32(&active, 1)
				for {
					observed := atomic.LoadInt32(&maxActive)
					if current <= observed || atomic.CompareAndSwapInt32(&maxActive, observed, current) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			if err != nil {
				t.Errorf("with lock: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxActive); got != 1 {
		t.Fatalf("expected at most one holder per key, observed %d", got)
	}
	if mutex.Len() != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", mutex.Len())
	}
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	mutex := NewKeyedMutex()
	ctx := context.Background()

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = mutex.WithLock(ctx, "key_a", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan error, 1)
	go func() {
		done <- mutex.WithLock(ctx, "key_b", func() error { return nil })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("independent key lock: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("lock on a different key blocked")
	}
	close(release)
}

func TestKeyedMutex_RespectsContextWhileWaiting(t *testing.T) {
	mutex := NewKeyedMutex()

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = mutex.WithLock(context.Background(), "key_1", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := mutex.WithLock(ctx, "key_1", func() error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while waiting, got %v", err)
	}
	close(release)
}

func TestKeyedMutex_Validation(t *testing.T) {
	mutex := NewKeyedMutex()
	if err := mutex.WithLock(context.Background(), "  ", func() error { return nil }); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if err := mutex.WithLock(context.Background(), "key", nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}

func TestRefreshGroup_CollapsesConcurrentCalls(t *testing.T) {
	group := &RefreshGroup{}

	var calls int32
	gate := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]TokenPair, 8)
	for i := 0; i < len(results); i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			pair, _, err := group.Do("jti_1", func() (TokenPair, error) {
				atomic.AddInt32(&calls, 1)
				<-gate
				return TokenPair{AccessToken: "access_shared"}, nil
			})
			if err != nil {
				t.Errorf("refresh group do: %v", err)
				return
			}
			results[idx] = pair
		}(i)
	}

	// let every goroutine reach the group before the provider call returns
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one provider call, got %d", got)
	}
	for i, pair := range results {
		if pair.AccessToken != "access_shared" {
			t.Fatalf("caller %d missed the shared result: %+v", i, pair)
		}
	}
}

func TestRefreshGroup_PropagatesError(t *testing.T) {
	group := &RefreshGroup{}
	wantErr := errors.New("provider down")
	_, _, err := group.Do("jti_1", func() (TokenPair, error) {
		return TokenPair{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
