package core

import (
	"sync"
	"time"
)

// Clock is the timestamp source for every persisted record. Services never
// call time.Now directly so tests can pin time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FrozenClock returns a fixed instant until advanced. Test use only.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFrozenClock(now time.Time) *FrozenClock {
	return &FrozenClock{now: now.UTC()}
}

func (c *FrozenClock) Now() time.Time {
	if c == nil {
		return time.Time{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FrozenClock) Advance(d time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var _ Clock = SystemClock{}
var _ Clock = (*FrozenClock)(nil)
