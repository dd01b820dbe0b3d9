package session

import (
	"sync"
	"time"
)

// waiter is a best-effort one-shot synchronization point. One side
// signals Done at most once; the other side waits up to a deadline and
// proceeds either way.
type waiter struct {
	ch   chan struct{}
	once sync.Once
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan struct{})}
}

// Done signals the waiter. Safe to call more than once.
func (w *waiter) Done() {
	w.once.Do(func() { close(w.ch) })
}

// TryWait blocks until Done or timeout, reporting whether the signal
// arrived in time.
func (w *waiter) TryWait(timeout time.Duration) bool {
	select {
	case <-w.ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
