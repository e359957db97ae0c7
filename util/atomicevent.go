package util

import (
	"sync"
)

// AtomicEvent hands the latest value of something from one goroutine to
// another without ever blocking the sender. Only the most recent value is
// retained; values a slow consumer missed are dropped. The engine loop uses
// this to publish finished frames to the display without being stalled by a
// busy terminal.
type AtomicEvent[T any] struct {
	mu     sync.Mutex
	value  T
	notify chan struct{}
}

func NewAtomicEvent[T any]() *AtomicEvent[T] {
	return &AtomicEvent[T]{
		notify: make(chan struct{}, 1),
	}
}

// Send replaces the stored value and makes sure one notification is
// pending. Never blocks.
func (ae *AtomicEvent[T]) Send(value T) {
	ae.mu.Lock()
	ae.value = value
	ae.mu.Unlock()

	select {
	case ae.notify <- struct{}{}:
	default:
		// a notification is already pending
	}
}

// Channel returns the notification channel for use in select statements.
func (ae *AtomicEvent[T]) Channel() <-chan struct{} {
	return ae.notify
}

// Value returns the most recently sent value.
func (ae *AtomicEvent[T]) Value() T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.value
}

// HasPending reports whether a notification is waiting to be consumed.
func (ae *AtomicEvent[T]) HasPending() bool {
	return len(ae.notify) > 0
}
