// Package syncq provides a single-holder mutex with strict FIFO handoff,
// used to serialize engine-touching operations (load, reload, generate).
package syncq

import (
	"container/list"
	"sync"
)

// Mutex is a single-holder lock whose waiters are served in strict arrival
// order. Unlike sync.Mutex, a release hands the lock directly to the oldest
// waiter, so two goroutines that block in sequence are guaranteed to run in
// that sequence.
//
// The lock is not re-entrant: a holder that calls Lock again parks forever.
// There is no timeout and no cancellation; waiters block indefinitely.
type Mutex struct {
	mu      sync.Mutex
	held    bool
	waiters list.List // of chan struct{}
}

// Lock blocks until the caller is the sole holder.
func (m *Mutex) Lock() {
	m.mu.Lock()
	if !m.held {
		m.held = true
		m.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	m.waiters.PushBack(ch)
	m.mu.Unlock()
	<-ch
}

// Unlock releases the lock, handing it to the oldest waiter if any.
// Unlocking a mutex that is not held is a programming error and panics.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held {
		panic("syncq: unlock of unlocked mutex")
	}
	if front := m.waiters.Front(); front != nil {
		m.waiters.Remove(front)
		// Ownership transfers to the waiter; held stays true.
		close(front.Value.(chan struct{}))
		return
	}
	m.held = false
}

// Locked reports whether the lock is currently held. Intended for status
// reporting only; the answer may be stale by the time it is observed.
func (m *Mutex) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}
