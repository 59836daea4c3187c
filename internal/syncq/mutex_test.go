package syncq

import (
	"sync"
	"testing"
	"time"
)

func TestLockUnlockSingle(t *testing.T) {
	var m Mutex
	m.Lock()
	if !m.Locked() {
		t.Fatalf("expected locked after Lock")
	}
	m.Unlock()
	if m.Locked() {
		t.Fatalf("expected unlocked after Unlock")
	}
}

func TestMutualExclusion(t *testing.T) {
	var m Mutex
	var inside int
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Lock()
				inside++
				if inside != 1 {
					t.Errorf("observed %d holders inside critical section", inside)
				}
				inside--
				m.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestFIFOOrder(t *testing.T) {
	var m Mutex
	m.Lock()

	const n = 8
	order := make(chan int, n)
	var ready sync.WaitGroup
	for i := 0; i < n; i++ {
		ready.Add(1)
		i := i
		go func() {
			// Stagger arrival so the wait queue order is deterministic.
			time.Sleep(time.Duration(i*10) * time.Millisecond)
			ready.Done()
			m.Lock()
			order <- i
			m.Unlock()
		}()
	}
	ready.Wait()
	// Give the last goroutine time to park on the queue.
	time.Sleep(20 * time.Millisecond)
	m.Unlock()

	for want := 0; want < n; want++ {
		select {
		case got := <-order:
			if got != want {
				t.Fatalf("expected waiter %d to acquire next, got %d", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for waiter %d", want)
		}
	}
}

func TestUnlockHandsOffWhileHeld(t *testing.T) {
	var m Mutex
	m.Lock()
	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()
	time.Sleep(10 * time.Millisecond)
	m.Unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("waiter did not receive handoff")
	}
	if !m.Locked() {
		t.Fatalf("lock should still be held by the waiter after handoff")
	}
	m.Unlock()
}

func TestUnmatchedUnlockPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on unmatched Unlock")
		}
	}()
	var m Mutex
	m.Unlock()
}
