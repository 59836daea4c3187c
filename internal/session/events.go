package session

import "sync"

// Event names emitted by a session.
const (
	EventModelReady       = "model_ready"
	EventProgress         = "progress"
	EventProgressClear    = "progress_clear"
	EventLoadFailed       = "load_failed"
	EventGenerationFailed = "generation_failed"
)

// Event represents a session lifecycle event.
// Minimal and stable: name + model id and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the session. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// Broadcaster fans events out to registered listeners. Emission is
// fire-and-forget with no replay: listeners registered before an emission
// observe it; listeners registered during an emission may not.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	fn func(Event)
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster { return &Broadcaster{} }

// Subscribe registers a listener and returns a func that removes it.
// Listeners are invoked synchronously, in registration order, and must not
// block.
func (b *Broadcaster) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}
}

// Publish delivers e to all current listeners.
func (b *Broadcaster) Publish(e Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(e)
	}
}
