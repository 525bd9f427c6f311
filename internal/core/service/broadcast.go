package service

import "sync"

// FlagBroadcaster fans the derived "needs setup" flag out to any interested
// consumer (navigation gate, profile screen). Delivery is synchronous, in
// registration order, and never replayed: a late subscriber must read the
// cached bootstrap result for the current value.
type FlagBroadcaster struct {
	mu      sync.Mutex
	nextID  uint64
	entries []flagEntry
}

type flagEntry struct {
	id uint64
	fn func(bool)
}

func NewFlagBroadcaster() *FlagBroadcaster {
	return &FlagBroadcaster{}
}

// Subscribe registers fn and returns its unsubscribe handle. Unsubscribing
// twice is a no-op.
func (b *FlagBroadcaster) Subscribe(fn func(bool)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.entries = append(b.entries, flagEntry{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.entries {
			if e.id == id {
				b.entries = append(b.entries[:i], b.entries[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers value to all current subscribers in registration order.
func (b *FlagBroadcaster) Emit(value bool) {
	b.mu.Lock()
	listeners := make([]func(bool), len(b.entries))
	for i, e := range b.entries {
		listeners[i] = e.fn
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(value)
	}
}
