package service

import (
	"sync"

	"github.com/fixmasters/master-app/internal/core/domain"
	"github.com/fixmasters/master-app/internal/core/ports"
)

// OrderEntry is one cached order plus its provenance. Provisional entries
// (optimistic writes, list-index seeds) are placeholders awaiting server
// truth and must never be treated as authoritative.
type OrderEntry struct {
	Order       domain.Order
	Provisional bool
}

// OrderUpdate is pushed to store subscribers on every write.
type OrderUpdate struct {
	ID          string
	Order       domain.Order
	Provisional bool
	Removed     bool
}

// OrderStore is the authoritative per-order cache. All writes go through the
// order service; screens subscribe for change notifications.
type OrderStore struct {
	mu      sync.Mutex
	entries map[string]OrderEntry

	subMu  sync.Mutex
	nextID uint64
	subs   []orderSub
}

type orderSub struct {
	id uint64
	fn func(OrderUpdate)
}

func NewOrderStore() *OrderStore {
	return &OrderStore{entries: make(map[string]OrderEntry)}
}

func (s *OrderStore) Get(id string) (OrderEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// Put stores server truth for id.
func (s *OrderStore) Put(id string, o domain.Order) {
	s.write(id, OrderEntry{Order: o})
}

// PutProvisional stores a placeholder value for id (an optimistic transition
// or a list-index seed).
func (s *OrderStore) PutProvisional(id string, o domain.Order) {
	s.write(id, OrderEntry{Order: o, Provisional: true})
}

// Restore writes back a previously captured entry verbatim. A nil snapshot
// removes the entry (the order was not cached before the mutation).
func (s *OrderStore) Restore(id string, snapshot *OrderEntry) {
	if snapshot == nil {
		s.Invalidate(id)
		return
	}
	s.write(id, *snapshot)
}

func (s *OrderStore) Invalidate(id string) {
	s.mu.Lock()
	_, existed := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if existed {
		s.notify(OrderUpdate{ID: id, Removed: true})
	}
}

// Subscribe registers fn for change notifications, delivered synchronously in
// registration order. Unsubscribing twice is a no-op.
func (s *OrderStore) Subscribe(fn func(OrderUpdate)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, orderSub{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *OrderStore) write(id string, e OrderEntry) {
	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()
	s.notify(OrderUpdate{ID: id, Order: e.Order, Provisional: e.Provisional})
}

func (s *OrderStore) notify(u OrderUpdate) {
	s.subMu.Lock()
	listeners := make([]func(OrderUpdate), len(s.subs))
	for i, sub := range s.subs {
		listeners[i] = sub.fn
	}
	s.subMu.Unlock()
	for _, fn := range listeners {
		fn(u)
	}
}

// ListIndex keeps the most recent result of each list query scope. It is a
// read-only secondary source used to seed a detail view before its real fetch
// resolves (deep-link case); it is never written back from detail flows.
type ListIndex struct {
	mu    sync.RWMutex
	lists map[ports.OrderScope][]domain.Order
}

func NewListIndex() *ListIndex {
	return &ListIndex{lists: make(map[ports.OrderScope][]domain.Order)}
}

func (ix *ListIndex) Put(scope ports.OrderScope, orders []domain.Order) {
	cp := make([]domain.Order, len(orders))
	copy(cp, orders)
	ix.mu.Lock()
	ix.lists[scope] = cp
	ix.mu.Unlock()
}

func (ix *ListIndex) Get(scope ports.OrderScope) []domain.Order {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	src := ix.lists[scope]
	cp := make([]domain.Order, len(src))
	copy(cp, src)
	return cp
}

// Find scans all scopes for an order with the given id.
func (ix *ListIndex) Find(id string) (domain.Order, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, list := range ix.lists {
		for _, o := range list {
			if o.ID == id {
				return o, true
			}
		}
	}
	return domain.Order{}, false
}
