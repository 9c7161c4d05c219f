// Package publisher distributes trades and book snapshots to subscribers
// synchronously: a Publish call does not return until every subscriber's
// callback has run, so a submission made from inside a callback observes a
// consistent book and is enqueued before the dispatcher advances.
package publisher

import "sync"

// Hub is a synchronous, ordered fan-out of values of type T to subscribers
// identified by an int64 handle.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[int64]func(T)
	next int64
}

// NewHub constructs an empty Hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[int64]func(T))}
}

// Subscribe registers fn to be called, in subscription order, on every
// future Publish. It returns a handle for Unsubscribe.
func (h *Hub[T]) Subscribe(fn func(T)) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	h.subs[id] = fn
	return id
}

// Unsubscribe removes a subscriber. A no-op if id is unknown.
func (h *Hub[T]) Unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Publish calls every current subscriber with value, in ascending handle
// order, before returning. Subscribers added or removed from within a
// callback take effect only on the next Publish — the snapshot of
// subscribers for this call is taken up front.
func (h *Hub[T]) Publish(value T) {
	h.mu.Lock()
	ids := make([]int64, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}
