// Package event provides typed signals, one per event kind.
package event

import "sync"

// Signal fans a typed event out to its subscribers in subscription order.
// Handlers run synchronously on the emitting goroutine.
type Signal[T any] struct {
	mu       sync.Mutex
	next     uint64
	handlers []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// On subscribes fn. The returned function unsubscribes it.
func (s *Signal[T]) On(fn func(T)) (off func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	id := s.next
	s.handlers = append(s.handlers, subscription[T]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, h := range s.handlers {
			if h.id == id {
				s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers v to every subscriber.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	handlers := s.handlers
	s.mu.Unlock()

	for _, h := range handlers {
		h.fn(v)
	}
}

// Len returns the number of subscribers.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// Revision counts state-affecting mutations and notifies on each one.
type Revision struct {
	Signal[uint64]

	mu sync.Mutex
	n  uint64
}

// Bump increments the revision and emits the new value.
func (r *Revision) Bump() uint64 {
	r.mu.Lock()
	r.n++
	n := r.n
	r.mu.Unlock()

	r.Emit(n)
	return n
}

// Value returns the current revision.
func (r *Revision) Value() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}
