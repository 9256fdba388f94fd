// Package frame schedules work on a display-synchronised frame loop.
package frame

import "sync"

type request struct {
	id uint64
	fn func()
}

// queue holds the callbacks requested for the next frame.
type queue struct {
	mu      sync.Mutex
	next    uint64
	pending []request
}

func (q *queue) RequestFrame(fn func()) (cancel func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.next++
	id := q.next
	q.pending = append(q.pending, request{id: id, fn: fn})

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		for i, r := range q.pending {
			if r.id == id {
				q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
				return
			}
		}
	}
}

// drain removes and returns the callbacks pending at call time. Callbacks
// requested while they run land in the next frame.
func (q *queue) drain() []request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
