package runner

import (
	"context"
	"sync"
)

// progressQueue is an unbounded FIFO of progress lines. The pipeline worker
// pushes without ever blocking; observers pop with Next and block until a
// line arrives or their context ends.
type progressQueue struct {
	mu    sync.Mutex
	items []string
	wake  chan struct{}
}

func newProgressQueue() *progressQueue {
	return &progressQueue{wake: make(chan struct{}, 1)}
}

func (q *progressQueue) push(msg string) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest line, blocking until one is available. Returns false
// when ctx ends first.
func (q *progressQueue) next(ctx context.Context) (string, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items = q.items[1:]
			if len(q.items) > 0 {
				// Keep the wake signal set for the remaining items.
				select {
				case q.wake <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return msg, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-q.wake:
		}
	}
}
