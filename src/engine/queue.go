package engine

import (
	"context"
	"sync"

	"tradeengine/src/signal"
)

// signalQueue is the unbounded FIFO between producers and the engine's
// consumer goroutine. Producers never block; the consumer is the sole reader.
type signalQueue struct {
	mu     sync.Mutex
	items  []*signal.TradeSignal
	wake   chan struct{}
	closed bool
}

func newSignalQueue() *signalQueue {
	return &signalQueue{wake: make(chan struct{}, 1)}
}

// push appends one signal. Safe from any goroutine, never blocks. Returns
// false once the queue has been closed.
func (q *signalQueue) push(sig *signal.TradeSignal) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, sig)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// pop blocks until a signal is available, the queue closes, or ctx is done.
// Cancellation wins over queued items: once ctx is done, pop returns false
// and leaves the remainder for drain.
func (q *signalQueue) pop(ctx context.Context) (*signal.TradeSignal, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, false
		default:
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			sig := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return sig, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-q.wake:
		}
	}
}

// close stops accepting new signals and wakes the consumer.
func (q *signalQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// drain removes and returns everything still queued.
func (q *signalQueue) drain() []*signal.TradeSignal {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

func (q *signalQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
