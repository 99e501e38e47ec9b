package outbox

import (
	"fmt"

	"github.com/rickgao/meshlink/internal/model"
)

// Order selects which end of the queue a retry tick pops from.
type Order string

const (
	// OrderFIFO drains the oldest entry first.
	OrderFIFO Order = "fifo"
	// OrderLIFO drains the newest entry first, like a stack.
	OrderLIFO Order = "lifo"
)

// ParseOrder validates a configured drain order. Empty means FIFO.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderFIFO:
		return OrderFIFO, nil
	case OrderLIFO:
		return OrderLIFO, nil
	}
	return "", fmt.Errorf("unknown drain order %q", s)
}

// Entry is one deferred send.
type Entry struct {
	Message  model.Message
	Callback model.Handler // nil when no response is expected
}

// Queue is the outbound queue of deferred sends.
type Queue struct {
	order Order
	buf   *Buffer[Entry]
}

// NewQueue creates a queue. limit <= 0 means unbounded.
func NewQueue(order Order, limit int) *Queue {
	if order == "" {
		order = OrderFIFO
	}
	return &Queue{
		order: order,
		buf:   NewBuffer[Entry](16, limit),
	}
}

// Push appends an entry. Returns false when the queue is full.
func (q *Queue) Push(e Entry) bool {
	return q.buf.Push(e)
}

// Pop removes the next entry according to the drain order.
func (q *Queue) Pop() (Entry, bool) {
	if q.order == OrderLIFO {
		return q.buf.PopNewest()
	}
	return q.buf.PopOldest()
}

// Requeue puts back an entry returned by Pop so that the next Pop returns
// it again. Returns false when the queue is full.
func (q *Queue) Requeue(e Entry) bool {
	if q.order == OrderLIFO {
		return q.buf.Push(e)
	}
	return q.buf.PushFront(e)
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return q.buf.Len()
}

// Order returns the drain order.
func (q *Queue) Order() Order {
	return q.order
}

// Stats returns the underlying buffer statistics.
func (q *Queue) Stats() BufferStats {
	return q.buf.Stats()
}

// Clear discards every queued entry and returns them oldest first.
func (q *Queue) Clear() []Entry {
	return q.buf.Drain(0)
}
