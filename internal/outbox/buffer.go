package outbox

import (
	"sync"
)

// Buffer is a thread-safe ring buffer that doubles its capacity when it
// reaches 70% full. A positive limit caps the number of held items.
type Buffer[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // oldest item
	tail     int // next write position
	count    int
	capacity int
	limit    int

	// Stats
	totalPushed  int64
	totalPopped  int64
	totalDropped int64
	resizeCount  int
}

// NewBuffer creates a buffer with the given initial capacity. limit <= 0
// means unbounded.
func NewBuffer[T any](initialCapacity, limit int) *Buffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Buffer[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
		limit:    limit,
	}
}

// Push appends an item. Returns false if the buffer is at its limit.
func (b *Buffer[T]) Push(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit > 0 && b.count >= b.limit {
		b.totalDropped++
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalPushed++
	return true
}

// PushFront inserts an item ahead of the oldest one, so it is the next
// PopOldest result. Returns false if the buffer is at its limit.
func (b *Buffer[T]) PushFront(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit > 0 && b.count >= b.limit {
		b.totalDropped++
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.head = (b.head - 1 + b.capacity) % b.capacity
	b.buf[b.head] = item
	b.count++
	b.totalPushed++
	return true
}

// PopOldest removes and returns the least recently pushed item.
func (b *Buffer[T]) PopOldest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.count == 0 {
		return zero, false
	}

	item := b.buf[b.head]
	b.buf[b.head] = zero // Clear reference for GC
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.totalPopped++
	return item, true
}

// PopNewest removes and returns the most recently pushed item.
func (b *Buffer[T]) PopNewest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.count == 0 {
		return zero, false
	}

	b.tail = (b.tail - 1 + b.capacity) % b.capacity
	item := b.buf[b.tail]
	b.buf[b.tail] = zero
	b.count--
	b.totalPopped++
	return item, true
}

// Len returns the current number of items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity.
func (b *Buffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// Stats returns buffer statistics.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:        b.count,
		Capacity:     b.capacity,
		TotalPushed:  b.totalPushed,
		TotalPopped:  b.totalPopped,
		TotalDropped: b.totalDropped,
		ResizeCount:  b.resizeCount,
	}
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count        int
	Capacity     int
	TotalPushed  int64
	TotalPopped  int64
	TotalDropped int64
	ResizeCount  int
}

// grow doubles the capacity. Must be called with lock held.
func (b *Buffer[T]) grow() {
	newCapacity := b.capacity * 2
	newBuf := make([]T, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
	b.resizeCount++
}

// Drain removes up to max items (all when max <= 0), oldest first.
func (b *Buffer[T]) Drain(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	var zero T
	for i := 0; i < n; i++ {
		result[i] = b.buf[b.head]
		b.buf[b.head] = zero
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.totalPopped++
	}
	return result
}
