package sink

import (
	"sync"

	audit "tiermask/pkg/platform/audit"
)

const defaultCapacity = 10000

// RingBuffer is a bounded, thread-safe FIFO of audit records.
// When full, the oldest record is dropped to make room for the new one.
type RingBuffer struct {
	mu       sync.Mutex
	records  []audit.Record
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &RingBuffer{
		records:  make([]audit.Record, capacity),
		capacity: capacity,
	}
}

// Enqueue adds a record, dropping the oldest if necessary. It reports whether
// a record was dropped.
func (b *RingBuffer) Enqueue(record audit.Record) (droppedOldest bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.records[b.tail] = audit.Record{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		droppedOldest = true
	}

	b.records[b.head] = record
	b.head = (b.head + 1) % b.capacity
	b.count++
	return droppedOldest
}

// Peek returns up to n of the oldest records without removing them.
func (b *RingBuffer) Peek(n int) []audit.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]audit.Record, n)
	for i := 0; i < n; i++ {
		result[i] = b.records[(b.tail+i)%b.capacity]
	}
	return result
}

// DequeueBatch removes up to n records from the buffer.
func (b *RingBuffer) DequeueBatch(n int) []audit.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]audit.Record, n)
	for i := 0; i < n; i++ {
		result[i] = b.records[b.tail]
		b.records[b.tail] = audit.Record{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

// Discard removes the records of a batch returned by Peek once they are
// persisted. Overflow only ever removes from the tail, so a batch record that
// is no longer at the tail was already dropped and is skipped. It returns how
// many records were removed.
func (b *RingBuffer) Discard(batch []audit.Record) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for _, want := range batch {
		if b.count == 0 {
			break
		}
		if b.records[b.tail].ID != want.ID {
			continue
		}
		b.records[b.tail] = audit.Record{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		removed++
	}
	return removed
}

// Len returns the current number of records in the buffer.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Capacity returns the fixed size of the buffer.
func (b *RingBuffer) Capacity() int {
	return b.capacity
}

// Dropped returns the total number of records lost to overflow.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
