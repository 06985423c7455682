package fifoqueue

import (
	"fmt"
	"sync"

	"github.com/ef-ds/deque"
)

// FifoQueue implements a FIFO queue with max capacity and an optional
// length observer. Elements exceeding the capacity are silently dropped,
// which matches the datagram channel model: the sender's flooding
// compensates for anything we shed.
//
// Caution:
//   - the queue is safe for concurrent access
//   - the QueueLengthObserver must be non-blocking
type FifoQueue struct {
	mu             sync.Mutex
	queue          deque.Deque
	maxCapacity    int
	lengthObserver QueueLengthObserver
}

// ConstructorOption is an optional argument to the FifoQueue constructor.
type ConstructorOption func(*FifoQueue) error

// QueueLengthObserver is a callback invoked with the new length whenever
// the queue's length changes.
type QueueLengthObserver func(int)

// WithLengthObserver installs a length observer.
// Caution: the callback must be non-blocking.
func WithLengthObserver(callback QueueLengthObserver) ConstructorOption {
	return func(queue *FifoQueue) error {
		if callback == nil {
			return fmt.Errorf("nil is not a valid QueueLengthObserver")
		}
		queue.lengthObserver = callback
		return nil
	}
}

// NewFifoQueue constructs a queue with the given max capacity.
func NewFifoQueue(maxCapacity int, options ...ConstructorOption) (*FifoQueue, error) {
	if maxCapacity < 1 {
		return nil, fmt.Errorf("capacity for FifoQueue must be positive")
	}
	queue := &FifoQueue{
		maxCapacity:    maxCapacity,
		lengthObserver: func(int) { /* noop */ },
	}
	for _, opt := range options {
		err := opt(queue)
		if err != nil {
			return nil, fmt.Errorf("failed to apply constructor option to FifoQueue: %w", err)
		}
	}
	return queue, nil
}

// Push appends the given value to the tail of the queue. If the capacity is
// reached, the value is silently dropped and false returned.
func (q *FifoQueue) Push(element interface{}) bool {
	length, pushed := q.push(element)
	if pushed {
		q.lengthObserver(length + 1)
	}
	return pushed
}

func (q *FifoQueue) push(element interface{}) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	length := q.queue.Len()
	if length < q.maxCapacity {
		q.queue.PushBack(element)
		return length, true
	}
	return length, false
}

// Pop removes and returns the queue's head element. Returns (nil, false)
// when the queue is empty.
func (q *FifoQueue) Pop() (interface{}, bool) {
	element, length, ok := q.pop()
	if !ok {
		return nil, false
	}
	q.lengthObserver(length)
	return element, true
}

func (q *FifoQueue) pop() (interface{}, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	element, ok := q.queue.PopFront()
	return element, q.queue.Len(), ok
}

// Len returns the current length of the queue.
func (q *FifoQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.queue.Len()
}
