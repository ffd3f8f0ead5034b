package engine

import "sync/atomic"

type (
	// Queue is an unbounded multi-producer, multi-consumer FIFO queue. Push
	// and Pop never block and never take a lock, so both the audio thread
	// and any number of control goroutines can use the same queue. Values
	// pushed by one goroutine are popped in the order they were pushed;
	// there is no ordering between different producers.
	//
	// The zero Queue is not usable; create queues with NewQueue.
	Queue[T any] struct {
		head atomic.Pointer[queueNode[T]]
		tail atomic.Pointer[queueNode[T]]
	}

	queueNode[T any] struct {
		value T
		next  atomic.Pointer[queueNode[T]]
	}
)

func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	sentinel := &queueNode[T]{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Push appends v to the end of the queue.
func (q *Queue[T]) Push(v T) {
	n := &queueNode[T]{value: v}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// tail is lagging behind, help the other producer
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			return
		}
	}
}

// Pop removes and returns the value at the front of the queue. ok is false if
// the queue was empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if next == nil {
			var zero T
			return zero, false
		}
		if head == tail {
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		v = next.value
		if q.head.CompareAndSwap(head, next) {
			return v, true
		}
	}
}

// Empty reports whether the queue had no values at the moment of the call.
func (q *Queue[T]) Empty() bool {
	return q.head.Load().next.Load() == nil
}
