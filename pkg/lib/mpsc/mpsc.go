// Package mpsc implements an intrusive lock-free multi-producer
// single-consumer queue. Any goroutine may Push; Pop and Empty must only
// be called by the single consumer that owns the queue.
package mpsc

import (
	"sync/atomic"
)

type node[T any] struct {
	next atomic.Pointer[node[T]]
	val  T
}

type Queue[T any] struct {
	head atomic.Pointer[node[T]]
	tail *node[T]
}

func New[T any]() *Queue[T] {
	q := new(Queue[T])
	stub := new(node[T])
	q.head.Store(stub)
	q.tail = stub
	return q
}

func (q *Queue[T]) Push(v T) {
	n := &node[T]{val: v}
	prev := q.head.Swap(n)
	prev.next.Store(n)
}

// Pop removes the oldest element. The second return value is false when
// the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	next := q.tail.next.Load()
	if next == nil {
		return zero, false
	}
	q.tail = next
	v := next.val
	next.val = zero
	return v, true
}

func (q *Queue[T]) Empty() bool {
	return q.tail.next.Load() == nil
}
