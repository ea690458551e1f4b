// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// This package contains an implementation of the Non-Blocking Concurrent Queue
// Algorithm from "Simple, Fast, and Practical Non-Blocking and Blocking
// Concurrent Queue Algorithms" by Maged M. Michael and Michael L. Scott in
// PODC96. Step labels (E1..E17, D1..D20) refer to the pseudocode at
// https://www.cs.rochester.edu/research/synchronization/pseudocode/queues.html.
//
// Unlike the published algorithm, nodes are never recycled: they are left to
// the garbage collector, which cannot reuse a node while any goroutine still
// holds a pointer to it. That removes the need for the modification counters
// the paper pairs with every pointer.
package msq

import (
	"sync/atomic"
)

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Queue is an unbounded FIFO queue. It must be initialized with Init before
// use, after which all methods are safe for concurrent use and never block.
type Queue[T any] struct {
	head atomic.Pointer[node[T]]
	tail atomic.Pointer[node[T]]
}

// Init makes the queue empty by installing a dummy node.
func (q *Queue[T]) Init() {
	dummy := &node[T]{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
}

// PushBack appends value to the queue.
func (q *Queue[T]) PushBack(value T) {
	// E1-E3
	n := &node[T]{value: value}

	for {
		// E5-E6
		tail := q.tail.Load()
		next := tail.next.Load()
		// E7: skip inconsistent snapshots
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// E13: Tail is lagging, help it along and retry.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		// E9: link the node after the last one
		if tail.next.CompareAndSwap(nil, n) {
			// E17: swing Tail; failure means someone already helped
			q.tail.CompareAndSwap(tail, n)
			return
		}
	}
}

// PopFront removes and returns the value at the front of the queue, or reports
// false if the queue is empty.
func (q *Queue[T]) PopFront() (T, bool) {
	for {
		// D2-D4
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		// D5
		if head != q.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				// D8
				var zero T
				return zero, false
			}
			// D10: Tail is lagging behind a completed enqueue.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		// D12: read before the CAS, since once it succeeds next becomes the
		// dummy and may be consumed by a later dequeue.
		value := next.value
		// D13
		if q.head.CompareAndSwap(head, next) {
			// The new dummy keeps its copy of value until it is itself
			// dequeued past. Clearing it here would race with readers at D12.
			return value, true
		}
	}
}
