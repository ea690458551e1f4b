// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package lifo

import (
	"fmt"

	"github.com/petenewcomb/lifo-go/internal/arena"
)

// A Handle is one goroutine's registration as a participant of a [Stack]. Use
// [Stack.Attach] to obtain one and [Handle.Release] when done with it.
type Handle[T any] struct {
	stack    *Stack[T]
	p        participant
	released bool
	hook     func(point)
}

// Push adds v to the top of the stack. See [Stack.Push].
func (h *Handle[T]) Push(v T) error {
	h.check()
	return h.push(v)
}

// Pop removes and returns the value at the top of the stack. See [Stack.Pop].
func (h *Handle[T]) Pop() (T, bool) {
	h.check()
	return h.pop()
}

// Flush returns to the store whatever nodes this handle has popped that no
// other participant can still be reading, and returns how many there were.
// Reclamation happens on its own as nodes are popped; Flush only hurries it.
func (h *Handle[T]) Flush() int {
	h.check()
	return h.participant().Flush()
}

// Release ends the handle's participation. Nodes it popped and could not yet
// reclaim are handed on to a later participant. The handle may not be used
// afterward.
func (h *Handle[T]) Release() {
	h.check()
	h.released = true
	h.detach()
}

func (h *Handle[T]) check() {
	if h.released {
		panic("use of released handle")
	}
	h.stack.checkOpen()
}

func (h *Handle[T]) participant() participant {
	if h.p == nil {
		h.p = h.stack.acquire()
	}
	return h.p
}

func (h *Handle[T]) detach() {
	if h.p != nil {
		h.p.Release()
		h.p = nil
	}
}

func (h *Handle[T]) step(pt point) {
	if h.hook != nil {
		h.hook(pt)
	}
}

func (h *Handle[T]) push(v T) error {
	s := h.stack
	ref, n, ok := s.nodes.Alloc()
	if !ok {
		// Retired nodes count against capacity until they are reclaimed.
		h.participant().Flush()
		ref, n, ok = s.nodes.Alloc()
		if !ok {
			s.notify(Event{Kind: EventExhausted, Count: s.nodes.Capacity()})
			return fmt.Errorf("%w: %d nodes in use", ErrExhausted, s.nodes.Capacity())
		}
	}
	n.Value = v

	// Push never dereferences the head node, so it needs no protection: if
	// the head is popped and pushed back between the load and the CAS, linking
	// above it is still correct.
	var b backoff
	for attempts := 1; ; attempts++ {
		h.step(pointLoad)
		top := arena.Ref(s.head.Load())
		n.SetNext(top)
		h.step(pointCAS)
		if s.head.CompareAndSwap(uint32(top), uint32(ref)) {
			h.step(pointSucceeded)
			s.notify(Event{Kind: EventPush, Attempts: attempts})
			return nil
		}
		h.step(pointFailed)
		b.wait(s.maxBackoff)
	}
}

func (h *Handle[T]) pop() (T, bool) {
	s := h.stack
	p := h.participant()
	var b backoff
	for attempts := 1; ; attempts++ {
		p.Begin()
		h.step(pointLoad)
		top := p.Protect(&s.head)
		if top == arena.Nil {
			p.End()
			h.step(pointEmpty)
			s.notify(Event{Kind: EventEmpty})
			var zero T
			return zero, false
		}
		n := s.nodes.At(top)
		next := n.Next()
		h.step(pointCAS)
		if s.head.CompareAndSwap(uint32(top), uint32(next)) {
			v := n.Value
			var zero T
			n.Value = zero
			p.End()
			h.step(pointSucceeded)
			p.Retire(top)
			s.notify(Event{Kind: EventPop, Attempts: attempts})
			return v, true
		}
		p.End()
		h.step(pointFailed)
		b.wait(s.maxBackoff)
	}
}
