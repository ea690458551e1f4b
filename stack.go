// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package lifo

import (
	"sync/atomic"

	"github.com/petenewcomb/lifo-go/internal/arena"
	"github.com/petenewcomb/lifo-go/internal/epoch"
	"github.com/petenewcomb/lifo-go/internal/hazard"
	"golang.org/x/sys/cpu"
)

// participant is the per-goroutine side of a reclamation domain. Both
// *hazard.Record and *epoch.Record satisfy it.
type participant interface {
	// Begin and End bracket every access to a node reachable from the head.
	Begin()
	Protect(src *atomic.Uint32) arena.Ref
	End()

	Retire(arena.Ref)
	Flush() int
	Release()
}

type domain interface {
	Retained() int
	Participants() int
	Active() int
	Drain() int
}

// A Stack is a lock-free LIFO collection of values of type T. All of its
// methods except Close are safe for concurrent use. Use [New] or
// [NewWithConfig] to create one.
type Stack[T any] struct {
	_    cpu.CacheLinePad
	head atomic.Uint32
	_    cpu.CacheLinePad

	nodes      *arena.Arena[T]
	domain     domain
	acquire    func() participant
	observer   Observer
	maxBackoff int
	closed     atomic.Bool
}

// New returns an empty stack configured with [DefaultConfig].
func New[T any]() *Stack[T] {
	return NewWithConfig[T](DefaultConfig)
}

// NewWithConfig returns an empty stack configured by config. It panics if
// config holds an unknown reclamation scheme or a negative value.
func NewWithConfig[T any](config Config) *Stack[T] {
	config.validate()
	s := &Stack[T]{
		nodes:      arena.New[T](config.Capacity),
		observer:   config.Observer,
		maxBackoff: config.MaxBackoff,
	}
	var reclaimed func(int)
	if s.observer != nil {
		reclaimed = func(n int) {
			s.observer.Observe(Event{Kind: EventReclaim, Count: n})
		}
	}
	switch config.Reclamation {
	case HazardPointers:
		d := hazard.New(s.nodes, config.ScanThreshold, reclaimed)
		s.domain = d
		s.acquire = func() participant { return d.Acquire() }
	case Epochs:
		d := epoch.New(s.nodes, config.ScanThreshold, reclaimed)
		s.domain = d
		s.acquire = func() participant { return d.Acquire() }
	}
	return s
}

// Push adds v to the top of the stack. It returns an error wrapping
// [ErrExhausted] if the stack is at capacity. A push that must reclaim
// nodes to make room borrows a participant record the way [Stack.Pop] does.
func (s *Stack[T]) Push(v T) error {
	s.checkOpen()
	h := Handle[T]{stack: s}
	err := h.push(v)
	h.detach()
	return err
}

// Pop removes and returns the value at the top of the stack. If the stack is
// empty it returns the zero value and false.
//
// Each call borrows a participant record for its duration, and giving the
// record back allocates. Goroutines that pop often should use a [Handle]
// from [Stack.Attach], which holds one record until released.
func (s *Stack[T]) Pop() (T, bool) {
	s.checkOpen()
	h := Handle[T]{stack: s}
	v, ok := h.pop()
	h.detach()
	return v, ok
}

// Attach registers the calling goroutine as a long-lived participant and
// returns a handle through which it can operate on the stack. The handle must
// not be shared between goroutines and must be released before the stack is
// closed.
func (s *Stack[T]) Attach() *Handle[T] {
	s.checkOpen()
	return &Handle[T]{stack: s, p: s.acquire()}
}

// Stats is a snapshot of a stack's resource usage. Fields are read
// independently and need not be mutually consistent while operations are in
// flight.
type Stats struct {
	// Nodes allocated from the store, whether live or retired.
	InUse int

	// Nodes popped but not yet returned to the store.
	Retained int

	// Participant records ever registered. Records are reused, so this is
	// bounded by the peak number of concurrent participants.
	Participants int

	// Participant records currently held by handles or in-flight calls.
	Active int
}

// Live returns the number of values on the stack, as of the snapshot.
func (st Stats) Live() int {
	return st.InUse - st.Retained
}

// Stats returns a snapshot of the stack's resource usage.
func (s *Stack[T]) Stats() Stats {
	return Stats{
		InUse:        s.nodes.InUse(),
		Retained:     s.domain.Retained(),
		Participants: s.domain.Participants(),
		Active:       s.domain.Active(),
	}
}

// Close tears the stack down, returning every node to the store. It returns
// the number of values that were still on the stack, which are dropped. Close
// panics if any handle is still attached, and must not be called concurrently
// with any other method. The stack may not be used after Close.
func (s *Stack[T]) Close() int {
	if s.domain.Active() != 0 {
		panic("stack closed with attached handles")
	}
	if !s.closed.CompareAndSwap(false, true) {
		panic("stack already closed")
	}
	dropped := 0
	for r := arena.Ref(s.head.Swap(uint32(arena.Nil))); r != arena.Nil; dropped++ {
		next := s.nodes.At(r).Next()
		s.nodes.Free(r)
		r = next
	}
	s.domain.Drain()
	return dropped
}

func (s *Stack[T]) checkOpen() {
	if s.closed.Load() {
		panic("use of closed stack")
	}
}

func (s *Stack[T]) notify(e Event) {
	if s.observer != nil {
		s.observer.Observe(e)
	}
}
