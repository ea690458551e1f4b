// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package arena is the node store behind the stack. Nodes live in slabs that
// are never handed back to the Go runtime while the arena is in use, and are
// named by index ([Ref]) rather than by pointer. Freed nodes go onto a
// lock-free free list and are handed out again by later allocations, which is
// exactly the reuse that the reclamation domains must make safe.
package arena

import (
	"math"
	"sync/atomic"

	"github.com/petenewcomb/lifo-go/internal/state"
)

// Ref names a node in an [Arena]. The zero Ref is [Nil] and never names a
// node, which lets a Ref double as a nullable link.
type Ref uint32

const Nil Ref = 0

// MaxNodes is the largest number of nodes a single arena can hold.
const MaxNodes = math.MaxUint32 - 1

const (
	slabShift = 10
	slabSize  = 1 << slabShift
	slabMask  = slabSize - 1
)

// Node is a single stack entry. Value is accessed without synchronization and
// is therefore only touched by whoever currently owns the node: the pusher
// before the node is linked, the popper that unlinked it, or the arena itself
// once the node has been freed.
type Node[T any] struct {
	Value T
	next  atomic.Uint32
}

// Next returns the link to the node below this one.
func (n *Node[T]) Next() Ref {
	return Ref(n.next.Load())
}

// SetNext sets the link to the node below this one.
func (n *Node[T]) SetNext(r Ref) {
	n.next.Store(uint32(r))
}

type slab[T any] [slabSize]Node[T]

// Arena allocates and frees nodes. All methods are safe for concurrent use and
// none of them block.
type Arena[T any] struct {
	// Copy-on-grow directory of slabs. A published directory is never
	// mutated, and every newer directory is a superset of older ones.
	slabs atomic.Pointer[[]*slab[T]]

	// Number of refs ever carved out of fresh slab space.
	fresh atomic.Uint32

	// Head of the free list, packed as tag<<32 | ref. The tag is bumped on
	// every successful update so that a stale head never compares equal.
	free atomic.Uint64

	inUse state.Counter
	limit int64
}

// New returns an arena that will hold at most capacity nodes at once. A
// capacity of zero or less, or one above [MaxNodes], means [MaxNodes].
func New[T any](capacity int) *Arena[T] {
	a := &Arena[T]{limit: int64(capacity)}
	if capacity <= 0 || int64(capacity) > MaxNodes {
		a.limit = MaxNodes
	}
	dir := make([]*slab[T], 0)
	a.slabs.Store(&dir)
	return a
}

// Alloc returns an unused node and its ref. The node's Value is the zero value
// and its link is Nil. Alloc reports false if the arena is at capacity.
func (a *Arena[T]) Alloc() (Ref, *Node[T], bool) {
	if !a.inUse.IncrementIfUnder(a.limit) {
		return Nil, nil, false
	}
	// Holding a reservation means that a node is either still available in
	// fresh space or is on, or about to be pushed onto, the free list, since
	// Free pushes before it gives up its reservation.
	for {
		if r := a.popFree(); r != Nil {
			n := a.At(r)
			n.SetNext(Nil)
			return r, n, true
		}
		if r, ok := a.carve(); ok {
			return r, a.At(r), true
		}
	}
}

// Free returns a node to the arena. The caller must own the node and must
// guarantee that no other goroutine will dereference r again until a later
// Alloc hands it out.
func (a *Arena[T]) Free(r Ref) {
	n := a.At(r)
	var zero T
	n.Value = zero
	for {
		old := a.free.Load()
		n.SetNext(Ref(uint32(old)))
		if a.free.CompareAndSwap(old, pack(old>>32+1, r)) {
			break
		}
	}
	a.inUse.Decrement()
}

// At resolves a ref to its node. r must have been returned by Alloc.
func (a *Arena[T]) At(r Ref) *Node[T] {
	i := uint32(r) - 1
	dir := *a.slabs.Load()
	return &dir[i>>slabShift][i&slabMask]
}

// InUse returns the number of nodes currently allocated.
func (a *Arena[T]) InUse() int {
	return a.inUse.Value()
}

// Capacity returns the maximum number of nodes the arena will hold at once.
func (a *Arena[T]) Capacity() int {
	return int(a.limit)
}

// Slabs returns the number of slabs backing the arena.
func (a *Arena[T]) Slabs() int {
	return len(*a.slabs.Load())
}

func (a *Arena[T]) popFree() Ref {
	for {
		old := a.free.Load()
		r := Ref(uint32(old))
		if r == Nil {
			return Nil
		}
		// The node may be handed out and relinked by a racing Alloc between
		// this load and the CAS below; the tag makes that CAS fail.
		next := a.At(r).Next()
		if a.free.CompareAndSwap(old, pack(old>>32+1, next)) {
			return r
		}
	}
}

func (a *Arena[T]) carve() (Ref, bool) {
	for {
		n := a.fresh.Load()
		if int64(n) >= a.limit {
			return Nil, false
		}
		if a.fresh.CompareAndSwap(n, n+1) {
			a.ensureSlab(int(n >> slabShift))
			return Ref(n + 1), true
		}
	}
}

func (a *Arena[T]) ensureSlab(index int) {
	var s *slab[T]
	for {
		old := a.slabs.Load()
		dir := *old
		if index < len(dir) && dir[index] != nil {
			return
		}
		if s == nil {
			s = new(slab[T])
		}
		grown := make([]*slab[T], max(len(dir), index+1))
		copy(grown, dir)
		grown[index] = s
		if a.slabs.CompareAndSwap(old, &grown) {
			return
		}
	}
}

func pack(tag uint64, r Ref) uint64 {
	return tag<<32 | uint64(r)
}
