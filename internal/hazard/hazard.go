// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package hazard implements hazard-pointer reclamation for arena nodes, after
// Maged M. Michael, "Hazard Pointers: Safe Memory Reclamation for Lock-Free
// Objects", IEEE TPDS 2004.
//
// Each participant record owns a single announcement slot. Before a reader
// dereferences a node it announces the node's ref in its slot and then
// confirms that the node is still reachable. A retired node is freed only by
// a scan that finds its ref in no slot.
package hazard

import (
	"slices"
	"sync/atomic"

	"github.com/gammazero/deque"
	"github.com/petenewcomb/lifo-go/internal/arena"
	"github.com/petenewcomb/lifo-go/internal/registry"
	"github.com/petenewcomb/lifo-go/internal/state"
	"golang.org/x/sys/cpu"
)

// Freer is the part of an arena that a domain needs.
type Freer interface {
	Free(arena.Ref)
}

// Domain is the set of hazard-pointer records that guard one arena.
type Domain struct {
	freer     Freer
	threshold int
	reclaimed func(int)
	records   *registry.Registry[Record]
	retained  state.Counter
}

// New returns a domain that frees nodes through freer. A record scans once it
// holds max(threshold, 2·records) retired refs. If reclaimed is not nil it is
// called with the number of nodes freed by every scan that frees any.
func New(freer Freer, threshold int, reclaimed func(int)) *Domain {
	return &Domain{
		freer:     freer,
		threshold: max(threshold, 1),
		reclaimed: reclaimed,
		records:   registry.New[Record](),
	}
}

// Record is one participant's hazard slot and retired list. A record is used
// by one goroutine at a time, between Acquire and Release.
type Record struct {
	_      cpu.CacheLinePad
	slot   atomic.Uint32
	_      cpu.CacheLinePad
	domain *Domain

	retired   deque.Deque[arena.Ref]
	protected []arena.Ref
}

// Acquire returns a record for the calling goroutine.
func (d *Domain) Acquire() *Record {
	r, _ := d.records.Acquire(func() *Record {
		return &Record{domain: d}
	})
	return r
}

// Retained returns the number of retired nodes not yet freed.
func (d *Domain) Retained() int {
	return d.retained.Value()
}

// Participants returns the number of records ever registered.
func (d *Domain) Participants() int {
	return d.records.Len()
}

// Active returns the number of records currently acquired.
func (d *Domain) Active() int {
	return d.records.Active()
}

// Drain frees every retired node. It must only be called when no record is
// acquired.
func (d *Domain) Drain() int {
	freed := 0
	d.records.Each(func(r *Record) bool {
		for r.retired.Len() != 0 {
			d.freer.Free(r.retired.PopFront())
			freed++
		}
		return true
	})
	d.retained.Sub(int64(freed))
	return freed
}

// Begin starts a protected region. Hazard pointers need no setup; the slot is
// written by Protect.
func (r *Record) Begin() {}

// Protect loads a ref from src and announces it. On return the node it names,
// if any, cannot be freed until End, since src still held the ref after it was
// announced.
func (r *Record) Protect(src *atomic.Uint32) arena.Ref {
	ref := arena.Ref(src.Load())
	for ref != arena.Nil {
		r.slot.Store(uint32(ref))
		again := arena.Ref(src.Load())
		if again == ref {
			break
		}
		ref = again
	}
	if ref == arena.Nil {
		r.slot.Store(0)
	}
	return ref
}

// End clears the announcement.
func (r *Record) End() {
	r.slot.Store(0)
}

// Retire hands a node that is no longer reachable to the domain. The caller
// must have already unlinked it.
func (r *Record) Retire(ref arena.Ref) {
	d := r.domain
	r.retired.PushBack(ref)
	d.retained.Increment()
	if r.retired.Len() >= max(d.threshold, 2*d.records.Len()) {
		r.scan()
	}
}

// Flush frees whatever this record has retired that no slot announces, and
// returns the number of nodes freed.
func (r *Record) Flush() int {
	return r.scan()
}

// Release gives the record back to the domain. Its retired nodes stay with it
// and are scanned by whoever acquires it next.
func (r *Record) Release() {
	r.slot.Store(0)
	r.domain.records.Release(r)
}

func (r *Record) scan() int {
	if r.retired.Len() == 0 {
		return 0
	}
	d := r.domain

	protected := r.protected[:0]
	d.records.Each(func(o *Record) bool {
		if ref := arena.Ref(o.slot.Load()); ref != arena.Nil {
			protected = append(protected, ref)
		}
		return true
	})
	slices.Sort(protected)
	r.protected = protected

	freed := 0
	for range r.retired.Len() {
		ref := r.retired.PopFront()
		if _, found := slices.BinarySearch(protected, ref); found {
			r.retired.PushBack(ref)
			continue
		}
		d.freer.Free(ref)
		freed++
	}
	if freed != 0 {
		d.retained.Sub(int64(freed))
		if d.reclaimed != nil {
			d.reclaimed(freed)
		}
	}
	return freed
}
