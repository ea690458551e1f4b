// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package epoch implements epoch-based reclamation for arena nodes, after Keir
// Fraser, "Practical lock-freedom", Cambridge TR-579, 2004.
//
// A participant pins itself to the current global epoch for the duration of
// every access to shared nodes. The global epoch only advances once every
// pinned participant has observed it, so a node retired at epoch e cannot be
// held by anyone once the global epoch reaches e+2.
package epoch

import (
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

// Domain is the epoch clock and participant records that guard one arena.
type Domain struct {
	_      cpu.CacheLinePad
	global atomic.Uint64
	_      cpu.CacheLinePad

	freer     Freer
	threshold int
	reclaimed func(int)
	records   *registry.Registry[Record]
	retained  state.Counter
}

// New returns a domain that frees nodes through freer. A record tries to
// advance the epoch and collect its limbo list after every threshold
// retirements. If reclaimed is not nil it is called with the number of nodes
// freed by every collection that frees any.
func New(freer Freer, threshold int, reclaimed func(int)) *Domain {
	return &Domain{
		freer:     freer,
		threshold: max(threshold, 1),
		reclaimed: reclaimed,
		records:   registry.New[Record](),
	}
}

type retiree struct {
	ref   arena.Ref
	epoch uint64
}

// Record is one participant's pin and limbo list. A record is used by one
// goroutine at a time, between Acquire and Release.
type Record struct {
	_     cpu.CacheLinePad
	local atomic.Uint64 // epoch<<1 | 1 while pinned, zero otherwise
	_     cpu.CacheLinePad

	domain   *Domain
	limbo    deque.Deque[retiree]
	sinceTry int
}

// Acquire returns a record for the calling goroutine.
func (d *Domain) Acquire() *Record {
	r, _ := d.records.Acquire(func() *Record {
		return &Record{domain: d}
	})
	return r
}

// Epoch returns the current global epoch.
func (d *Domain) Epoch() uint64 {
	return d.global.Load()
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
		for r.limbo.Len() != 0 {
			d.freer.Free(r.limbo.PopFront().ref)
			freed++
		}
		return true
	})
	d.retained.Sub(int64(freed))
	return freed
}

// Begin pins the record to the current epoch.
func (r *Record) Begin() {
	r.local.Store(r.domain.global.Load()<<1 | 1)
}

// Protect loads a ref from src. The pin taken by Begin already keeps every
// node reachable after that point from being freed.
func (r *Record) Protect(src *atomic.Uint32) arena.Ref {
	return arena.Ref(src.Load())
}

// End unpins the record.
func (r *Record) End() {
	r.local.Store(0)
}

// Retire hands a node that is no longer reachable to the domain. The caller
// must have already unlinked it.
func (r *Record) Retire(ref arena.Ref) {
	d := r.domain
	r.limbo.PushBack(retiree{ref: ref, epoch: d.global.Load()})
	d.retained.Increment()
	r.sinceTry++
	if r.sinceTry >= d.threshold {
		r.sinceTry = 0
		d.tryAdvance()
		r.collect()
	}
}

// Flush tries to advance the epoch far enough to free everything this record
// has retired, and returns the number of nodes freed. It frees less if another
// participant stays pinned to an older epoch.
func (r *Record) Flush() int {
	freed := 0
	for range 3 {
		if r.limbo.Len() == 0 {
			break
		}
		r.domain.tryAdvance()
		freed += r.collect()
	}
	return freed
}

// Release gives the record back to the domain. Its limbo list stays with it
// and is collected by whoever acquires it next.
func (r *Record) Release() {
	r.local.Store(0)
	r.domain.records.Release(r)
}

// tryAdvance moves the global epoch forward by one if every pinned record is
// pinned to the current epoch, and reports whether the epoch moved, whether
// by this call or a racing one.
func (d *Domain) tryAdvance() bool {
	e := d.global.Load()
	current := true
	d.records.Each(func(o *Record) bool {
		local := o.local.Load()
		if local&1 != 0 && local>>1 != e {
			current = false
		}
		return current
	})
	if !current {
		return false
	}
	d.global.CompareAndSwap(e, e+1)
	return true
}

// collect frees the limbo entries that are at least two epochs old. Entries
// are appended in non-decreasing epoch order, so it stops at the first one
// that is too young.
func (r *Record) collect() int {
	d := r.domain
	e := d.global.Load()
	freed := 0
	for r.limbo.Len() != 0 {
		if r.limbo.Front().epoch+2 > e {
			break
		}
		d.freer.Free(r.limbo.PopFront().ref)
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
