// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package registry tracks the participant records of a reclamation domain.
//
// Records are only ever added to the registry, never removed, so that a
// scanning goroutine can walk the list without coordination. A record that is
// released goes onto an idle queue and is handed to the next goroutine that
// asks for one, which bounds the number of records by the peak number of
// simultaneous participants rather than by the total number of goroutines that
// ever took part.
package registry

import (
	"sync/atomic"

	"github.com/petenewcomb/lifo-go/internal/msq"
	"github.com/petenewcomb/lifo-go/internal/state"
)

type entry[R any] struct {
	record *R
	next   *entry[R]
}

// Registry is a lock-free set of records of type R. Use [New] to create one.
type Registry[R any] struct {
	head   atomic.Pointer[entry[R]]
	count  state.Counter
	active state.Counter
	idle   msq.Queue[*R]
}

func New[R any]() *Registry[R] {
	g := &Registry[R]{}
	g.idle.Init()
	return g
}

// Acquire returns an idle record if one is available, or else registers the
// record returned by newRecord. The second result reports whether the record
// is new. The record is published before Acquire returns, so every later call
// to Each will visit it.
func (g *Registry[R]) Acquire(newRecord func() *R) (*R, bool) {
	g.active.Increment()
	if r, ok := g.idle.PopFront(); ok {
		return r, false
	}
	e := &entry[R]{record: newRecord()}
	for {
		e.next = g.head.Load()
		if g.head.CompareAndSwap(e.next, e) {
			break
		}
	}
	g.count.Increment()
	return e.record, true
}

// Release makes r available to a later Acquire. The caller must not use r
// afterward.
func (g *Registry[R]) Release(r *R) {
	g.active.Decrement()
	g.idle.PushBack(r)
}

// Each calls f for every registered record, idle or not, until f returns
// false.
func (g *Registry[R]) Each(f func(*R) bool) {
	for e := g.head.Load(); e != nil; e = e.next {
		if !f(e.record) {
			return
		}
	}
}

// Len returns the number of registered records.
func (g *Registry[R]) Len() int {
	return g.count.Value()
}

// Active returns the number of records currently acquired.
func (g *Registry[R]) Active() int {
	return g.active.Value()
}
