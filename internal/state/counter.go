// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package state holds small lock-free bookkeeping primitives shared by the
// node store and the reclamation domains.
package state

import (
	"sync/atomic"
)

// Counter is a thread-safe gauge that can optionally be held under a ceiling.
// The zero value is a counter at zero.
type Counter struct {
	atomic.Int64
}

func (c *Counter) Increment() {
	c.Add(1)
}

// IncrementIfUnder increments the counter unless doing so would take it past
// limit. It reports whether the increment happened.
func (c *Counter) IncrementIfUnder(limit int64) bool {
	// Tentatively increment the counter and check against limit. If over limit,
	// remove the tentative increment and try again if we notice that another
	// goroutine has made room between the increment and decrement.
	for c.Add(1) > limit {
		if c.Add(-1) >= limit {
			return false
		}
	}
	return true
}

// Decrement decrements the counter and reports whether it reached zero. It
// panics if the counter would go negative, which always indicates a
// bookkeeping bug in the caller.
func (c *Counter) Decrement() bool {
	newValue := c.Add(-1)
	if newValue < 0 {
		panic("counter underflow")
	}
	return newValue == 0
}

// Sub removes n from the counter, with the same underflow check as Decrement.
func (c *Counter) Sub(n int64) {
	if c.Add(-n) < 0 {
		panic("counter underflow")
	}
}

func (c *Counter) Value() int {
	return int(c.Load())
}
