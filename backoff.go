// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package lifo

import (
	"math/rand/v2"
)

// point names a step of a push or pop attempt at which a test hook may
// intervene.
type point int

const (
	pointLoad point = iota
	pointCAS
	pointSucceeded
	pointFailed
	pointEmpty
)

// backoff spins for a random number of iterations after each lost race, with
// the upper bound doubling up to a limit. The zero value is ready to use.
type backoff struct {
	bound int
}

func (b *backoff) wait(limit int) {
	if limit <= 0 {
		return
	}
	b.bound = min(max(2*b.bound, 1), limit)
	for range rand.IntN(b.bound) + 1 {
		spin()
	}
}

//go:noinline
func spin() {}
