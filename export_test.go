// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package lifo

// Point names the steps of an attempt at which SetHook's function is called.
type Point = point

const (
	PointLoad      = pointLoad
	PointCAS       = pointCAS
	PointSucceeded = pointSucceeded
	PointFailed    = pointFailed
	PointEmpty     = pointEmpty
)

// SetHook installs f to be called by h at each step of every push and pop
// attempt it makes.
func SetHook[T any](h *Handle[T], f func(Point)) {
	h.hook = f
}
