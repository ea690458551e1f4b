// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package lifo

type constError string

func (e constError) Error() string {
	return string(e)
}

// ErrExhausted is returned by Push when the node store is at capacity and
// reclaiming retired nodes did not free any room.
const ErrExhausted = constError("node store exhausted")
