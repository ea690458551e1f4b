// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package epoch_test

import (
	"sync/atomic"
	"testing"

	"github.com/petenewcomb/lifo-go/internal/arena"
	"github.com/petenewcomb/lifo-go/internal/epoch"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type freeLog struct {
	freed []arena.Ref
}

func (f *freeLog) Free(r arena.Ref) {
	f.freed = append(f.freed, r)
}

func TestEpochPinnedReaderBlocksFree(t *testing.T) {
	chk := require.New(t)
	var log freeLog
	var reclaims []int
	d := epoch.New(&log, 100, func(n int) { reclaims = append(reclaims, n) })

	var head atomic.Uint32
	head.Store(5)

	reader := d.Acquire()
	writer := d.Acquire()
	chk.Equal(2, d.Participants())

	reader.Begin()
	chk.Equal(arena.Ref(5), reader.Protect(&head))

	head.Store(0)
	writer.Retire(5)
	chk.Equal(1, d.Retained())

	// The reader is pinned at the epoch the node was retired in, so the
	// epoch can move forward once but not twice.
	chk.Zero(writer.Flush())
	chk.Empty(log.freed)
	chk.Equal(uint64(1), d.Epoch())

	reader.End()
	chk.Equal(1, writer.Flush())
	chk.Equal([]arena.Ref{5}, log.freed)
	chk.Equal(0, d.Retained())
	chk.Equal([]int{1}, reclaims)

	reader.Release()
	writer.Release()
	chk.Equal(0, d.Active())
}

func TestEpochThresholdTriggersCollection(t *testing.T) {
	chk := require.New(t)
	var log freeLog
	d := epoch.New(&log, 2, nil)
	r := d.Acquire()

	// Every second retirement advances the epoch once and frees what is two
	// epochs old.
	r.Retire(1)
	r.Retire(2) // epoch 0 -> 1
	chk.Empty(log.freed)
	r.Retire(3)
	r.Retire(4) // epoch 1 -> 2, frees 1 and 2
	chk.Equal([]arena.Ref{1, 2}, log.freed)
	chk.Equal(2, d.Retained())
	chk.Equal(uint64(2), d.Epoch())

	chk.Equal(2, r.Flush())
	chk.Equal([]arena.Ref{1, 2, 3, 4}, log.freed)
	r.Release()
}

func TestEpochDrain(t *testing.T) {
	chk := require.New(t)
	var log freeLog
	d := epoch.New(&log, 100, nil)
	a := d.Acquire()
	b := d.Acquire()
	a.Retire(1)
	b.Retire(2)
	a.Release()
	b.Release()

	chk.Equal(2, d.Drain())
	chk.ElementsMatch([]arena.Ref{1, 2}, log.freed)
	chk.Equal(0, d.Retained())
}

// TestEpochWithRapid checks that nothing retired while a reader was pinned is
// freed before that reader unpins.
func TestEpochWithRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		threshold := rapid.IntRange(1, 4).Draw(t, "threshold")
		var log freeLog
		d := epoch.New(&log, threshold, nil)

		const readers = 3
		var recs [readers]*epoch.Record
		var pinned [readers]bool
		// Refs retired while each reader has been pinned.
		var guarded [readers]map[arena.Ref]bool
		for i := range recs {
			recs[i] = d.Acquire()
			guarded[i] = map[arena.Ref]bool{}
		}
		retirer := d.Acquire()
		next := arena.Ref(1)

		t.Repeat(map[string]func(*rapid.T){
			"pin": func(t *rapid.T) {
				i := rapid.IntRange(0, readers-1).Draw(t, "reader")
				if pinned[i] {
					t.Skip("already pinned")
				}
				recs[i].Begin()
				pinned[i] = true
			},
			"unpin": func(t *rapid.T) {
				i := rapid.IntRange(0, readers-1).Draw(t, "reader")
				recs[i].End()
				pinned[i] = false
				clear(guarded[i])
			},
			"retire": func(t *rapid.T) {
				ref := next
				next++
				for i := range recs {
					if pinned[i] {
						guarded[i][ref] = true
					}
				}
				retirer.Retire(ref)
			},
			"flush": func(t *rapid.T) {
				retirer.Flush()
			},
			"": func(t *rapid.T) {
				for _, ref := range log.freed {
					for i := range guarded {
						require.False(t, guarded[i][ref], "freed ref %d while reader %d pinned", ref, i)
					}
				}
			},
		})
	})
}
