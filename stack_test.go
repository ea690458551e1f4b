// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package lifo_test

import (
	"fmt"
	"testing"

	"github.com/gammazero/deque"
	"github.com/petenewcomb/lifo-go"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var schemes = []lifo.Reclamation{lifo.HazardPointers, lifo.Epochs}

func configFor(scheme lifo.Reclamation) lifo.Config {
	config := lifo.DefaultConfig
	config.Reclamation = scheme
	return config
}

func forEachScheme(t *testing.T, f func(t *testing.T, config lifo.Config)) {
	for _, scheme := range schemes {
		t.Run(scheme.String(), func(t *testing.T) {
			f(t, configFor(scheme))
		})
	}
}

func TestLIFOOrder(t *testing.T) {
	forEachScheme(t, func(t *testing.T, config lifo.Config) {
		chk := require.New(t)
		s := lifo.NewWithConfig[int](config)
		const n = 2500
		for i := range n {
			chk.NoError(s.Push(i))
		}
		chk.Equal(n, s.Stats().Live())
		for i := n - 1; i >= 0; i-- {
			v, ok := s.Pop()
			chk.True(ok)
			chk.Equal(i, v)
		}
		_, ok := s.Pop()
		chk.False(ok)
		chk.Equal(0, s.Close())
		chk.Equal(0, s.Stats().InUse)
	})
}

func TestOneTwoThree(t *testing.T) {
	chk := require.New(t)
	s := lifo.New[int]()
	chk.NoError(s.Push(1))
	chk.NoError(s.Push(2))
	chk.NoError(s.Push(3))
	for _, want := range []int{3, 2, 1} {
		v, ok := s.Pop()
		chk.True(ok)
		chk.Equal(want, v)
	}
	v, ok := s.Pop()
	chk.False(ok)
	chk.Zero(v)
}

func TestRoundTrip(t *testing.T) {
	forEachScheme(t, func(t *testing.T, config lifo.Config) {
		chk := require.New(t)
		s := lifo.NewWithConfig[string](config)
		chk.NoError(s.Push("x"))
		v, ok := s.Pop()
		chk.True(ok)
		chk.Equal("x", v)
		chk.Equal(0, s.Stats().Live())
	})
}

func TestEmptyPopIsIdempotent(t *testing.T) {
	forEachScheme(t, func(t *testing.T, config lifo.Config) {
		chk := require.New(t)
		s := lifo.NewWithConfig[*int](config)
		before := s.Stats()
		for range 10 {
			v, ok := s.Pop()
			chk.False(ok)
			chk.Nil(v)
		}
		after := s.Stats()
		chk.Equal(before.InUse, after.InUse)
		chk.Equal(before.Retained, after.Retained)

		h := s.Attach()
		for range 10 {
			_, ok := h.Pop()
			chk.False(ok)
		}
		h.Release()
		chk.Equal(0, s.Stats().InUse)
	})
}

func TestPackageLevelCallsBorrowRecords(t *testing.T) {
	forEachScheme(t, func(t *testing.T, config lifo.Config) {
		chk := require.New(t)
		s := lifo.NewWithConfig[int](config)

		// A push that finds room never needs a record.
		for i := range 5 {
			chk.NoError(s.Push(i))
		}
		chk.Zero(s.Stats().Participants)

		// Each pop borrows a record and gives it back, so sequential pops
		// keep reusing the same one.
		for range 5 {
			_, ok := s.Pop()
			chk.True(ok)
			st := s.Stats()
			chk.Equal(1, st.Participants)
			chk.Zero(st.Active)
		}

		// A handle keeps its record, so a concurrent package-level pop
		// needs a second one.
		h := s.Attach()
		chk.Equal(1, s.Stats().Active)
		_, ok := s.Pop()
		chk.False(ok)
		st := s.Stats()
		chk.Equal(2, st.Participants)
		chk.Equal(1, st.Active)
		h.Release()
		chk.Zero(s.Stats().Active)
		s.Close()
	})
}

// TestStackWithRapid checks single-goroutine behavior against a deque used as
// a LIFO model, including exhaustion of a bounded store.
func TestStackWithRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		config := configFor(rapid.SampledFrom(schemes).Draw(t, "scheme"))
		config.Capacity = rapid.IntRange(0, 20).Draw(t, "capacity")
		config.ScanThreshold = rapid.IntRange(0, 8).Draw(t, "scanThreshold")
		s := lifo.NewWithConfig[int](config)

		var h *lifo.Handle[int]
		if rapid.Bool().Draw(t, "attach") {
			h = s.Attach()
		}
		push := func(v int) error {
			if h != nil {
				return h.Push(v)
			}
			return s.Push(v)
		}
		pop := func() (int, bool) {
			if h != nil {
				return h.Pop()
			}
			return s.Pop()
		}

		var model deque.Deque[int]

		t.Repeat(map[string]func(*rapid.T){
			"push": func(t *rapid.T) {
				v := rapid.Int().Draw(t, "value")
				err := push(v)
				if config.Capacity != 0 && model.Len() == config.Capacity {
					require.ErrorIs(t, err, lifo.ErrExhausted)
					return
				}
				require.NoError(t, err)
				model.PushBack(v)
			},
			"pop": func(t *rapid.T) {
				v, ok := pop()
				if model.Len() == 0 {
					require.False(t, ok, "Pop succeeded on empty stack")
					return
				}
				require.True(t, ok, "Pop failed on non-empty stack")
				require.Equal(t, model.PopBack(), v)
			},
			"": func(t *rapid.T) {
				require.Equal(t, model.Len(), s.Stats().Live())
			},
		})

		if h != nil {
			h.Release()
		}
		require.Equal(t, model.Len(), s.Close())
		require.Equal(t, 0, s.Stats().InUse)
	})
}

func TestExhaustion(t *testing.T) {
	forEachScheme(t, func(t *testing.T, config lifo.Config) {
		chk := require.New(t)
		var events []lifo.Event
		config.Capacity = 2
		config.Observer = lifo.ObserverFunc(func(e lifo.Event) {
			events = append(events, e)
		})
		s := lifo.NewWithConfig[int](config)

		chk.NoError(s.Push(1))
		chk.NoError(s.Push(2))
		err := s.Push(3)
		chk.ErrorIs(err, lifo.ErrExhausted)
		chk.Equal(lifo.Event{Kind: lifo.EventExhausted, Count: 2}, events[len(events)-1])
		chk.Equal(2, s.Stats().Live())

		// The popped node is still retired, but the failed allocation
		// reclaims it.
		v, ok := s.Pop()
		chk.True(ok)
		chk.Equal(2, v)
		chk.NoError(s.Push(3))
		v, ok = s.Pop()
		chk.True(ok)
		chk.Equal(3, v)
	})
}

func TestClose(t *testing.T) {
	forEachScheme(t, func(t *testing.T, config lifo.Config) {
		chk := require.New(t)
		s := lifo.NewWithConfig[int](config)
		for i := range 10 {
			chk.NoError(s.Push(i))
		}
		for range 4 {
			_, ok := s.Pop()
			chk.True(ok)
		}
		chk.Equal(10, s.Stats().InUse)

		h := s.Attach()
		chk.PanicsWithValue("stack closed with attached handles", func() { s.Close() })
		h.Release()

		chk.Equal(6, s.Close())
		stats := s.Stats()
		chk.Equal(0, stats.InUse)
		chk.Equal(0, stats.Retained)
		chk.Equal(0, stats.Active)

		chk.PanicsWithValue("stack already closed", func() { s.Close() })
		chk.PanicsWithValue("use of closed stack", func() { _ = s.Push(1) })
		chk.PanicsWithValue("use of closed stack", func() { s.Pop() })
		chk.PanicsWithValue("use of closed stack", func() { s.Attach() })
	})
}

func TestReleasedHandlePanics(t *testing.T) {
	chk := require.New(t)
	s := lifo.New[int]()
	h := s.Attach()
	chk.Equal(1, s.Stats().Active)
	h.Release()
	chk.Equal(0, s.Stats().Active)
	chk.PanicsWithValue("use of released handle", func() { _ = h.Push(1) })
	chk.PanicsWithValue("use of released handle", func() { h.Pop() })
	chk.PanicsWithValue("use of released handle", func() { h.Flush() })
	chk.PanicsWithValue("use of released handle", func() { h.Release() })
}

func TestInvalidConfig(t *testing.T) {
	chk := require.New(t)
	chk.PanicsWithValue("invalid reclamation scheme Reclamation(7)", func() {
		lifo.NewWithConfig[int](lifo.Config{Reclamation: 7})
	})
	chk.PanicsWithValue("negative capacity", func() {
		lifo.NewWithConfig[int](lifo.Config{Capacity: -1})
	})
	chk.PanicsWithValue("negative scan threshold", func() {
		lifo.NewWithConfig[int](lifo.Config{ScanThreshold: -1})
	})
	chk.PanicsWithValue("negative backoff", func() {
		lifo.NewWithConfig[int](lifo.Config{MaxBackoff: -1})
	})
	chk.Equal("hazard", lifo.HazardPointers.String())
	chk.Equal("epoch", lifo.Epochs.String())
}

// TestStaleHeadIsNotReused pauses one pop between reading the head and its
// CAS, and meanwhile pops that node and forces the store to recycle whatever
// it can. If the paused node were recycled and pushed again, the paused CAS
// would succeed against a different logical node and install a stale link.
func TestStaleHeadIsNotReused(t *testing.T) {
	forEachScheme(t, func(t *testing.T, config lifo.Config) {
		chk := require.New(t)
		config.Capacity = 2
		config.ScanThreshold = 1
		s := lifo.NewWithConfig[int](config)
		chk.NoError(s.Push(1))
		chk.NoError(s.Push(2))

		paused := make(chan struct{})
		resume := make(chan struct{})
		type result struct {
			v  int
			ok bool
		}
		done := make(chan result)

		h := s.Attach()
		first := true
		lifo.SetHook(h, func(pt lifo.Point) {
			if pt == lifo.PointCAS && first {
				first = false
				close(paused)
				<-resume
			}
		})
		go func() {
			v, ok := h.Pop()
			done <- result{v, ok}
		}()

		<-paused
		v, ok := s.Pop()
		chk.True(ok)
		chk.Equal(2, v)
		v, ok = s.Pop()
		chk.True(ok)
		chk.Equal(1, v)

		err := s.Push(3)
		switch config.Reclamation {
		case lifo.HazardPointers:
			// Only the node holding 1 is free to be recycled.
			chk.NoError(err)
		case lifo.Epochs:
			// The paused pop holds the epoch back, so nothing is.
			chk.ErrorIs(err, lifo.ErrExhausted)
		}
		close(resume)
		r := <-done
		h.Release()

		if err == nil {
			chk.True(r.ok)
			chk.Equal(3, r.v)
		} else {
			chk.False(r.ok)
		}
		_, ok = s.Pop()
		chk.False(ok)
		chk.Equal(0, s.Close())
	})
}

func ExampleStack() {
	s := lifo.New[string]()
	for _, word := range []string{"one", "two", "three"} {
		if err := s.Push(word); err != nil {
			panic(err)
		}
	}
	for {
		word, ok := s.Pop()
		if !ok {
			break
		}
		fmt.Println(word)
	}
	s.Close()
	// Output:
	// three
	// two
	// one
}
