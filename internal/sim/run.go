// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"cmp"
	"fmt"

	"github.com/addrummond/heap"
	"pgregory.net/rapid"
)

// Thread is the body of a simulated thread. It must call g.Wait before every
// step that reads or writes state shared with other threads, and must not
// block on anything else.
type Thread func(g *Gate)

// Gate is a thread's connection to the scheduler. Its methods may only be
// called from the thread it was passed to.
type Gate struct {
	s     *scheduler
	id    int
	grant chan struct{}
}

// Wait parks the thread until the scheduler lets it take its next step.
func (g *Gate) Wait() {
	g.s.reports <- report{id: g.id}
	<-g.grant
}

// Succeeded records that the step just taken completed an operation by
// changing shared state.
func (g *Gate) Succeeded() {
	g.s.result.Successes++
}

// Completed records that the step just taken completed an operation without
// changing shared state.
func (g *Gate) Completed() {
	g.s.result.Completions++
}

// Failed records that the step just taken lost a race and must be retried.
func (g *Gate) Failed() {
	g.s.result.Failures++
}

type report struct {
	id   int
	done bool
}

type wakeEvent struct {
	time int
	seq  int
	gate *Gate
}

func (a *wakeEvent) Cmp(b *wakeEvent) int {
	if c := cmp.Compare(a.time, b.time); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

type scheduler struct {
	t       *rapid.T
	config  *Config
	reports chan report
	events  heap.Heap[wakeEvent, heap.Min]
	now     int
	seq     int

	// Only touched by whichever goroutine currently holds the grant, which
	// the channel handoffs order.
	result Result
}

// Run starts threads and schedules them one step at a time until all of them
// have returned. It must be called from the goroutine running the rapid
// property, since it draws the schedule from t.
func Run(t *rapid.T, config *Config, threads ...Thread) Result {
	if config == nil {
		config = &DefaultConfig
	}
	if config.MaxJitter < 0 {
		panic("MaxJitter may not be less than zero")
	}
	s := &scheduler{
		t:       t,
		config:  config,
		reports: make(chan report),
	}

	for id, thread := range threads {
		g := &Gate{s: s, id: id, grant: make(chan struct{})}
		go func() {
			<-g.grant
			thread(g)
			s.reports <- report{id: id, done: true}
		}()
		s.schedule(g)
	}

	started := make([]bool, len(threads))
	stall := 0
	for {
		event, ok := heap.PopOrderable(&s.events)
		if !ok {
			break
		}
		s.now = event.time
		g := event.gate
		before := s.result.Progress()

		g.grant <- struct{}{}
		r := <-s.reports
		if r.id != g.id {
			panic(fmt.Sprintf("thread %d reported while thread %d held the grant", r.id, g.id))
		}

		if started[g.id] {
			s.result.Steps++
			if s.result.Progress() > before {
				stall = 0
			} else {
				stall++
				s.result.MaxStall = max(s.result.MaxStall, stall)
			}
		}
		started[g.id] = true
		if s.config.Debug {
			t.Logf("t=%d thread %d done=%v %+v", s.now, g.id, r.done, s.result)
		}
		if !r.done {
			s.schedule(g)
		}
	}
	return s.result
}

func (s *scheduler) schedule(g *Gate) {
	delay := 1
	if s.config.MaxJitter > 0 {
		delay += rapid.IntRange(0, s.config.MaxJitter).Draw(s.t, "jitter")
	}
	heap.PushOrderable(&s.events, wakeEvent{time: s.now + delay, seq: s.seq, gate: g})
	s.seq++
}
