// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package lifo

import "fmt"

// EventKind identifies what an [Event] reports.
type EventKind int

const (
	// A push linked its node. Attempts is the number of CAS attempts it took.
	EventPush EventKind = iota + 1

	// A pop unlinked a node. Attempts is the number of CAS attempts it took.
	EventPop

	// A pop found the stack empty.
	EventEmpty

	// Retired nodes were returned to the node store. Count is how many.
	EventReclaim

	// A push failed with ErrExhausted. Count is the capacity of the store.
	EventExhausted
)

func (k EventKind) String() string {
	switch k {
	case EventPush:
		return "push"
	case EventPop:
		return "pop"
	case EventEmpty:
		return "empty"
	case EventReclaim:
		return "reclaim"
	case EventExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes something that happened to a [Stack].
type Event struct {
	Kind     EventKind
	Attempts int
	Count    int
}

// Observer receives events from a [Stack]. Observe is called synchronously on
// the goroutine that caused the event, after the operation has taken effect,
// and may be called from many goroutines at once. It must not call back into
// the stack.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts an ordinary function to the [Observer] interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// MultiObserver returns an observer that passes each event to every one of
// observers in turn. Nil entries are skipped.
func MultiObserver(observers ...Observer) Observer {
	var list []Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return multiObserver(list)
}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}
