package fsmpoller

import (
	"errors"
	"fmt"
)

var (
	// ErrNilAccessor is returned by the constructors when no way to read the
	// current value was supplied.
	ErrNilAccessor = errors.New("fsmpoller: value accessor must not be nil")

	// ErrReentrantUpdate is returned by [Poller.Update] when it is called from
	// inside a callback that the same poller is currently dispatching.
	ErrReentrantUpdate = errors.New("fsmpoller: update called during dispatch")
)

// TransitionEvent describes one detected change of the observed value.
//
// From is the value memoized by the previous poll, To is the value read by
// the current one. The two are never equal.
type TransitionEvent[S comparable] struct {
	From S
	To   S
}

// String renders the event as "from -> to".
func (e TransitionEvent[S]) String() string {
	return fmt.Sprintf("%v -> %v", e.From, e.To)
}

// TransitionCallback is invoked for a matching [TransitionEvent].
// A non-nil error aborts the remaining dispatch of that poll.
type TransitionCallback[S comparable] func(TransitionEvent[S]) error

// StateCallback is invoked with the value read by the current poll.
// A non-nil error aborts the remaining dispatch of that poll.
type StateCallback[S comparable] func(S) error

// watcher pairs a transition predicate with the callback it guards.
type watcher[S comparable] struct {
	match func(TransitionEvent[S]) bool
	cb    TransitionCallback[S]
}

// observer pairs a state predicate with the callback it guards.
type observer[S comparable] struct {
	match func(S) bool
	cb    StateCallback[S]
}
