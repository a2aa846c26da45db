// Package fsmpoller detects state transitions by polling a value.
//
// A [Poller] wraps a function that returns the current state of something
// the caller owns (a media player, a connection, the health of an HTTP
// endpoint). Every call to [Poller.Update] reads that function once,
// compares the result with the value seen by the previous call, and runs the
// callbacks registered for what it observed.
//
// There are no events and no timers. The poller only ever learns about the
// world when the caller asks it to look, which makes it a good fit for state
// that is already exposed as a getter and for loops that already tick.
//
// # Quick Start
//
//	player := mediaplayer.New()
//	p, _ := fsmpoller.New(player.State)
//
//	p.To(mediaplayer.Stopped, func(e fsmpoller.TransitionEvent[mediaplayer.State]) error {
//	    fmt.Println("stopped after", e.From)
//	    return nil
//	})
//	p.ExecuteWhileInState(mediaplayer.Playing, func(mediaplayer.State) error {
//	    fmt.Println("still playing")
//	    return nil
//	})
//
//	for range time.Tick(500 * time.Millisecond) {
//	    if err := p.Update(); err != nil {
//	        return err
//	    }
//	}
//
// # Watchers and Observers
//
// Transition watchers fire only when the value changed between two polls:
//
//   - [Poller.To] / [Poller.ToStates]: destination matches
//   - [Poller.From] / [Poller.FromStates]: source matches
//   - [Poller.FromTo] / [Poller.FromToStates]: both match
//   - [Poller.AnyTransition]: every change
//
// State observers fire on every poll whose value matches, changed or not:
//
//   - [Poller.ExecuteWhileInState] / [Poller.ExecuteWhileInStates]
//
// The multi-state variants are plain fan-out: they register one entry per
// state (or per pair), so overlapping registrations fire once each.
// Callbacks run in registration order, watchers before observers.
//
// # Errors
//
// Callbacks return an error. The first non-nil error stops the poll and is
// returned from Update as is; nothing is retried or aggregated. If a watcher
// fails, the memoized value keeps its old value, so the same transition is
// reported again on the next poll.
package fsmpoller
