package fsmpoller

import (
	"log/slog"
)

// Poller detects changes of a polled value and dispatches callbacks keyed on
// the observed transition or on the value currently held.
//
// A Poller is driven exclusively by [Poller.Update]. Each call reads the
// value once through the accessor supplied at construction, compares it to
// the value memoized by the previous call, and then:
//
//  1. if the two differ, invokes every matching transition watcher in
//     registration order and only afterwards memoizes the new value;
//  2. invokes every matching state observer in registration order, whether
//     or not a transition happened.
//
// Poller never blocks, sleeps, locks or starts goroutines. It is not safe for
// concurrent use: the caller must serialize Update and the registration
// methods, typically by confining the poller to the goroutine that runs the
// poll loop. The accessor may read data owned by other goroutines as long as
// it does its own synchronization.
//
// The zero value is not usable; construct with [New], [NewFromRef] or
// [NewWithInitial].
type Poller[S comparable] struct {
	last S
	get  func() S

	watchers  []watcher[S]
	observers []observer[S]

	dispatching bool

	name   string
	logger *slog.Logger
}

// New creates a [Poller] that reads its value through get.
//
// The accessor is invoked once during construction to seed the memoized
// value, so no transition is reported until the value actually changes.
//
// Returns [ErrNilAccessor] if get is nil, or the error of the first invalid
// option.
func New[S comparable](get func() S, opts ...Option) (*Poller[S], error) {
	if get == nil {
		return nil, ErrNilAccessor
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newPoller(get(), get, cfg), nil
}

// NewFromRef creates a [Poller] that reads the value stored at ref on every
// poll. The memoized value is seeded with the current contents of *ref.
//
// The poller does not own the referenced memory: the caller must keep it
// alive and must not write it concurrently with [Poller.Update]. When the
// value is written by another goroutine, use [New] with an accessor that
// takes the appropriate lock instead.
func NewFromRef[S comparable](ref *S, opts ...Option) (*Poller[S], error) {
	if ref == nil {
		return nil, ErrNilAccessor
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newPoller(*ref, func() S { return *ref }, cfg), nil
}

// NewWithInitial creates a [Poller] whose memoized value is seeded with
// initial instead of a first read through get.
//
// get is not invoked during construction. If the first live read differs
// from initial, the first [Poller.Update] reports a transition from initial,
// which lets callers fire "entered state" callbacks for the starting state.
func NewWithInitial[S comparable](initial S, get func() S, opts ...Option) (*Poller[S], error) {
	if get == nil {
		return nil, ErrNilAccessor
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newPoller(initial, get, cfg), nil
}

func newPoller[S comparable](initial S, get func() S, cfg *pollerConfig) *Poller[S] {
	return &Poller[S]{
		last:   initial,
		get:    get,
		name:   cfg.name,
		logger: cfg.logger,
	}
}

// Value returns a fresh read through the accessor, bypassing the memoized
// value. It has no side effects on the poller.
func (p *Poller[S]) Value() S {
	return p.get()
}

// Last returns the value memoized by the most recent [Poller.Update], or the
// seed value if Update has not completed a transition yet.
func (p *Poller[S]) Last() S {
	return p.last
}

// Len reports how many transition watchers and state observers are
// registered. Fan-out registrations count once per generated entry.
func (p *Poller[S]) Len() (watchers, observers int) {
	return len(p.watchers), len(p.observers)
}

// Update performs one poll.
//
// Errors and panics raised by the accessor or by a callback are not
// recovered or wrapped; they end the poll at the point of failure and are
// returned (or propagate) to the caller unchanged. A failing watcher leaves
// the memoized value untouched and skips every remaining callback. A failing
// observer skips the remaining observers; the memoized value has already
// been updated at that point.
//
// Calling Update from inside one of this poller's callbacks returns
// [ErrReentrantUpdate] without reading the accessor. Callbacks may register
// further watchers or observers; those take part from the next poll on.
func (p *Poller[S]) Update() error {
	if p.dispatching {
		return ErrReentrantUpdate
	}
	p.dispatching = true
	defer func() { p.dispatching = false }()

	current := p.get()

	if current != p.last {
		event := TransitionEvent[S]{From: p.last, To: current}
		p.logger.Debug("transition detected",
			"poller", p.name,
			"from", event.From,
			"to", event.To,
		)

		// iterate over the slice header captured here so that registrations
		// made by callbacks do not join this dispatch
		watchers := p.watchers
		for _, w := range watchers {
			if !w.match(event) {
				continue
			}
			if err := w.cb(event); err != nil {
				return err
			}
		}
		p.last = current
	}

	observers := p.observers
	for _, o := range observers {
		if !o.match(current) {
			continue
		}
		if err := o.cb(current); err != nil {
			return err
		}
	}

	return nil
}

func (p *Poller[S]) watch(match func(TransitionEvent[S]) bool, cb TransitionCallback[S]) {
	p.watchers = append(p.watchers, watcher[S]{match: match, cb: cb})
}

func (p *Poller[S]) observe(match func(S) bool, cb StateCallback[S]) {
	p.observers = append(p.observers, observer[S]{match: match, cb: cb})
}

// To registers cb for every transition whose destination equals target.
func (p *Poller[S]) To(target S, cb TransitionCallback[S]) {
	p.watch(func(e TransitionEvent[S]) bool { return e.To == target }, cb)
}

// ToStates registers cb once per element of targets, exactly as if [Poller.To]
// were called for each. Repeated elements produce repeated invocations.
func (p *Poller[S]) ToStates(targets []S, cb TransitionCallback[S]) {
	for _, target := range targets {
		p.To(target, cb)
	}
}

// From registers cb for every transition whose source equals source.
func (p *Poller[S]) From(source S, cb TransitionCallback[S]) {
	p.watch(func(e TransitionEvent[S]) bool { return e.From == source }, cb)
}

// FromStates registers cb once per element of sources.
func (p *Poller[S]) FromStates(sources []S, cb TransitionCallback[S]) {
	for _, source := range sources {
		p.From(source, cb)
	}
}

// FromTo registers cb for transitions from source to target.
func (p *Poller[S]) FromTo(source, target S, cb TransitionCallback[S]) {
	p.watch(func(e TransitionEvent[S]) bool {
		return e.From == source && e.To == target
	}, cb)
}

// FromToStates registers cb once per (source, target) pair of the cross
// product, iterating sources in the outer loop.
func (p *Poller[S]) FromToStates(sources, targets []S, cb TransitionCallback[S]) {
	for _, source := range sources {
		for _, target := range targets {
			p.FromTo(source, target, cb)
		}
	}
}

// AnyTransition registers cb for every detected transition.
func (p *Poller[S]) AnyTransition(cb TransitionCallback[S]) {
	p.watch(func(TransitionEvent[S]) bool { return true }, cb)
}

// ExecuteWhileInState registers cb to run on every poll that reads state,
// including polls where nothing changed.
func (p *Poller[S]) ExecuteWhileInState(state S, cb StateCallback[S]) {
	p.observe(func(current S) bool { return current == state }, cb)
}

// ExecuteWhileInStates registers cb once per element of states.
func (p *Poller[S]) ExecuteWhileInStates(states []S, cb StateCallback[S]) {
	for _, state := range states {
		p.ExecuteWhileInState(state, cb)
	}
}
