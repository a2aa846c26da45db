package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/fsmpoller"
	"github.com/jpalmerr/fsmpoller/internal/store"
)

// Endpoint is a watched endpoint as the engine sees it.
type Endpoint struct {
	Name   string
	URL    string
	Labels map[string]string

	// InitialState, when set, seeds the poller so that the first probed
	// state is reported as a transition from it.
	InitialState string
}

// tracked is one endpoint with its poller and bookkeeping.
type tracked struct {
	endpoint Endpoint
	poller   *fsmpoller.Poller[string]
	since    time.Time

	// state is the destination of the last recorded transition. It can run
	// ahead of poller.Last when a later watcher fails the poll.
	state string
}

// Engine drives one poller per endpoint from a single goroutine.
//
// Engine is not safe for concurrent use; [Engine.Run] or [Engine.PollOnce]
// must be called from one goroutine at a time.
type Engine struct {
	tracked  []*tracked
	cache    *Cache
	store    store.Store
	interval time.Duration
	logger   *slog.Logger
}

// NewEngine builds the pollers for endpoints and installs rules on them.
//
// Each poller first gets a recorder that stores every transition, then the
// rules in the order given. Returns an error for duplicate endpoint names,
// a rule naming an unknown endpoint, or an invalid rule.
func NewEngine(endpoints []Endpoint, rules []Rule, cache *Cache, st store.Store, interval time.Duration, logger *slog.Logger) (*Engine, error) {
	if interval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	e := &Engine{
		cache:    cache,
		store:    st,
		interval: interval,
		logger:   logger,
	}

	known := make(map[string]bool, len(endpoints))
	for _, ep := range endpoints {
		if known[ep.Name] {
			return nil, fmt.Errorf("duplicate endpoint name: %q", ep.Name)
		}
		known[ep.Name] = true
	}

	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if !r.appliesTo("") && !known[r.Endpoint] {
			return nil, fmt.Errorf("rules[%d]: unknown endpoint %q", i, r.Endpoint)
		}
	}

	for _, ep := range endpoints {
		t, err := e.track(ep)
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			if r.appliesTo(ep.Name) {
				r.register(t.poller, ep.Name, logger)
			}
		}
		e.tracked = append(e.tracked, t)
	}

	return e, nil
}

func (e *Engine) track(ep Endpoint) (*tracked, error) {
	opts := []fsmpoller.Option{
		fsmpoller.WithName(ep.Name),
		fsmpoller.WithLogger(e.logger),
	}

	var (
		p   *fsmpoller.Poller[string]
		err error
	)
	if ep.InitialState != "" {
		p, err = fsmpoller.NewWithInitial(ep.InitialState, e.cache.Accessor(ep.Name), opts...)
	} else {
		p, err = fsmpoller.New(e.cache.Accessor(ep.Name), opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: %w", ep.Name, err)
	}

	t := &tracked{endpoint: ep, poller: p, state: p.Last()}
	p.AnyTransition(func(ev fsmpoller.TransitionEvent[string]) error {
		now := time.Now()
		t.since = now
		t.state = ev.To
		e.store.Record(store.Transition{
			Endpoint: ep.Name,
			From:     ev.From,
			To:       ev.To,
			At:       now,
		})
		return nil
	})
	return t, nil
}

// PollOnce updates every poller once, in endpoint order, and publishes the
// resulting states to the store.
//
// Endpoints without a probe result yet are not updated, so a seeded
// poller first transitions into the first probed state.
// A failing poller does not stop the others. If an exit rule fired, the
// returned error matches [ErrExitRequested]; other failures are joined.
func (e *Engine) PollOnce() error {
	var errs []error

	for _, t := range e.tracked {
		if _, ok := e.cache.Entry(t.endpoint.Name); !ok {
			e.publish(t)
			continue
		}
		if err := t.poller.Update(); err != nil {
			errs = append(errs, fmt.Errorf("endpoint %q: %w", t.endpoint.Name, err))
		}
		e.publish(t)
	}

	return errors.Join(errs...)
}

func (e *Engine) publish(t *tracked) {
	state := store.EndpointState{
		Name:   t.endpoint.Name,
		URL:    t.endpoint.URL,
		State:  t.state,
		Labels: t.endpoint.Labels,
		Since:  t.since,
	}
	if entry, ok := e.cache.Entry(t.endpoint.Name); ok {
		state.CheckedAt = entry.CheckedAt
		if entry.Err != nil {
			msg := entry.Err.Error()
			state.Error = &msg
		}
	}
	e.store.SetState(state)
}

// Run polls immediately and then every interval until ctx is cancelled or
// an exit rule fires. Both end Run with a nil error; other poll failures
// are logged and polling continues.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("watch loop started",
		"endpoints", len(e.tracked),
		"interval", e.interval.String(),
	)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		if err := e.PollOnce(); err != nil {
			if errors.Is(err, ErrExitRequested) {
				e.logger.Info("exit rule fired, stopping watch loop")
				return nil
			}
			e.logger.Warn("poll failed", "error", err.Error())
		}

		select {
		case <-ctx.Done():
			e.logger.Info("watch loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}
