package watch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/fsmpoller/internal/probe"
	"github.com/jpalmerr/fsmpoller/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func set(c *Cache, name, state string) {
	c.Set(name, Entry{State: state, CheckedAt: time.Now()})
}

func newTestEngine(t *testing.T, endpoints []Endpoint, rules []Rule, logger *slog.Logger) (*Engine, *Cache, *store.MemoryStore) {
	t.Helper()
	cache := NewCache()
	st := store.NewMemoryStore(100)
	e, err := NewEngine(endpoints, rules, cache, st, 10*time.Millisecond, logger)
	require.NoError(t, err)
	return e, cache, st
}

func TestCache_UnknownBeforeFirstProbe(t *testing.T) {
	c := NewCache()
	assert.Equal(t, probe.StateUnknown, c.State("api"))

	set(c, "api", "up")
	assert.Equal(t, "up", c.Accessor("api")())
}

func TestCache_Consume(t *testing.T) {
	c := NewCache()
	results := make(chan probe.Result, 2)
	results <- probe.Result{Target: "a", State: "up"}
	results <- probe.Result{Target: "b", State: "down", Err: errors.New("refused")}
	close(results)

	c.Consume(results)

	assert.Equal(t, "up", c.State("a"))
	e, ok := c.Entry("b")
	require.True(t, ok)
	assert.Equal(t, "down", e.State)
	assert.EqualError(t, e.Err, "refused")
}

func TestEngine_RecordsTransitions(t *testing.T) {
	e, cache, st := newTestEngine(t, []Endpoint{{Name: "api", URL: "http://api"}}, nil, testLogger())

	// poller was seeded with "unknown"
	require.NoError(t, e.PollOnce())
	assert.Empty(t, st.Transitions("", 0))

	set(cache, "api", "up")
	require.NoError(t, e.PollOnce())
	require.NoError(t, e.PollOnce())

	set(cache, "api", "down")
	require.NoError(t, e.PollOnce())

	history := st.Transitions("api", 0)
	require.Len(t, history, 2)
	assert.Equal(t, "up", history[0].From)
	assert.Equal(t, "down", history[0].To)
	assert.Equal(t, probe.StateUnknown, history[1].From)
	assert.Equal(t, "up", history[1].To)

	states := st.States()
	require.Len(t, states, 1)
	assert.Equal(t, "down", states[0].State)
	assert.Equal(t, "http://api", states[0].URL)
	assert.False(t, states[0].Since.IsZero())
}

func TestEngine_InitialStateForcesTransition(t *testing.T) {
	e, cache, st := newTestEngine(t, []Endpoint{{Name: "player", InitialState: "stopped"}}, nil, testLogger())
	set(cache, "player", "playing")

	require.NoError(t, e.PollOnce())

	history := st.Transitions("player", 0)
	require.Len(t, history, 1)
	assert.Equal(t, "stopped", history[0].From)
	assert.Equal(t, "playing", history[0].To)
}

func TestEngine_WaitsForFirstProbe(t *testing.T) {
	e, cache, st := newTestEngine(t, []Endpoint{{Name: "player", InitialState: "stopped"}}, nil, testLogger())

	require.NoError(t, e.PollOnce())
	require.NoError(t, e.PollOnce())
	assert.Empty(t, st.Transitions("", 0))

	states := st.States()
	require.Len(t, states, 1)
	assert.Equal(t, "stopped", states[0].State)
	assert.True(t, states[0].CheckedAt.IsZero())

	set(cache, "player", "playing")
	require.NoError(t, e.PollOnce())

	history := st.Transitions("player", 0)
	require.Len(t, history, 1)
	assert.Equal(t, "stopped", history[0].From)
	assert.Equal(t, "playing", history[0].To)
}

func TestEngine_PublishesProbeError(t *testing.T) {
	e, cache, st := newTestEngine(t, []Endpoint{{Name: "api"}}, nil, testLogger())
	cache.Set("api", Entry{State: "down", Err: errors.New("connection refused"), CheckedAt: time.Now()})

	require.NoError(t, e.PollOnce())

	states := st.States()
	require.Len(t, states, 1)
	require.NotNil(t, states[0].Error)
	assert.Equal(t, "connection refused", *states[0].Error)
}

func TestEngine_RulesLog(t *testing.T) {
	var buf bytes.Buffer
	rules := []Rule{
		{Endpoint: "api", Kind: OnFromTo, From: []string{"up"}, To: []string{"down"}, Level: slog.LevelWarn, Message: "api went down"},
		{Kind: OnWhile, States: []string{"down"}, Level: slog.LevelInfo, Message: "still down"},
		{Endpoint: "web", Kind: OnTo, To: []string{"down"}, Level: slog.LevelError, Message: "web went down"},
	}
	e, cache, _ := newTestEngine(t, []Endpoint{{Name: "api"}, {Name: "web"}}, rules, bufferLogger(&buf))

	set(cache, "api", "up")
	set(cache, "web", "up")
	require.NoError(t, e.PollOnce())

	buf.Reset()
	set(cache, "api", "down")
	require.NoError(t, e.PollOnce())
	require.NoError(t, e.PollOnce())

	out := buf.String()
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("api went down")))
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("still down")))
	assert.NotContains(t, out, "web went down")
	assert.Contains(t, out, "level=WARN")
}

func TestEngine_ExitRule(t *testing.T) {
	rules := []Rule{{Endpoint: "*", Kind: OnTo, To: []string{"stopped"}, Action: ActionExit}}
	e, cache, st := newTestEngine(t, []Endpoint{{Name: "player"}}, rules, testLogger())

	set(cache, "player", "playing")
	require.NoError(t, e.PollOnce())

	set(cache, "player", "stopped")
	err := e.PollOnce()
	assert.ErrorIs(t, err, ErrExitRequested)

	// the recorder runs before the rule, so the transition is kept
	history := st.Transitions("player", 0)
	require.NotEmpty(t, history)
	assert.Equal(t, "stopped", history[0].To)

	states := st.States()
	require.Len(t, states, 1)
	assert.Equal(t, "stopped", states[0].State)
}

func TestEngine_RunStopsOnExitRule(t *testing.T) {
	rules := []Rule{{Kind: OnWhile, States: []string{"done"}, Action: ActionExit}}
	e, cache, _ := newTestEngine(t, []Endpoint{{Name: "job"}}, rules, testLogger())

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	set(cache, "job", "done")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after exit rule")
	}
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	e, _, _ := newTestEngine(t, []Endpoint{{Name: "api"}}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestNewEngine_Errors(t *testing.T) {
	cache := NewCache()
	st := store.NewMemoryStore(10)

	tests := []struct {
		name      string
		endpoints []Endpoint
		rules     []Rule
		interval  time.Duration
		wantErr   string
	}{
		{
			name:      "duplicate endpoint",
			endpoints: []Endpoint{{Name: "a"}, {Name: "a"}},
			interval:  time.Second,
			wantErr:   "duplicate endpoint name",
		},
		{
			name:      "unknown endpoint",
			endpoints: []Endpoint{{Name: "a"}},
			rules:     []Rule{{Endpoint: "b", Kind: OnAny}},
			interval:  time.Second,
			wantErr:   `unknown endpoint "b"`,
		},
		{
			name:      "invalid rule",
			endpoints: []Endpoint{{Name: "a"}},
			rules:     []Rule{{Kind: OnTo}},
			interval:  time.Second,
			wantErr:   "rules[0]",
		},
		{
			name:      "zero interval",
			endpoints: []Endpoint{{Name: "a"}},
			wantErr:   "poll interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.endpoints, tt.rules, cache, st, tt.interval, testLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"to ok", Rule{Kind: OnTo, To: []string{"a"}}, false},
		{"to with from", Rule{Kind: OnTo, To: []string{"a"}, From: []string{"b"}}, true},
		{"from ok", Rule{Kind: OnFrom, From: []string{"a"}}, false},
		{"from missing", Rule{Kind: OnFrom}, true},
		{"from_to ok", Rule{Kind: OnFromTo, From: []string{"a"}, To: []string{"b"}}, false},
		{"from_to missing to", Rule{Kind: OnFromTo, From: []string{"a"}}, true},
		{"any ok", Rule{Kind: OnAny}, false},
		{"any with states", Rule{Kind: OnAny, States: []string{"a"}}, true},
		{"while ok", Rule{Kind: OnWhile, States: []string{"a"}}, false},
		{"while missing", Rule{Kind: OnWhile}, true},
		{"to with states", Rule{Kind: OnTo, To: []string{"a"}, States: []string{"b"}}, true},
		{"unknown kind", Rule{Kind: "sometimes"}, true},
		{"exit action", Rule{Kind: OnAny, Action: ActionExit}, false},
		{"unknown action", Rule{Kind: OnAny, Action: "page"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
