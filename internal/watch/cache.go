package watch

import (
	"sync"
	"time"

	"github.com/jpalmerr/fsmpoller/internal/probe"
)

// Entry is the latest probe outcome cached for an endpoint.
type Entry struct {
	State     string
	Err       error
	CheckedAt time.Time
}

// Cache holds the latest probed state per endpoint. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache returns an empty [Cache].
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Set replaces the entry for name.
func (c *Cache) Set(name string, e Entry) {
	c.mu.Lock()
	c.entries[name] = e
	c.mu.Unlock()
}

// Entry returns the cached entry for name.
func (c *Cache) Entry(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// State returns the cached state for name, or "unknown" before the first
// probe result arrives.
func (c *Cache) State(name string) string {
	if e, ok := c.Entry(name); ok {
		return e.State
	}
	return probe.StateUnknown
}

// Accessor returns a value accessor for name, suitable for fsmpoller.New.
func (c *Cache) Accessor(name string) func() string {
	return func() string { return c.State(name) }
}

// Consume stores every result received on results until the channel is
// closed.
func (c *Cache) Consume(results <-chan probe.Result) {
	for r := range results {
		c.Set(r.Target, Entry{State: r.State, Err: r.Err, CheckedAt: r.CheckedAt})
	}
}
