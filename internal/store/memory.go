package store

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

const (
	// DefaultHistorySize is used when NewMemoryStore is given a size <= 0.
	DefaultHistorySize = 500

	subscriberBuffer = 100
)

// MemoryStore is an in-memory implementation of [Store].
//
// The transition history is a ring of fixed capacity; once full, the oldest
// transition is overwritten.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]EndpointState
	history []Transition
	next    int // ring position of the next write
	full    bool

	subMu       sync.RWMutex
	subscribers map[chan Transition]struct{}
}

// NewMemoryStore creates a [MemoryStore] that keeps at most historySize
// transitions.
func NewMemoryStore(historySize int) *MemoryStore {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &MemoryStore{
		states:      make(map[string]EndpointState),
		history:     make([]Transition, historySize),
		subscribers: make(map[chan Transition]struct{}),
	}
}

// SetState stores state keyed by its Name.
func (m *MemoryStore) SetState(state EndpointState) {
	m.mu.Lock()
	m.states[state.Name] = state
	m.mu.Unlock()
}

// States returns a name-sorted copy of all endpoint records.
func (m *MemoryStore) States() []EndpointState {
	m.mu.RLock()
	out := make([]EndpointState, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Record stores t under a fresh ID and fans it out to subscribers.
func (m *MemoryStore) Record(t Transition) Transition {
	t.ID = uuid.NewString()

	m.mu.Lock()
	m.history[m.next] = t
	m.next = (m.next + 1) % len(m.history)
	if m.next == 0 {
		m.full = true
	}
	m.mu.Unlock()

	m.notify(t)
	return t
}

// Transitions walks the ring backwards from the newest entry.
func (m *MemoryStore) Transitions(endpoint string, limit int) []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := m.next
	if m.full {
		count = len(m.history)
	}

	out := make([]Transition, 0, min(count, max(limit, 0)))
	for i := 1; i <= count; i++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		idx := (m.next - i + len(m.history)) % len(m.history)
		t := m.history[idx]
		if endpoint != "" && t.Endpoint != endpoint {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Subscribe registers a buffered subscriber channel.
func (m *MemoryStore) Subscribe() <-chan Transition {
	ch := make(chan Transition, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes and closes ch.
func (m *MemoryStore) Unsubscribe(ch <-chan Transition) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for sub := range m.subscribers {
		if sub == ch {
			delete(m.subscribers, sub)
			close(sub)
			return
		}
	}
}

// notify never blocks: a full subscriber buffer drops t for that subscriber.
func (m *MemoryStore) notify(t Transition) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- t:
		default:
		}
	}
}
