package store

import "time"

// EndpointState is the most recent state observed for one endpoint.
type EndpointState struct {
	// Name is the endpoint's configured name.
	Name string `json:"name"`

	// URL is the probed URL.
	URL string `json:"url"`

	// State is the value the endpoint's poller last memoized.
	State string `json:"state"`

	// Labels carries the endpoint's configured metadata.
	Labels map[string]string `json:"labels,omitempty"`

	// Since is when the endpoint entered State. Zero until the first
	// transition is observed.
	Since time.Time `json:"since"`

	// CheckedAt is the time of the poll that produced this record.
	CheckedAt time.Time `json:"checked_at"`

	// Error is the last probe error, if any.
	Error *string `json:"error"`
}

// Transition is one detected state change.
type Transition struct {
	// ID is assigned by the store when the transition is recorded.
	ID       string    `json:"id"`
	Endpoint string    `json:"endpoint"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
}

// Store defines storage and subscription for watch output.
//
// Implementations must be safe for concurrent access.
type Store interface {
	// SetState replaces the record for state.Name.
	SetState(state EndpointState)

	// States returns a snapshot of all endpoint records sorted by name.
	States() []EndpointState

	// Record appends t to the history, assigns its ID, notifies
	// subscribers and returns the stored copy.
	Record(t Transition) Transition

	// Transitions returns up to limit transitions, newest first, optionally
	// filtered by endpoint name. A limit <= 0 returns the whole history.
	Transitions(endpoint string, limit int) []Transition

	// Subscribe returns a channel receiving recorded transitions.
	// Caller must call Unsubscribe when done.
	Subscribe() <-chan Transition

	// Unsubscribe removes a subscription and closes its channel.
	// Safe to call with an unknown or already removed channel.
	Unsubscribe(ch <-chan Transition)
}
