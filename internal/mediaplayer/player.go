package mediaplayer

import "sync"

// State is the playback state of a [Player].
type State int

const (
	Stopped State = iota
	Paused
	Playing
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Player is a media player that is safe for concurrent use.
// A new Player is stopped.
type Player struct {
	mu    sync.Mutex
	state State
}

// New returns a stopped [Player].
func New() *Player {
	return &Player{state: Stopped}
}

// State returns the current playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Play starts or resumes playback from any state.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Playing
}

// Pause pauses playback. It is a no-op unless the player is playing.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Playing {
		p.state = Paused
	}
}

// Stop stops playback from any state.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Stopped
}
