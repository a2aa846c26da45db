// Package mediaplayer is the demonstration collaborator for fsmpoller.
//
// [Player] is a tiny thread-safe media player whose state is changed from one
// goroutine and polled from another. [RunDemo] wires a [fsmpoller.Poller] to
// it and plays a short script: play, pause, play, stop.
//
// The player owns its synchronization; the poller only sees the [Player.State]
// accessor.
package mediaplayer
