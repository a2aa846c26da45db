// Package server exposes the watch state over HTTP.
//
//   - GET /healthz: liveness probe
//   - GET /api/states: JSON snapshot of every endpoint's current state
//   - GET /api/transitions: JSON transition history, ?endpoint= and ?limit=
//   - GET /api/sse: Server-Sent Events, current states then live transitions
//
// The server shuts down gracefully when the context passed to
// [Server.Start] is cancelled, giving in-flight requests five seconds.
package server
