// Package store keeps the observable output of the watch engine in memory.
//
// It holds the latest state seen for each watched endpoint and a bounded,
// newest-first history of detected transitions. Subscribers receive every
// recorded transition over a buffered channel; slow subscribers miss
// transitions rather than block the poll loop.
//
// The main components are:
//
//   - [Store]: interface used by the watch engine and the HTTP server
//   - [MemoryStore]: the in-memory implementation
//   - [EndpointState] and [Transition]: JSON-friendly records
package store
