// Package watch runs one fsmpoller.Poller per watched endpoint.
//
// Probe results land in a [Cache], which is the only shared, locked data:
// the probe scheduler writes it from its worker goroutines and every
// poller's accessor reads it. The [Engine] owns all pollers and drives them
// from a single goroutine, so the pollers themselves are never shared.
//
// Config-declared [Rule] values become poller registrations (To, From,
// FromTo, AnyTransition, ExecuteWhileInState). Every detected transition is
// also recorded in a store.Store for the HTTP API.
package watch
