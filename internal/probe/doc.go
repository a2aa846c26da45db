// Package probe derives a state string for HTTP targets on a schedule.
//
// A probe is one HTTP request whose response is turned into a state by an
// [Extractor]: "up"/"degraded"/"down" from the status code, the raw value of
// a JSON field, or the first capture of a regular expression. The
// [Scheduler] probes every [Target] at its own interval with a bounded
// worker pool and emits one [Result] per probe.
//
// The package knows nothing about transitions. Its results feed the state
// cache that fsmpoller pollers read from (see internal/watch).
package probe
