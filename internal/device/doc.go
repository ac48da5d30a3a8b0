// Package device provides the device registry for Iris Core.
//
// The registry is the single authoritative answer to "how do I reach
// device X right now". It is written by the discovery scanner on its own
// schedule and read by the session loop, the IoT client and the HTTP
// API.
//
// # Lifecycle
//
// A Record is created the first time a probe answers for a name and is
// updated in place on every subsequent rescan. Records are never
// deleted. Two things demote a record to unhealthy:
//
//   - staleness: no refresh within the configured freshness window
//   - explicit invalidation: MarkUnhealthy after a failed actuator call
//
// Either way the record and its last-known address remain visible, so
// the device list screen can still show the device and selection stays
// permitted; reachability is re-checked when an action is attempted.
//
// # Concurrency
//
// One RWMutex guards the whole map. Every read returns an independent
// copy with Healthy computed at call time, so readers never observe a
// half-written record and cannot mutate shared state.
package device
