// Package influxdb provides time-series telemetry for Iris Core.
//
// The session loop records screen transitions, device actuations,
// interrupt delivery and drops, and discovery cycle outcomes. All
// writes are non-blocking and batched so telemetry never slows the
// loop; if the server is down, points are dropped and the session
// carries on.
//
// Telemetry is optional. When influxdb.enabled is false in config,
// Connect returns ErrDisabled and callers run without a sink.
//
// Measurements:
//
//	session_transitions   screen changes, tagged from/to/trigger
//	actuations            IoT commands, tagged device/operation
//	interrupts            delivered interrupts, tagged kind
//	interrupt_drops       coalesced events discarded under pressure
//	discovery_cycles      scan outcomes, tagged source
package influxdb
