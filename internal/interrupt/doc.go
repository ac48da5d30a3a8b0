// Package interrupt provides the event conduit between background
// producers and the session loop.
//
// Producers - the HTTP push endpoints, MQTT sensor subscriptions and
// the discovery scanner - call Publish from their own goroutines and
// never block on the consumer. The session loop calls Drain once per
// tick and applies the events, in arrival order, before it looks at any
// voice command.
//
// Overflow is handled by kind-aware coalescing rather than back
// pressure: under a flood of motion alerts only older motion alerts are
// displaced, and the most recent signal of every kind survives. Drops
// are counted, not silently forgotten.
package interrupt
