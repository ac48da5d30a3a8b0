package device

import (
	"fmt"
	"slices"
	"time"
)

// Kind classifies what a device is for. It decides which screen the
// session shows when the device is selected, not how it is reached.
type Kind string

// Known device kinds in the Iris ecosystem.
const (
	KindActuator Kind = "actuator" // lights, fans - accepts operation commands
	KindSensor   Kind = "sensor"   // motion, distance - pushes events
	KindDisplay  Kind = "display"  // the Pi display bridge
	KindPeer     Kind = "peer"     // another pair of glasses
)

// HostPort is a resolved network address for a device.
type HostPort struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// String renders the address in host:port form.
func (hp HostPort) String() string {
	return fmt.Sprintf("%s:%d", hp.Host, hp.Port)
}

// Record is the registry's view of a single named device.
//
// A Record is created on first discovery and updated in place on every
// rescan. Records are never deleted: a device that stops answering is
// demoted to unhealthy by the freshness window, and callers are expected
// to treat unhealthy as "attempt rediscovery before use".
type Record struct {
	// Name is the stable logical identifier ("light", "fan", "pi").
	Name string `json:"name"`

	// Kind classifies the device.
	Kind Kind `json:"kind"`

	// Label is the human-readable name shown on the display.
	Label string `json:"label"`

	// Address is the current network address. Nil while unresolved
	// (e.g. a manual entry whose host has never answered).
	Address *HostPort `json:"address,omitempty"`

	// Capabilities are the operation tags the device supports
	// ("on", "off", "low", "high", "status").
	Capabilities []string `json:"capabilities"`

	// Source records which probe produced the address
	// ("mdns", "broadcast", "manual").
	Source string `json:"source,omitempty"`

	// FirstSeen is when the record was created. Snapshot ordering key.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is the time of the last successful discovery or health
	// confirmation.
	LastSeen time.Time `json:"last_seen"`

	// Healthy is derived at read time: fresh within the window and not
	// explicitly invalidated since the last refresh. Writes ignore it.
	Healthy bool `json:"healthy"`
}

// HasCapability reports whether the record advertises the given operation.
func (r *Record) HasCapability(op string) bool {
	return slices.Contains(r.Capabilities, op)
}

// clone returns an independent copy so callers can never mutate the
// registry's stored record through a returned value.
func (r *Record) clone() Record {
	cpy := *r
	if r.Address != nil {
		addr := *r.Address
		cpy.Address = &addr
	}
	if r.Capabilities != nil {
		cpy.Capabilities = slices.Clone(r.Capabilities)
	}
	return cpy
}
