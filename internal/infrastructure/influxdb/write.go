package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordTransition records a session screen change.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - from: Screen the session left (e.g., "idle")
//   - to: Screen the session entered (e.g., "menu")
//   - trigger: What caused the change ("command", "interrupt", "idle_timeout")
func (c *Client) RecordTransition(from, to, trigger string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"session_transitions",
		map[string]string{
			"from":    from,
			"to":      to,
			"trigger": trigger,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// RecordActuation records an IoT device command attempt.
//
// Parameters:
//   - device: Device name from the registry
//   - operation: Operation invoked ("on", "off", "status", ...)
//   - ok: Whether the device accepted the command
//   - latency: Round-trip time of the HTTP call
func (c *Client) RecordActuation(device, operation string, ok bool, latency time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"actuations",
		map[string]string{
			"device":    device,
			"operation": operation,
		},
		map[string]interface{}{
			"success":    ok,
			"latency_ms": float64(latency.Milliseconds()),
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// RecordInterrupt records a delivered interrupt event.
func (c *Client) RecordInterrupt(kind string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"interrupts",
		map[string]string{
			"kind": kind,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// RecordInterruptDrops records events discarded by the interrupt buffer
// since the last report, tagged by kind.
func (c *Client) RecordInterruptDrops(kind string, dropped uint64) {
	if !c.IsConnected() || dropped == 0 {
		return
	}

	point := write.NewPoint(
		"interrupt_drops",
		map[string]string{
			"kind": kind,
		},
		map[string]interface{}{
			"dropped": int64(dropped), //nolint:gosec // Counter fits comfortably in int64
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// RecordDiscoveryCycle records the outcome of one discovery scan.
//
// Parameters:
//   - source: Which probe produced the results ("mdns", "broadcast", "manual")
//   - found: Number of devices found this cycle
//   - duration: How long the cycle took
func (c *Client) RecordDiscoveryCycle(source string, found int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"discovery_cycles",
		map[string]string{
			"source": source,
		},
		map[string]interface{}{
			"devices_found": found,
			"duration_ms":   float64(duration.Milliseconds()),
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
