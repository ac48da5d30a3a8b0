package interrupt

import (
	"errors"
	"sync"
	"time"
)

// Kind enumerates the interrupt event types the core understands.
type Kind string

// Known interrupt kinds.
const (
	// KindMotionAlert is pushed by the motion sensor. Rendered as a
	// transient overlay without changing the current screen.
	KindMotionAlert Kind = "motion-alert"

	// KindDeviceError reports a hardware fault from a device. The
	// session invalidates the registry record and shows a notice.
	KindDeviceError Kind = "device-error"

	// KindDiscoveryChange signals that the discovery scanner changed a
	// registry record; the device list screen refreshes itself.
	KindDiscoveryChange Kind = "discovery-change"
)

// Valid reports whether k is a kind the core understands.
func (k Kind) Valid() bool {
	switch k {
	case KindMotionAlert, KindDeviceError, KindDiscoveryChange:
		return true
	default:
		return false
	}
}

// Event is one asynchronous occurrence delivered to the session loop.
//
// An event is owned by the channel from Publish until it is returned by
// exactly one Drain call; it is never duplicated.
type Event struct {
	// ID uniquely identifies the event, for logging and telemetry.
	ID string `json:"id"`

	// Kind tags the event type.
	Kind Kind `json:"kind"`

	// Payload carries kind-specific data. The channel never inspects it.
	Payload map[string]any `json:"payload,omitempty"`

	// Source identifies the producer (device name or remote address).
	Source string `json:"source,omitempty"`

	// ReceivedAt is when the producer handed the event to the channel.
	ReceivedAt time.Time `json:"received_at"`
}

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("interrupt: channel closed")

// Channel is the single ordered conduit between asynchronous producers
// (sensor push endpoints, MQTT handlers, the discovery scanner) and the
// session loop.
//
// Publish never blocks the producer: the buffer is bounded and overflow
// is resolved by coalescing - the oldest queued event of the incoming
// kind is dropped in favour of the newest, so a noisy sensor can only
// ever displace its own older signals, never another kind's. If the
// buffer is full of distinct kinds the oldest event overall is dropped.
// Drops are counted per kind for diagnostics; they are not errors.
//
// Events of different kinds keep their relative arrival order. The
// channel applies no priority; if the consumer wants one, that is its
// own policy.
//
// All methods are safe for concurrent use.
type Channel struct {
	mu      sync.Mutex
	buf     []Event
	size    int
	closed  bool
	dropped map[Kind]uint64
}

// NewChannel creates a channel with the given buffer capacity.
// Sizes below 1 are clamped to 1.
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{
		buf:     make([]Event, 0, size),
		size:    size,
		dropped: make(map[Kind]uint64),
	}
}

// Publish enqueues an event without ever blocking the caller.
//
// When the buffer is at capacity the oldest event of ev.Kind is
// discarded first; if none is queued, the oldest event overall is. The
// new event is always accepted. Returns ErrClosed after Close.
func (c *Channel) Publish(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if len(c.buf) >= c.size {
		c.evictLocked(ev.Kind)
	}
	c.buf = append(c.buf, ev)
	return nil
}

// evictLocked frees one slot, preferring the oldest event of kind.
func (c *Channel) evictLocked(kind Kind) {
	idx := 0
	for i, queued := range c.buf {
		if queued.Kind == kind {
			idx = i
			break
		}
	}
	c.dropped[c.buf[idx].Kind]++
	c.buf = append(c.buf[:idx], c.buf[idx+1:]...)
}

// Drain returns every queued event in arrival order and empties the
// buffer. It never blocks; an empty buffer yields an empty slice.
// Drain keeps working after Close so pending events are not lost.
func (c *Channel) Drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.buf) == 0 {
		return nil
	}
	out := c.buf
	c.buf = make([]Event, 0, c.size)
	return out
}

// Len returns the number of currently queued events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// Dropped returns a copy of the per-kind coalescing counters.
func (c *Channel) Dropped() map[Kind]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[Kind]uint64, len(c.dropped))
	for k, v := range c.dropped {
		out[k] = v
	}
	return out
}

// DroppedTotal returns the total number of coalesced events.
func (c *Channel) DroppedTotal() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total uint64
	for _, v := range c.dropped {
		total += v
	}
	return total
}

// Close stops the channel accepting new events. Buffered events remain
// drainable. Close is idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
