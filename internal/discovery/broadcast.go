package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/iris-glasses/iris-core/internal/device"
)

// readChunk bounds a single UDP reply.
const readChunk = 1024

// probeMessage is the JSON datagram sent to the broadcast addresses.
// Devices that don't support mDNS answer it directly.
var probeMessage = []byte(`{"discover":"iris"}`)

// announcement is a device's reply to the broadcast probe.
type announcement struct {
	Name         string   `json:"name"`
	Port         int      `json:"port"`
	Kind         string   `json:"kind,omitempty"`
	Label        string   `json:"label,omitempty"`
	Capabilities []string `json:"caps,omitempty"`
}

// BroadcastProber is the UDP fallback for devices without mDNS.
//
// It sends {"discover":"iris"} to each configured broadcast address
// and collects JSON replies until the context expires.
type BroadcastProber struct {
	port      int
	addresses []string
}

// NewBroadcastProber creates a prober targeting the given port and
// broadcast addresses.
func NewBroadcastProber(port int, addresses []string) *BroadcastProber {
	return &BroadcastProber{port: port, addresses: addresses}
}

// Source identifies this prober in records and telemetry.
func (p *BroadcastProber) Source() string { return "broadcast" }

// Probe sends the discovery datagram and gathers replies until ctx
// expires. Replies are deduplicated by device name, last one wins.
func (p *BroadcastProber) Probe(ctx context.Context) ([]device.Record, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("opening broadcast socket: %w", err)
	}
	defer conn.Close() //nolint:errcheck // Best effort cleanup

	sent := 0
	for _, addr := range p.addresses {
		dst, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", addr, p.port))
		if err != nil {
			continue
		}
		if _, err := conn.WriteTo(probeMessage, dst); err == nil {
			sent++
		}
	}
	if sent == 0 {
		return nil, fmt.Errorf("broadcast probe: no address reachable")
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(2 * time.Second)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}

	seen := make(map[string]device.Record)
	buf := make([]byte, readChunk)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			break // deadline reached or socket closed
		}
		if rec, ok := recordFromAnnouncement(buf[:n], from); ok {
			seen[rec.Name] = rec
		}
	}

	records := make([]device.Record, 0, len(seen))
	for _, rec := range seen {
		records = append(records, rec)
	}
	return records, nil
}

// recordFromAnnouncement parses one reply datagram. The sender's IP is
// authoritative; only the port comes from the payload.
func recordFromAnnouncement(data []byte, from net.Addr) (device.Record, bool) {
	var ann announcement
	if err := json.Unmarshal(data, &ann); err != nil {
		return device.Record{}, false
	}
	if ann.Name == "" || ann.Port <= 0 {
		return device.Record{}, false
	}

	host, _, err := net.SplitHostPort(from.String())
	if err != nil {
		return device.Record{}, false
	}

	kind := device.Kind(ann.Kind)
	if kind == "" {
		kind = device.KindActuator
	}
	label := ann.Label
	if label == "" {
		label = ann.Name
	}

	return device.Record{
		Name:         ann.Name,
		Kind:         kind,
		Label:        label,
		Address:      &device.HostPort{Host: host, Port: ann.Port},
		Capabilities: ann.Capabilities,
	}, true
}
