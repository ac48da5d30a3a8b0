package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/grandcat/zeroconf"

	"github.com/iris-glasses/iris-core/internal/device"
)

// instancePrefix is the mDNS instance name prefix Iris devices
// advertise under ("iris-light", "iris-fan", ...).
const instancePrefix = "iris-"

// mdnsDomain is the DNS-SD domain for local discovery.
const mdnsDomain = "local."

// MDNSProber browses the local network for Iris device advertisements.
//
// Devices register a DNS-SD service (default _iris-iot._tcp) with an
// instance name of iris-<name> and TXT records describing themselves:
//
//	kind=actuator caps=on,off,status label=Kitchen Light
type MDNSProber struct {
	service string
}

// NewMDNSProber creates a prober browsing the given service type.
func NewMDNSProber(service string) *MDNSProber {
	return &MDNSProber{service: service}
}

// Source identifies this prober in records and telemetry.
func (p *MDNSProber) Source() string { return "mdns" }

// Probe browses until ctx expires and returns every Iris device that
// answered. Non-iris instances and entries without an address are
// skipped.
func (p *MDNSProber) Probe(ctx context.Context) ([]device.Record, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("creating mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)

	var results []device.Record
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			if rec, ok := recordFromEntry(entry); ok {
				results = append(results, rec)
			}
		}
	}()

	// Browse returns immediately; zeroconf closes the entries channel
	// when ctx expires.
	if err := resolver.Browse(ctx, p.service, mdnsDomain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	<-done
	return results, nil
}

// recordFromEntry converts one mDNS service entry into a registry record.
func recordFromEntry(entry *zeroconf.ServiceEntry) (device.Record, bool) {
	instance := strings.ToLower(entry.Instance)
	if !strings.HasPrefix(instance, instancePrefix) {
		return device.Record{}, false
	}
	name := strings.TrimPrefix(instance, instancePrefix)
	if name == "" || len(entry.AddrIPv4) == 0 {
		return device.Record{}, false
	}

	rec := device.Record{
		Name: name,
		Kind: device.KindActuator,
		Address: &device.HostPort{
			Host: entry.AddrIPv4[0].String(),
			Port: entry.Port,
		},
	}

	for _, txt := range entry.Text {
		key, value, found := strings.Cut(txt, "=")
		if !found {
			continue
		}
		switch key {
		case "kind":
			rec.Kind = device.Kind(value)
		case "caps":
			rec.Capabilities = splitCaps(value)
		case "label":
			rec.Label = value
		}
	}
	if rec.Label == "" {
		rec.Label = name
	}

	return rec, true
}

// splitCaps parses a comma-separated capability list, dropping empties.
func splitCaps(value string) []string {
	var caps []string
	for _, c := range strings.Split(value, ",") {
		if c = strings.TrimSpace(c); c != "" {
			caps = append(caps, c)
		}
	}
	return caps
}
