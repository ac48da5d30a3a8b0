package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/infrastructure/config"
	"github.com/iris-glasses/iris-core/internal/interrupt"
)

// fakeProber returns canned results.
type fakeProber struct {
	records []device.Record
	err     error
	calls   int
	source  string
}

func (p *fakeProber) Probe(ctx context.Context) ([]device.Record, error) {
	p.calls++
	return p.records, p.err
}

func (p *fakeProber) Source() string { return p.source }

func testDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		IntervalSeconds:  30,
		ProbeTimeoutMs:   100,
		BootstrapGraceMs: 100,
		MDNSService:      "_iris-iot._tcp",
		BroadcastPort:    5353,
	}
}

func testScanner(primary, fallback Prober) (*Scanner, *device.Registry, *interrupt.Channel) {
	registry := device.NewRegistry(45 * time.Second)
	interrupts := interrupt.NewChannel(16)
	s := NewScanner(registry, interrupts, testDiscoveryConfig())
	s.primary = primary
	s.fallback = fallback
	return s, registry, interrupts
}

func record(name, host string, port int) device.Record {
	return device.Record{
		Name:         name,
		Kind:         device.KindActuator,
		Label:        name,
		Address:      &device.HostPort{Host: host, Port: port},
		Capabilities: []string{"on", "off"},
	}
}

func TestRunCycleUpsertsResults(t *testing.T) {
	primary := &fakeProber{source: "mdns", records: []device.Record{
		record("light", "192.168.1.20", 80),
		record("fan", "192.168.1.21", 80),
	}}
	s, registry, _ := testScanner(primary, &fakeProber{source: "broadcast"})

	s.runCycle(context.Background())

	if registry.Count() != 2 {
		t.Fatalf("registry count = %d, want 2", registry.Count())
	}
	rec, err := registry.Lookup("light")
	if err != nil {
		t.Fatalf("Lookup(light) error = %v", err)
	}
	if rec.Source != "mdns" {
		t.Errorf("source = %q, want mdns", rec.Source)
	}
	if !rec.Healthy {
		t.Error("freshly discovered device should be healthy")
	}
}

func TestRunCycleFallsBackWhenPrimaryEmpty(t *testing.T) {
	primary := &fakeProber{source: "mdns"}
	fallback := &fakeProber{source: "broadcast", records: []device.Record{
		record("light", "192.168.1.20", 80),
	}}
	s, registry, _ := testScanner(primary, fallback)

	s.runCycle(context.Background())

	if fallback.calls != 1 {
		t.Errorf("fallback calls = %d, want 1", fallback.calls)
	}
	rec, err := registry.Lookup("light")
	if err != nil {
		t.Fatalf("Lookup(light) error = %v", err)
	}
	if rec.Source != "broadcast" {
		t.Errorf("source = %q, want broadcast", rec.Source)
	}
}

func TestRunCycleFallsBackOnPrimaryError(t *testing.T) {
	primary := &fakeProber{source: "mdns", err: errors.New("no multicast route")}
	fallback := &fakeProber{source: "broadcast"}
	s, _, _ := testScanner(primary, fallback)

	// Must not panic or propagate; probe errors are logged.
	s.runCycle(context.Background())

	if fallback.calls != 1 {
		t.Errorf("fallback calls = %d, want 1", fallback.calls)
	}
}

func TestRunCyclePublishesChangeForNewDevice(t *testing.T) {
	primary := &fakeProber{source: "mdns", records: []device.Record{
		record("light", "192.168.1.20", 80),
	}}
	s, _, interrupts := testScanner(primary, &fakeProber{source: "broadcast"})

	s.runCycle(context.Background())

	events := interrupts.Drain()
	if len(events) != 1 {
		t.Fatalf("expected 1 interrupt, got %d", len(events))
	}
	if events[0].Kind != interrupt.KindDiscoveryChange {
		t.Errorf("kind = %q, want %q", events[0].Kind, interrupt.KindDiscoveryChange)
	}

	// Same results again: no change, no interrupt.
	s.runCycle(context.Background())
	if events := interrupts.Drain(); len(events) != 0 {
		t.Errorf("unchanged cycle published %d interrupts, want 0", len(events))
	}
}

func TestRunCyclePublishesChangeOnAddressMove(t *testing.T) {
	primary := &fakeProber{source: "mdns", records: []device.Record{
		record("light", "192.168.1.20", 80),
	}}
	s, _, interrupts := testScanner(primary, &fakeProber{source: "broadcast"})

	s.runCycle(context.Background())
	interrupts.Drain()

	primary.records = []device.Record{record("light", "192.168.1.99", 80)}
	s.runCycle(context.Background())

	events := interrupts.Drain()
	if len(events) != 1 {
		t.Fatalf("expected 1 interrupt after address move, got %d", len(events))
	}
}

func TestBootstrapManualFallback(t *testing.T) {
	s, registry, _ := testScanner(
		&fakeProber{source: "mdns"},
		&fakeProber{source: "broadcast"},
	)
	s.cfg.ManualDevices = []config.ManualDevice{
		{Name: "light", Kind: "actuator", Address: "192.168.1.50:80", Capabilities: []string{"on", "off"}},
		{Name: "bad", Address: "not-an-address"},
	}

	s.Bootstrap(context.Background())

	rec, err := registry.Lookup("light")
	if err != nil {
		t.Fatalf("Lookup(light) error = %v", err)
	}
	if rec.Source != "manual" {
		t.Errorf("source = %q, want manual", rec.Source)
	}
	if rec.Address.String() != "192.168.1.50:80" {
		t.Errorf("address = %q, want 192.168.1.50:80", rec.Address.String())
	}

	if _, err := registry.Lookup("bad"); err == nil {
		t.Error("unparseable manual device should not be registered")
	}
}

func TestBootstrapSkipsManualWhenDiscoveryWorks(t *testing.T) {
	primary := &fakeProber{source: "mdns", records: []device.Record{
		record("light", "192.168.1.20", 80),
	}}
	s, registry, _ := testScanner(primary, &fakeProber{source: "broadcast"})
	s.cfg.ManualDevices = []config.ManualDevice{
		{Name: "light", Address: "192.168.1.50:80"},
	}

	s.Bootstrap(context.Background())

	rec, err := registry.Lookup("light")
	if err != nil {
		t.Fatalf("Lookup(light) error = %v", err)
	}
	if rec.Source != "mdns" {
		t.Errorf("source = %q, want discovered record to win over manual", rec.Source)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s, _, _ := testScanner(&fakeProber{source: "mdns"}, &fakeProber{source: "broadcast"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}

func TestRecordFromEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantOK   bool
		wantName string
		wantKind device.Kind
		wantCaps int
	}{
		{
			name: "full advertisement",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "iris-light"},
				Port:          80,
				Text:          []string{"kind=actuator", "caps=on,off,status", "label=Kitchen Light"},
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.20")},
			},
			wantOK:   true,
			wantName: "light",
			wantKind: device.KindActuator,
			wantCaps: 3,
		},
		{
			name: "sensor kind",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "iris-motion"},
				Port:          80,
				Text:          []string{"kind=sensor"},
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.30")},
			},
			wantOK:   true,
			wantName: "motion",
			wantKind: device.KindSensor,
		},
		{
			name: "not an iris instance",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "printer"},
				Port:          631,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.40")},
			},
			wantOK: false,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "iris-fan"},
				Port:          80,
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := recordFromEntry(tt.entry)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if rec.Name != tt.wantName {
				t.Errorf("name = %q, want %q", rec.Name, tt.wantName)
			}
			if rec.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", rec.Kind, tt.wantKind)
			}
			if len(rec.Capabilities) != tt.wantCaps {
				t.Errorf("caps = %d, want %d", len(rec.Capabilities), tt.wantCaps)
			}
		})
	}
}

func TestRecordFromAnnouncement(t *testing.T) {
	from := &net.UDPAddr{IP: net.ParseIP("192.168.1.77"), Port: 40000}

	rec, ok := recordFromAnnouncement(
		[]byte(`{"name":"fan","port":80,"kind":"actuator","caps":["on","off","low","high"]}`),
		from,
	)
	if !ok {
		t.Fatal("expected valid announcement to parse")
	}
	if rec.Name != "fan" {
		t.Errorf("name = %q, want fan", rec.Name)
	}
	// The sender's IP wins, not anything in the payload.
	if rec.Address.Host != "192.168.1.77" {
		t.Errorf("host = %q, want 192.168.1.77", rec.Address.Host)
	}
	if rec.Address.Port != 80 {
		t.Errorf("port = %d, want 80", rec.Address.Port)
	}

	if _, ok := recordFromAnnouncement([]byte(`not json`), from); ok {
		t.Error("malformed reply should not parse")
	}
	if _, ok := recordFromAnnouncement([]byte(`{"port":80}`), from); ok {
		t.Error("reply without a name should not parse")
	}
	if _, ok := recordFromAnnouncement([]byte(`{"name":"fan"}`), from); ok {
		t.Error("reply without a port should not parse")
	}
}

func TestSplitCaps(t *testing.T) {
	got := splitCaps("on, off,,status ")
	want := []string{"on", "off", "status"}
	if len(got) != len(want) {
		t.Fatalf("splitCaps() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitCaps()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
