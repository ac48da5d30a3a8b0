package discovery

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/infrastructure/config"
	"github.com/iris-glasses/iris-core/internal/interrupt"
)

// Logger is the minimal logging interface the scanner needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Prober finds Iris devices on the network.
type Prober interface {
	// Probe returns every device that answered before ctx expired.
	Probe(ctx context.Context) ([]device.Record, error)

	// Source identifies the prober in records and telemetry.
	Source() string
}

// Telemetry records discovery cycle outcomes. Satisfied by the
// influxdb client; nil disables recording.
type Telemetry interface {
	RecordDiscoveryCycle(source string, found int, duration time.Duration)
}

// Scanner runs the recurring discovery cycle.
//
// Each cycle tries the primary (mDNS) probe first and falls back to
// the UDP broadcast probe when mDNS yields nothing. Results are
// upserted into the registry; a device that stops answering is never
// removed, the registry's freshness window demotes it instead. When a
// cycle adds a device or changes an address, the scanner publishes a
// discovery-change interrupt so an open device list can refresh.
type Scanner struct {
	registry   *device.Registry
	interrupts *interrupt.Channel
	cfg        config.DiscoveryConfig

	primary  Prober
	fallback Prober

	logger    Logger
	telemetry Telemetry
}

// NewScanner creates a scanner with the standard probe pair.
func NewScanner(registry *device.Registry, interrupts *interrupt.Channel, cfg config.DiscoveryConfig) *Scanner {
	return &Scanner{
		registry:   registry,
		interrupts: interrupts,
		cfg:        cfg,
		primary:    NewMDNSProber(cfg.MDNSService),
		fallback:   NewBroadcastProber(cfg.BroadcastPort, cfg.BroadcastAddresses),
		logger:     noopLogger{},
	}
}

// SetLogger attaches a logger. Nil is ignored.
func (s *Scanner) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetTelemetry attaches a telemetry recorder.
func (s *Scanner) SetTelemetry(t Telemetry) {
	s.telemetry = t
}

// Run executes discovery cycles at the configured interval until ctx
// is cancelled. The first cycle starts immediately.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// Bootstrap runs one discovery cycle bounded by the bootstrap grace
// period, then falls back to the manually configured devices if the
// registry is still empty. The session can start either way; this only
// bounds how long startup waits for a first answer.
func (s *Scanner) Bootstrap(ctx context.Context) {
	bctx, cancel := context.WithTimeout(ctx, s.cfg.BootstrapGrace())
	defer cancel()

	s.runCycle(bctx)

	if s.registry.Count() > 0 {
		return
	}

	if len(s.cfg.ManualDevices) == 0 {
		s.logger.Warn("discovery found no devices and no manual fallback is configured")
		return
	}

	s.logger.Info("discovery found no devices, loading manual fallback",
		"devices", len(s.cfg.ManualDevices))
	for _, m := range s.cfg.ManualDevices {
		rec, err := recordFromManual(m)
		if err != nil {
			s.logger.Warn("skipping manual device", "name", m.Name, "error", err)
			continue
		}
		if err := s.registry.Upsert(rec); err != nil {
			s.logger.Warn("manual device rejected", "name", m.Name, "error", err)
		}
	}
}

// runCycle performs one probe pass and applies the results.
func (s *Scanner) runCycle(ctx context.Context) {
	start := time.Now()

	records, source := s.probe(ctx)
	changed := s.apply(records, source)

	s.logger.Debug("discovery cycle complete",
		"source", source,
		"found", len(records),
		"changed", len(changed),
		"duration", time.Since(start),
	)
	if s.telemetry != nil {
		s.telemetry.RecordDiscoveryCycle(source, len(records), time.Since(start))
	}

	if len(changed) > 0 {
		s.publishChange(changed)
	}
}

// probe tries the primary prober, falling back when it errors or finds
// nothing. Probe failures are logged, never fatal.
func (s *Scanner) probe(ctx context.Context) ([]device.Record, string) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout())
	records, err := s.primary.Probe(pctx)
	cancel()
	if err != nil {
		s.logger.Warn("primary probe failed", "source", s.primary.Source(), "error", err)
	}
	if len(records) > 0 {
		return records, s.primary.Source()
	}

	fctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout())
	defer cancel()
	records, err = s.fallback.Probe(fctx)
	if err != nil {
		s.logger.Warn("fallback probe failed", "source", s.fallback.Source(), "error", err)
		return nil, s.fallback.Source()
	}
	return records, s.fallback.Source()
}

// apply upserts probe results and returns the names whose records were
// created or re-addressed this cycle.
func (s *Scanner) apply(records []device.Record, source string) []string {
	var changed []string
	for _, rec := range records {
		rec.Source = source

		prior, err := s.registry.Lookup(rec.Name)
		isNew := err != nil
		moved := !isNew && prior.Address != nil && rec.Address != nil &&
			*prior.Address != *rec.Address

		if err := s.registry.Upsert(rec); err != nil {
			s.logger.Warn("discovery result rejected", "name", rec.Name, "error", err)
			continue
		}

		if isNew {
			s.logger.Info("discovered device",
				"name", rec.Name, "address", rec.Address.String(), "source", source)
			changed = append(changed, rec.Name)
		} else if moved {
			s.logger.Info("device moved",
				"name", rec.Name, "address", rec.Address.String(), "source", source)
			changed = append(changed, rec.Name)
		}
	}
	return changed
}

// publishChange emits one discovery-change interrupt for the cycle.
func (s *Scanner) publishChange(names []string) {
	err := s.interrupts.Publish(interrupt.Event{
		ID:   uuid.NewString(),
		Kind: interrupt.KindDiscoveryChange,
		Payload: map[string]any{
			"devices": names,
		},
		Source:     "discovery",
		ReceivedAt: time.Now(),
	})
	if err != nil {
		s.logger.Debug("discovery change not published", "error", err)
	}
}

// recordFromManual converts a config entry into a registry record.
func recordFromManual(m config.ManualDevice) (device.Record, error) {
	host, portStr, err := net.SplitHostPort(m.Address)
	if err != nil {
		return device.Record{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return device.Record{}, err
	}

	kind := device.Kind(m.Kind)
	if kind == "" {
		kind = device.KindActuator
	}

	return device.Record{
		Name:         m.Name,
		Kind:         kind,
		Label:        m.Name,
		Address:      &device.HostPort{Host: host, Port: port},
		Capabilities: m.Capabilities,
		Source:       "manual",
	}, nil
}
