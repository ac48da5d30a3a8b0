package device

import (
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// entry is the registry's internal mutable state for one device.
type entry struct {
	record Record

	// invalidated is set by MarkUnhealthy and cleared by the next
	// Upsert. It forces Healthy=false even inside the freshness window.
	invalidated bool
}

// Registry is the single source of truth for how to reach each named
// device right now.
//
// Discovery writes into it on its own schedule; the session loop and the
// IoT client read from it. Writers never block readers for long: the
// whole map is guarded by one RWMutex and every read returns a copy, so
// a reader can never observe a partially-updated record.
//
// Records live forever once created. Staleness (no refresh within the
// freshness window) or an explicit MarkUnhealthy demote a record to
// unhealthy; only a subsequent Upsert restores it.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // names in first-seen order, for Snapshot

	freshness time.Duration
	logger    Logger

	// now is swapped in tests to control the freshness clock.
	now func() time.Time
}

// NewRegistry creates a registry with the given freshness window.
func NewRegistry(freshness time.Duration) *Registry {
	return &Registry{
		entries:   make(map[string]*entry),
		freshness: freshness,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Upsert inserts or overwrites the record for rec.Name.
//
// The stored address, capabilities and label are replaced wholesale
// (last writer wins), LastSeen is set to now, and any earlier
// MarkUnhealthy is cleared. FirstSeen and the snapshot position are
// preserved across updates. Upsert never fails for a named record;
// an empty name returns ErrInvalidName.
func (r *Registry) Upsert(rec Record) error {
	if rec.Name == "" {
		return ErrInvalidName
	}

	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.entries[rec.Name]
	if !ok {
		rec.FirstSeen = now
		rec.LastSeen = now
		r.entries[rec.Name] = &entry{record: rec.clone()}
		r.order = append(r.order, rec.Name)
		r.logger.Info("device discovered",
			"name", rec.Name,
			"address", addrString(rec.Address),
			"source", rec.Source,
		)
		return nil
	}

	rec.FirstSeen = existing.record.FirstSeen
	rec.LastSeen = now
	existing.record = rec.clone()
	existing.invalidated = false
	r.logger.Debug("device refreshed",
		"name", rec.Name,
		"address", addrString(rec.Address),
	)
	return nil
}

// Lookup returns the current record for name, or ErrNotFound.
//
// The returned record is a copy with Healthy computed against the
// freshness window at the time of the call. Lookup never waits for a
// discovery cycle.
func (r *Registry) Lookup(name string) (Record, error) {
	now := r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Record{}, ErrNotFound
	}

	rec := e.record.clone()
	rec.Healthy = r.healthyLocked(e, now)
	return rec, nil
}

// Snapshot returns copies of all records in first-seen order, with
// Healthy computed for each. Intended for diagnostics and the device
// list screen.
func (r *Registry) Snapshot() []Record {
	now := r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]Record, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		rec := e.record.clone()
		rec.Healthy = r.healthyLocked(e, now)
		records = append(records, rec)
	}
	return records
}

// MarkUnhealthy explicitly invalidates a record after a caller's direct
// use of the address failed (connection refused, timeout). The record
// stays unhealthy until the next Upsert refreshes it, even if it is
// still inside the freshness window. Marking an unknown or already
// unhealthy device is a no-op.
func (r *Registry) MarkUnhealthy(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok || e.invalidated {
		return
	}
	e.invalidated = true
	r.logger.Warn("device marked unhealthy", "name", name)
}

// Count returns the number of known records, healthy or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// healthyLocked computes the derived health of an entry. Callers must
// hold at least the read lock.
func (r *Registry) healthyLocked(e *entry, now time.Time) bool {
	if e.invalidated {
		return false
	}
	if e.record.Address == nil {
		return false
	}
	return now.Sub(e.record.LastSeen) < r.freshness
}

func addrString(hp *HostPort) string {
	if hp == nil {
		return ""
	}
	return hp.String()
}
