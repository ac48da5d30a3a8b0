package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/iris-glasses/iris-core/internal/interrupt"
)

// maxInterruptBody bounds the sensor push payload size.
const maxInterruptBody = 64 * 1024

// healthProbeTimeout bounds each component probe on the health endpoint.
const healthProbeTimeout = 2 * time.Second

// handleHealth probes each registered component and reports overall
// status: "ok" when everything answers, "degraded" otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.health))
	status := "ok"

	for name, checker := range s.health {
		if checker == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		if err := checker.HealthCheck(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
		} else {
			components[name] = "ok"
		}
		cancel()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}

// handleListDevices returns the registry snapshot.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleSession returns the current session state.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	if s.session == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "session not running")
		return
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

// handlePushInterrupt accepts a sensor push and queues it on the
// interrupt channel. The body is an optional JSON object carried as
// the event payload.
//
// Publishing never blocks; a full buffer coalesces older events of the
// same kind, so this endpoint always answers quickly.
func (s *Server) handlePushInterrupt(w http.ResponseWriter, r *http.Request) {
	kind := interrupt.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeBadRequest(w, "unknown interrupt kind")
		return
	}

	var payload map[string]any
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInterruptBody))
	if err != nil {
		writeBadRequest(w, "reading request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			writeBadRequest(w, "request body must be a JSON object")
			return
		}
	}

	ev := interrupt.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    payload,
		Source:     "api:" + r.RemoteAddr,
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.interrupts.Publish(ev); err != nil {
		writeInternalError(w, "interrupt channel closed")
		return
	}

	s.logger.Debug("interrupt queued", "kind", kind, "id", ev.ID, "source", ev.Source)
	writeJSON(w, http.StatusAccepted, map[string]any{"id": ev.ID})
}
