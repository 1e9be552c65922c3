// Package api provides the HTTP handlers for the brain service: the head
// push boundary, dashboard hydration and snapshot queries, the live record
// stream, and metrics.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/brain"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/hub"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/metrics"
)

// defaultHydrationLimit caps hydration queries that do not specify a limit.
const defaultHydrationLimit = 50

// Handlers holds the API's dependencies.
type Handlers struct {
	brain   *brain.Brain
	hub     *hub.Hub
	metrics *metrics.Collector
}

// NewHandlers creates the API handlers. metrics may be nil.
func NewHandlers(b *brain.Brain, h *hub.Hub, m *metrics.Collector) *Handlers {
	return &Handlers{brain: b, hub: h, metrics: m}
}

// MetricsCollector returns the collector for middleware wiring.
func (h *Handlers) MetricsCollector() *metrics.Collector { return h.metrics }

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PushSignal handles POST /api/v1/signals: the head push boundary.
// Malformed signals are rejected with 400; signals from disabled heads are
// acknowledged but not ingested.
func (h *Handlers) PushSignal(w http.ResponseWriter, r *http.Request) {
	var sig intel.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.brain.Ingest(r.Context(), &sig)
	if err != nil {
		if errors.Is(err, intel.ErrValidation) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to ingest signal", "signal_id", sig.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	status := http.StatusAccepted
	if !result.Accepted {
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}

// RecentSignals handles GET /api/v1/signals: dashboard hydration returning
// the most recent retained signals for a competitor, optionally filtered by
// head, newest first.
func (h *Handlers) RecentSignals(w http.ResponseWriter, r *http.Request) {
	competitor := r.URL.Query().Get("competitor")
	if competitor == "" {
		respondError(w, http.StatusBadRequest, "competitor parameter is required")
		return
	}

	head := intel.HeadKind(r.URL.Query().Get("head"))
	if head != "" && !head.IsValid() {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown head kind: %q", head))
		return
	}

	limit := defaultHydrationLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	signals := h.brain.RecentSignals(competitor, head, limit)
	if signals == nil {
		signals = []*intel.Signal{}
	}
	respondJSON(w, http.StatusOK, signals)
}

// SnapshotResponse is the synchronous per-competitor refresh payload.
type SnapshotResponse struct {
	Competitor string           `json:"competitor"`
	Insights   []*intel.Insight `json:"insights"`
	Alerts     []*intel.Alert   `json:"alerts"`
}

// Snapshot handles GET /api/v1/snapshot: the manual-refresh endpoint
// returning a competitor's current insight and alert state.
func (h *Handlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	competitor := r.URL.Query().Get("competitor")
	if competitor == "" {
		respondError(w, http.StatusBadRequest, "competitor parameter is required")
		return
	}

	insights, alerts := h.brain.Snapshot(competitor)
	if insights == nil {
		insights = []*intel.Insight{}
	}
	if alerts == nil {
		alerts = []*intel.Alert{}
	}
	respondJSON(w, http.StatusOK, SnapshotResponse{
		Competitor: competitor,
		Insights:   insights,
		Alerts:     alerts,
	})
}

// Metrics handles GET /api/v1/metrics, returning the engine counters
// including the dispatcher's suppression-drop count.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	snap := h.metrics.Snapshot()
	if snap.CustomCounters == nil {
		snap.CustomCounters = make(map[string]uint64)
	}
	snap.CustomCounters["alerts_suppressed"] = h.brain.SuppressedCount()
	respondJSON(w, http.StatusOK, snap)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
