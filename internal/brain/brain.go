// Package brain orchestrates the ingest pipeline: validate, score, store,
// correlate, dispatch, broadcast. Ingestion is serialized per competitor and
// fully parallel across competitors.
package brain

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/correlator"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/dispatcher"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/hub"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/metrics"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/scorer"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/store"
)

// Clock supplies the current time; injected for deterministic tests.
type Clock func() time.Time

// Result reports what one accepted signal produced.
type Result struct {
	Accepted bool             `json:"accepted"`
	Reason   string           `json:"reason,omitempty"`
	SignalID string           `json:"signal_id,omitempty"`
	Insights []*intel.Insight `json:"insights,omitempty"`
	Alerts   []*intel.Alert   `json:"alerts,omitempty"`
}

// Brain is the central correlation engine.
type Brain struct {
	store      *store.Store
	scorer     *scorer.Scorer
	correlator *correlator.Correlator
	dispatcher *dispatcher.Dispatcher
	hub        *hub.Hub
	metrics    *metrics.Collector
	clock      Clock
	futureSkew time.Duration
	enabled    map[intel.HeadKind]bool

	// Per-competitor ingest locks: mutation for one competitor is
	// serialized, distinct competitors proceed in parallel.
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// Options carries the engine's collaborators. Metrics may be nil.
type Options struct {
	Store      *store.Store
	Scorer     *scorer.Scorer
	Correlator *correlator.Correlator
	Dispatcher *dispatcher.Dispatcher
	Hub        *hub.Hub
	Metrics    *metrics.Collector
	Clock      Clock
	FutureSkew time.Duration
	// Enabled marks heads accepted at ingest. A nil map enables all heads.
	Enabled map[intel.HeadKind]bool
}

// New creates the engine.
func New(opts Options) *Brain {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Brain{
		store:      opts.Store,
		scorer:     opts.Scorer,
		correlator: opts.Correlator,
		dispatcher: opts.Dispatcher,
		hub:        opts.Hub,
		metrics:    opts.Metrics,
		clock:      clock,
		futureSkew: opts.FutureSkew,
		enabled:    opts.Enabled,
	}
}

func (b *Brain) lockFor(competitor string) *sync.Mutex {
	b.lockMu.Lock()
	defer b.lockMu.Unlock()
	if b.locks == nil {
		b.locks = make(map[string]*sync.Mutex)
	}
	mu, ok := b.locks[competitor]
	if !ok {
		mu = &sync.Mutex{}
		b.locks[competitor] = mu
	}
	return mu
}

// Ingest validates, scores, stores, correlates, dispatches, and broadcasts
// one signal. It returns a validation error for malformed input (the caller
// must correct and resubmit); signals from disabled heads are dropped with
// Accepted=false and no error. Scoring and correlation for the signal run
// synchronously before Ingest returns, so a concurrently ingested sibling
// for the same competitor either sees this signal or will be seen by it.
func (b *Brain) Ingest(ctx context.Context, sig *intel.Signal) (*Result, error) {
	b.metrics.RecordReceived()
	start := b.clock()

	if err := intel.ValidateSignal(sig, start, b.futureSkew); err != nil {
		b.metrics.RecordRejected()
		return nil, err
	}
	// The store dedupes on id, so distinct unidentified signals must not
	// collide: a missing id gets one assigned here.
	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}
	if b.enabled != nil && !b.enabled[sig.Head] {
		b.metrics.IncrementCustom("signals_head_disabled")
		slog.Debug("Dropping signal from disabled head", "head", sig.Head, "competitor", sig.Competitor)
		return &Result{Accepted: false, Reason: "head disabled", SignalID: sig.ID}, nil
	}

	mu := b.lockFor(sig.Competitor)
	mu.Lock()
	defer mu.Unlock()

	b.score(sig)

	if !b.store.Put(sig) {
		// Same id already retained: re-ingesting is a no-op.
		b.metrics.IncrementCustom("signals_duplicate")
		slog.Debug("Duplicate signal ignored", "signal_id", sig.ID, "competitor", sig.Competitor)
		return &Result{Accepted: true, Reason: "duplicate", SignalID: sig.ID}, nil
	}

	insights := b.correlate(sig)

	// Signals and insights enter the dispatcher and the hub in one ordered
	// union stream: the signal first, then its insights, then any alerts.
	var alerts []*intel.Alert
	b.hub.Publish(intel.SignalRecord(sig))
	if alert := b.dispatcher.OfferSignal(sig); alert != nil {
		alerts = append(alerts, alert)
	}
	for _, in := range insights {
		b.hub.Publish(intel.InsightRecord(in))
		if alert := b.dispatcher.OfferInsight(in); alert != nil {
			alerts = append(alerts, alert)
		}
	}
	for _, alert := range alerts {
		b.metrics.RecordAlert()
		b.hub.Publish(intel.AlertRecord(alert))
	}

	b.metrics.RecordIngested(b.clock().Sub(start))
	b.metrics.RecordInsights(len(insights))

	return &Result{
		Accepted: true,
		SignalID: sig.ID,
		Insights: insights,
		Alerts:   alerts,
	}, nil
}

// score runs the scorer, recovering from any internal fault: losing a signal
// is worse than losing its score, so a defect passes the signal through at
// minimal confidence and lowest severity.
func (b *Brain) score(sig *intel.Signal) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.RecordError()
			slog.Error("Scorer fault, passing signal through unscored",
				"signal_id", sig.ID,
				"head", sig.Head,
				"panic", r,
			)
			sig.Confidence = 0
			sig.Threat = intel.ThreatInfo
		}
	}()
	sig.Confidence, sig.Threat = b.scorer.Score(sig)
}

// correlate runs the correlator, recovering from any internal fault: the
// signal stays committed even when its insights are lost.
func (b *Brain) correlate(sig *intel.Signal) (insights []*intel.Insight) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.RecordError()
			slog.Error("Correlator fault, passing signal through uncorrelated",
				"signal_id", sig.ID,
				"competitor", sig.Competitor,
				"panic", r,
			)
			insights = nil
		}
	}()
	return b.correlator.OnSignal(sig)
}

// Snapshot returns the competitor's current insights and alerts, for the
// synchronous manual-refresh endpoint.
func (b *Brain) Snapshot(competitor string) ([]*intel.Insight, []*intel.Alert) {
	return b.correlator.Recent(competitor), b.dispatcher.Snapshot(competitor)
}

// RecentSignals returns up to limit most recent retained signals for a
// competitor, optionally filtered by head, for dashboard hydration.
func (b *Brain) RecentSignals(competitor string, head intel.HeadKind, limit int) []*intel.Signal {
	return b.store.Recent(competitor, head, limit)
}

// SuppressedCount exposes the dispatcher's suppression-drop counter.
func (b *Brain) SuppressedCount() uint64 {
	return b.dispatcher.SuppressedCount()
}
