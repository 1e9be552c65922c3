// Package dispatcher filters and deduplicates high-severity records into
// alerts, with per-(competitor, subject) suppression windows.
package dispatcher

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// Clock supplies the current time; injected for deterministic tests.
type Clock func() time.Time

// partition holds one competitor's alerts keyed by subject (pattern kind for
// insights, head kind for signals).
type partition struct {
	mu     sync.Mutex
	alerts map[string]*intel.Alert
}

// Dispatcher consumes the ordered union stream of signals and insights.
// Records below the configured threshold are dropped silently; records whose
// (competitor, subject) alert is still suppressed are dropped and counted.
// The suppression table is partitioned per competitor, mirroring the
// correlation store: no global lock.
type Dispatcher struct {
	threshold intel.ThreatLevel
	cooldown  time.Duration
	clock     Clock

	mu         sync.RWMutex
	partitions map[string]*partition

	suppressed atomic.Uint64
}

// New creates a dispatcher. A negative cooldown (clock anomaly, bad config)
// degrades to zero so every qualifying insight alerts. A nil clock defaults
// to time.Now.
func New(threshold intel.ThreatLevel, cooldown time.Duration, clock Clock) *Dispatcher {
	if cooldown < 0 {
		slog.Warn("Negative alert cooldown, degrading to always-alert", "cooldown", cooldown)
		cooldown = 0
	}
	if clock == nil {
		clock = time.Now
	}
	return &Dispatcher{
		threshold:  threshold,
		cooldown:   cooldown,
		clock:      clock,
		partitions: make(map[string]*partition),
	}
}

func (d *Dispatcher) partitionFor(competitor string) *partition {
	d.mu.RLock()
	p, ok := d.partitions[competitor]
	d.mu.RUnlock()
	if ok {
		return p
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok = d.partitions[competitor]; ok {
		return p
	}
	p = &partition{alerts: make(map[string]*intel.Alert)}
	d.partitions[competitor] = p
	return p
}

// OfferSignal dispatches a signal keyed by its head kind. Returns the alert
// to forward, or nil when the signal is below threshold or suppressed.
func (d *Dispatcher) OfferSignal(sig *intel.Signal) *intel.Alert {
	return d.offer(sig.Competitor, string(sig.Head), sig.Threat)
}

// OfferInsight dispatches an insight keyed by its pattern kind.
func (d *Dispatcher) OfferInsight(in *intel.Insight) *intel.Alert {
	return d.offer(in.Competitor, in.PatternKind, in.Threat)
}

func (d *Dispatcher) offer(competitor, subject string, threat intel.ThreatLevel) *intel.Alert {
	if !threat.AtLeast(d.threshold) {
		return nil
	}

	now := d.clock()
	p := d.partitionFor(competitor)

	p.mu.Lock()
	defer p.mu.Unlock()

	alert, ok := p.alerts[subject]
	if ok && now.Before(alert.SuppressedUntil) {
		n := d.suppressed.Add(1)
		slog.Debug("Alert suppressed",
			"competitor", competitor,
			"subject", subject,
			"suppressed_until", alert.SuppressedUntil,
			"total_suppressed", n,
		)
		return nil
	}

	// Either no entry exists or its suppression has lapsed. An expired
	// alert is gone (Snapshot evicts it the same way), so a re-fire starts
	// a fresh lifecycle with a new id and first-seen time.
	alert = &intel.Alert{
		SubjectID:       uuid.New().String(),
		Competitor:      competitor,
		Subject:         subject,
		Threat:          threat,
		FirstSeenAt:     now,
		SuppressedUntil: now.Add(d.cooldown),
	}
	p.alerts[subject] = alert

	// Forward a copy so the retained record stays isolated from
	// subscribers.
	forwarded := *alert
	return &forwarded
}

// Snapshot returns the competitor's current alerts whose suppression has not
// lapsed, for the synchronous refresh endpoint.
func (d *Dispatcher) Snapshot(competitor string) []*intel.Alert {
	d.mu.RLock()
	p, ok := d.partitions[competitor]
	d.mu.RUnlock()
	if !ok {
		return nil
	}

	now := d.clock()
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*intel.Alert
	for subject, alert := range p.alerts {
		if !now.Before(alert.SuppressedUntil) {
			// Suppression lapsed: the alert has expired.
			delete(p.alerts, subject)
			continue
		}
		cp := *alert
		out = append(out, &cp)
	}
	return out
}

// SuppressedCount returns the total number of records dropped by
// suppression since startup.
func (d *Dispatcher) SuppressedCount() uint64 {
	return d.suppressed.Load()
}
