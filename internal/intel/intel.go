// Package intel defines the core records flowing through the engine:
// Signals observed by heads, Insights derived by the correlator, and
// Alerts emitted by the dispatcher.
package intel

import (
	"fmt"
	"time"
)

// HeadKind identifies which of the six collector heads produced a signal.
type HeadKind string

const (
	HeadPriceWatch  HeadKind = "price_watch"
	HeadJobSpy      HeadKind = "job_spy"
	HeadTechRadar   HeadKind = "tech_radar"
	HeadSocialPulse HeadKind = "social_pulse"
	HeadPatentHawk  HeadKind = "patent_hawk"
	HeadAdTracker   HeadKind = "ad_tracker"
)

// HeadKinds lists all known head kinds.
var HeadKinds = []HeadKind{
	HeadPriceWatch,
	HeadJobSpy,
	HeadTechRadar,
	HeadSocialPulse,
	HeadPatentHawk,
	HeadAdTracker,
}

// IsValid reports whether h is one of the six known head kinds.
func (h HeadKind) IsValid() bool {
	for _, k := range HeadKinds {
		if h == k {
			return true
		}
	}
	return false
}

// ThreatLevel is the totally ordered severity of a record.
type ThreatLevel string

const (
	ThreatInfo     ThreatLevel = "info"
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

var threatRank = map[ThreatLevel]int{
	ThreatInfo:     0,
	ThreatLow:      1,
	ThreatMedium:   2,
	ThreatHigh:     3,
	ThreatCritical: 4,
}

// Rank returns the position of t in the severity order (info=0 .. critical=4).
// Unknown levels rank below info.
func (t ThreatLevel) Rank() int {
	if r, ok := threatRank[t]; ok {
		return r
	}
	return -1
}

// IsValid reports whether t is a known threat level.
func (t ThreatLevel) IsValid() bool {
	_, ok := threatRank[t]
	return ok
}

// AtLeast reports whether t is at or above other in the severity order.
func (t ThreatLevel) AtLeast(other ThreatLevel) bool {
	return t.Rank() >= other.Rank()
}

// Promote returns the threat level one step above t, capped at critical.
func (t ThreatLevel) Promote() ThreatLevel {
	switch t {
	case ThreatInfo:
		return ThreatLow
	case ThreatLow:
		return ThreatMedium
	case ThreatMedium:
		return ThreatHigh
	case ThreatHigh, ThreatCritical:
		return ThreatCritical
	}
	return t
}

// MaxThreat returns the higher of a and b.
func MaxThreat(a, b ThreatLevel) ThreatLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseThreatLevel parses a threat level string.
func ParseThreatLevel(s string) (ThreatLevel, error) {
	t := ThreatLevel(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown threat level: %q (must be info, low, medium, high, or critical)", s)
	}
	return t, nil
}

// Signal is a single immutable observation reported by a head for one
// competitor. Confidence and Threat are filled in by the scorer before the
// signal is committed; heads supply only RawConfidence.
type Signal struct {
	ID            string         `json:"id"`
	Head          HeadKind       `json:"head"`
	Competitor    string         `json:"competitor"`
	ObservedAt    time.Time      `json:"observed_at"`
	Payload       map[string]any `json:"payload,omitempty"`
	RawConfidence float64        `json:"raw_confidence"`

	// Scored fields, set once at ingest.
	Confidence float64     `json:"confidence"`
	Threat     ThreatLevel `json:"threat_level"`
}

// PayloadFloat returns the named payload field as a float64.
// JSON numbers decode as float64; ints are accepted for signals built in code.
func (s *Signal) PayloadFloat(field string) (float64, bool) {
	v, ok := s.Payload[field]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// PayloadBool returns the named payload field as a bool.
func (s *Signal) PayloadBool(field string) (bool, bool) {
	v, ok := s.Payload[field]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Insight is a derived finding correlating two or more signals across heads
// for one competitor. Insights are never mutated; a newer insight supersedes.
type Insight struct {
	ID                  string      `json:"id"`
	Competitor          string      `json:"competitor"`
	SignalIDs           []string    `json:"contributing_signal_ids"`
	PatternKind         string      `json:"pattern_kind"`
	CompositeConfidence float64     `json:"composite_confidence"`
	Threat              ThreatLevel `json:"threat_level"`
	CreatedAt           time.Time   `json:"created_at"`
}

// Alert is a dispatched, suppression-tracked notification. An alert lives
// for exactly one suppression window; a re-fire after the window lapses is
// a new alert with its own id and first-seen time.
type Alert struct {
	SubjectID       string      `json:"subject_id"`
	Competitor      string      `json:"competitor"`
	Subject         string      `json:"subject"` // pattern kind for insights, head kind for signals
	Threat          ThreatLevel `json:"threat_level"`
	FirstSeenAt     time.Time   `json:"first_seen_at"`
	SuppressedUntil time.Time   `json:"suppressed_until"`
}

// RecordKind tags a broadcast record.
type RecordKind string

const (
	KindSignal  RecordKind = "signal"
	KindInsight RecordKind = "insight"
	KindAlert   RecordKind = "alert"
)

// Record is the tagged union fanned out to live subscribers.
type Record struct {
	Kind    RecordKind `json:"kind"`
	Signal  *Signal    `json:"signal,omitempty"`
	Insight *Insight   `json:"insight,omitempty"`
	Alert   *Alert     `json:"alert,omitempty"`
}

// SignalRecord wraps a signal for broadcast.
func SignalRecord(s *Signal) Record { return Record{Kind: KindSignal, Signal: s} }

// InsightRecord wraps an insight for broadcast.
func InsightRecord(i *Insight) Record { return Record{Kind: KindInsight, Insight: i} }

// AlertRecord wraps an alert for broadcast.
func AlertRecord(a *Alert) Record { return Record{Kind: KindAlert, Alert: a} }

// Competitor returns the competitor the record concerns.
func (r Record) Competitor() string {
	switch r.Kind {
	case KindSignal:
		return r.Signal.Competitor
	case KindInsight:
		return r.Insight.Competitor
	case KindAlert:
		return r.Alert.Competitor
	}
	return ""
}
