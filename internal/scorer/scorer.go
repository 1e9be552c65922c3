// Package scorer computes confidence and threat level for incoming signals.
// Scoring is deterministic and side-effect-free so replays and tests produce
// identical results for identical input.
package scorer

import (
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/config"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// completenessPenalty is the maximum confidence fraction lost when every
// required payload field is missing.
const completenessPenalty = 0.5

// Scorer scores signals against the configured per-head tables.
type Scorer struct {
	heads map[intel.HeadKind]config.HeadScoring
}

// New creates a scorer from the rule set's per-head scoring table.
func New(rules *config.Rules) *Scorer {
	return &Scorer{heads: rules.Heads}
}

// Score returns the confidence and threat level for a signal. The threat
// level escalates through the head's configured thresholds on its metric
// field; confidence combines the head-reported raw confidence with a penalty
// proportional to the share of required payload fields that are missing.
func (sc *Scorer) Score(sig *intel.Signal) (float64, intel.ThreatLevel) {
	hs, ok := sc.heads[sig.Head]
	if !ok {
		// Head with no scoring entry: pass the raw confidence through at
		// the lowest severity rather than dropping the signal.
		return clamp01(sig.RawConfidence), intel.ThreatInfo
	}

	confidence := clamp01(sig.RawConfidence * (1 - completenessPenalty*sc.missingFraction(sig, hs)))
	return confidence, sc.threat(sig, hs)
}

// missingFraction returns the share of required payload fields absent from
// the signal, in [0,1].
func (sc *Scorer) missingFraction(sig *intel.Signal, hs config.HeadScoring) float64 {
	if len(hs.Required) == 0 {
		return 0
	}
	missing := 0
	for _, field := range hs.Required {
		if _, ok := sig.Payload[field]; !ok {
			missing++
		}
	}
	return float64(missing) / float64(len(hs.Required))
}

func (sc *Scorer) threat(sig *intel.Signal, hs config.HeadScoring) intel.ThreatLevel {
	if hs.Metric == "" {
		return intel.ThreatLow
	}
	v, ok := sig.PayloadFloat(hs.Metric)
	if !ok {
		return intel.ThreatLow
	}
	if hs.Absolute && v < 0 {
		v = -v
	}
	switch {
	case v > hs.Critical:
		return intel.ThreatCritical
	case v > hs.High:
		return intel.ThreatHigh
	case v > hs.Medium:
		return intel.ThreatMedium
	}
	return intel.ThreatLow
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
