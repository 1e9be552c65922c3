// Package correlator matches new signals against recently stored signals
// using the configured pattern table and emits cross-head insights.
package correlator

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/config"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/store"
)

// Correlator evaluates the pattern table against the correlation window
// around each new signal. It remembers already-emitted evidence sets so the
// same (signal-id-set, pattern-kind) pair never re-fires, even when later
// queries re-observe the same signals.
type Correlator struct {
	store    *store.Store
	patterns []config.Pattern
	window   time.Duration
	combine  func([]float64) float64
	clock    store.Clock

	mu        sync.Mutex
	emitted   map[string]bool
	recent    map[string][]*intel.Insight // per-competitor insight retention
	retention time.Duration
}

// New creates a correlator over the given store. window is the correlation
// span W on each side of a signal's observed-at; insights are retained for
// the given retention for snapshot queries. A nil clock defaults to time.Now.
func New(st *store.Store, rules *config.Rules, window, retention time.Duration, clock store.Clock) *Correlator {
	if clock == nil {
		clock = time.Now
	}
	return &Correlator{
		store:     st,
		patterns:  rules.Patterns,
		window:    window,
		combine:   combiner(rules.Combiner),
		clock:     clock,
		emitted:   make(map[string]bool),
		recent:    make(map[string][]*intel.Insight),
		retention: retention,
	}
}

// OnSignal evaluates every pattern against the competitor's correlation
// window around the new signal and returns the insights emitted (zero or
// more). The same evidence never produces the same pattern twice.
func (c *Correlator) OnSignal(sig *intel.Signal) []*intel.Insight {
	from := sig.ObservedAt.Add(-c.window)
	to := sig.ObservedAt.Add(c.window)
	window := c.store.Query(sig.Competitor, from, to, "")
	if len(window) < 2 {
		return nil
	}

	var insights []*intel.Insight
	for _, p := range c.patterns {
		contributors, ok := matchPattern(p, window)
		if !ok {
			continue
		}
		insight := c.emit(p, sig.Competitor, contributors)
		if insight != nil {
			insights = append(insights, insight)
		}
	}
	return insights
}

// matchPattern selects one distinct signal per require condition, earliest
// match first for determinism. It fails when any require condition has no
// match or any negate condition has one.
func matchPattern(p config.Pattern, window []*intel.Signal) ([]*intel.Signal, bool) {
	for _, neg := range p.Negate {
		for _, s := range window {
			if neg.Matches(s) {
				return nil, false
			}
		}
	}

	used := make(map[string]bool, len(p.Require))
	contributors := make([]*intel.Signal, 0, len(p.Require))
	for _, cond := range p.Require {
		found := false
		for _, s := range window {
			if used[s.ID] || !cond.Matches(s) {
				continue
			}
			used[s.ID] = true
			contributors = append(contributors, s)
			found = true
			break
		}
		if !found {
			return nil, false
		}
	}
	return contributors, true
}

// emit builds the insight for a matched pattern, unless this evidence set
// already fired for the pattern kind.
func (c *Correlator) emit(p config.Pattern, competitor string, contributors []*intel.Signal) *intel.Insight {
	ids := make([]string, len(contributors))
	for i, s := range contributors {
		ids[i] = s.ID
	}
	sort.Strings(ids)
	key := p.Kind + "|" + strings.Join(ids, ",")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.emitted[key] {
		return nil
	}
	c.emitted[key] = true

	confidences := make([]float64, len(contributors))
	minConf := 1.0
	threat := intel.ThreatInfo
	for i, s := range contributors {
		confidences[i] = s.Confidence
		if s.Confidence < minConf {
			minConf = s.Confidence
		}
		threat = intel.MaxThreat(threat, s.Threat)
	}
	composite := c.combine(confidences)
	// Floor-clamp: a combiner never reports less confidence than the least
	// confident contributor.
	if composite < minConf {
		composite = minConf
	}
	if composite > 1 {
		composite = 1
	}
	if p.Promote {
		threat = threat.Promote()
	}

	insight := &intel.Insight{
		ID:                  uuid.New().String(),
		Competitor:          competitor,
		SignalIDs:           ids,
		PatternKind:         p.Kind,
		CompositeConfidence: composite,
		Threat:              threat,
		CreatedAt:           c.clock(),
	}
	c.retainLocked(insight)
	return insight
}

// retainLocked appends the insight to the competitor's recent list and
// evicts insights past retention. Caller holds c.mu.
func (c *Correlator) retainLocked(insight *intel.Insight) {
	cutoff := c.clock().Add(-c.retention)
	kept := c.recent[insight.Competitor][:0]
	for _, in := range c.recent[insight.Competitor] {
		if !in.CreatedAt.Before(cutoff) {
			kept = append(kept, in)
		}
	}
	c.recent[insight.Competitor] = append(kept, insight)
}

// Recent returns the retained insights for a competitor, oldest first.
func (c *Correlator) Recent(competitor string) []*intel.Insight {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.clock().Add(-c.retention)
	var out []*intel.Insight
	for _, in := range c.recent[competitor] {
		if !in.CreatedAt.Before(cutoff) {
			out = append(out, in)
		}
	}
	return out
}

func combiner(name string) func([]float64) float64 {
	switch name {
	case "min":
		return func(vs []float64) float64 {
			m := 1.0
			for _, v := range vs {
				if v < m {
					m = v
				}
			}
			return m
		}
	case "max":
		return func(vs []float64) float64 {
			m := 0.0
			for _, v := range vs {
				if v > m {
					m = v
				}
			}
			return m
		}
	case "product":
		return func(vs []float64) float64 {
			p := 1.0
			for _, v := range vs {
				p *= v
			}
			return p
		}
	default: // mean
		return func(vs []float64) float64 {
			if len(vs) == 0 {
				return 0
			}
			sum := 0.0
			for _, v := range vs {
				sum += v
			}
			return sum / float64(len(vs))
		}
	}
}
