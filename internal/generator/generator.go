// Package generator produces synthetic competitor signals with configurable
// weighted distributions. It supports deterministic generation via seed-based
// RNG for reproducible test data.
package generator

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// DefaultHeadDist spreads signals across all six heads with extra weight on
// the high-volume scrapers.
const DefaultHeadDist = "price_watch:25,job_spy:20,tech_radar:15,social_pulse:20,patent_hawk:5,ad_tracker:15"

// DefaultCompetitors is the stock competitor roster for generated data.
var DefaultCompetitors = []string{"acme-corp", "globex", "initech", "umbrella", "stark-industries"}

// Config controls signal generation.
type Config struct {
	Seed        int64    // 0 means time-based seed
	HeadDist    string   // weighted head distribution, e.g. "price_watch:50,job_spy:50"
	Competitors []string // competitor names to draw from, uniform
}

// weightedValue represents a single value in a weighted distribution.
type weightedValue struct {
	value  string
	weight int
}

// ParseDistribution parses a "value:weight,value:weight" string. Weights must
// be positive integers summing to 100.
func ParseDistribution(distStr string) (map[string]int, error) {
	if distStr == "" {
		return nil, fmt.Errorf("distribution cannot be empty")
	}

	dist := make(map[string]int)
	total := 0
	for _, part := range strings.Split(distStr, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid distribution entry %q (expected value:weight)", part)
		}
		weight, err := strconv.Atoi(kv[1])
		if err != nil || weight <= 0 {
			return nil, fmt.Errorf("invalid weight %q for value %q", kv[1], kv[0])
		}
		dist[kv[0]] = weight
		total += weight
	}
	if total != 100 {
		return nil, fmt.Errorf("distribution weights must sum to 100, got %d", total)
	}
	return dist, nil
}

// Generator creates signals according to the configured distributions.
type Generator struct {
	rng         *rand.Rand
	headDist    []weightedValue
	competitors []string
}

// New creates a signal generator. An invalid head distribution is a
// configuration error.
func New(cfg Config) (*Generator, error) {
	if cfg.HeadDist == "" {
		cfg.HeadDist = DefaultHeadDist
	}
	if len(cfg.Competitors) == 0 {
		cfg.Competitors = DefaultCompetitors
	}

	distMap, err := ParseDistribution(cfg.HeadDist)
	if err != nil {
		return nil, fmt.Errorf("invalid head distribution: %w", err)
	}
	headDist := make([]weightedValue, 0, len(distMap))
	for value, weight := range distMap {
		if !intel.HeadKind(value).IsValid() {
			return nil, fmt.Errorf("head distribution references unknown head %q", value)
		}
		headDist = append(headDist, weightedValue{value: value, weight: weight})
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		rng:         rand.New(rand.NewSource(seed)),
		headDist:    headDist,
		competitors: cfg.Competitors,
	}, nil
}

// Generate creates one signal with head-appropriate payload fields. The
// scored fields are left zero; the engine fills them at ingest.
func (g *Generator) Generate() *intel.Signal {
	head := intel.HeadKind(g.selectWeighted(g.headDist))
	return &intel.Signal{
		ID:            uuid.New().String(),
		Head:          head,
		Competitor:    g.selectFrom(g.competitors),
		ObservedAt:    time.Now().UTC(),
		Payload:       g.payloadFor(head),
		RawConfidence: 0.5 + g.rng.Float64()*0.5,
	}
}

// payloadFor builds a payload plausible for the head, occasionally omitting
// optional fields so completeness penalties get exercised.
func (g *Generator) payloadFor(head intel.HeadKind) map[string]any {
	p := make(map[string]any)
	switch head {
	case intel.HeadPriceWatch:
		p["product"] = g.selectFrom([]string{"starter", "pro", "enterprise"})
		// Bias toward cuts so price-slash patterns fire now and then
		p["percent_change"] = g.rng.Float64()*60 - 40
	case intel.HeadJobSpy:
		p["hiring_velocity"] = float64(g.rng.Intn(30))
		if g.rng.Float64() < 0.2 {
			p["hiring_freeze"] = true
		}
	case intel.HeadTechRadar:
		p["technology_name"] = g.selectFrom([]string{"llm-inference", "edge-compute", "vector-db", "robotics"})
		p["investment_amount"] = float64(g.rng.Intn(200)) * 1e6
	case intel.HeadSocialPulse:
		p["sentiment_score"] = g.rng.Float64()*2 - 1
		p["engagement_count"] = float64(g.rng.Intn(50000))
	case intel.HeadPatentHawk:
		p["patent_number"] = fmt.Sprintf("US%07d", g.rng.Intn(10000000))
		p["title"] = g.selectFrom([]string{"Distributed inference", "Adaptive caching", "Autonomous routing"})
	case intel.HeadAdTracker:
		p["ad_copy"] = g.selectFrom([]string{"Switch and save", "The future is here", "Built for scale"})
		p["spend_change"] = g.rng.Float64()*3 - 1
	}

	// Drop one required field occasionally
	if g.rng.Float64() < 0.1 {
		for k := range p {
			delete(p, k)
			break
		}
	}
	return p
}

// selectWeighted selects a value from a weighted distribution using
// cumulative probability.
func (g *Generator) selectWeighted(choices []weightedValue) string {
	if len(choices) == 0 {
		return "unknown"
	}

	total := 0
	for _, c := range choices {
		total += c.weight
	}

	r := g.rng.Intn(total)
	cumulative := 0
	for _, c := range choices {
		cumulative += c.weight
		if r < cumulative {
			return c.value
		}
	}
	return choices[len(choices)-1].value
}

// selectFrom randomly selects a value with uniform probability.
func (g *Generator) selectFrom(choices []string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[g.rng.Intn(len(choices))]
}

// GenerateSlashFreezePair creates a price-slash plus hiring-freeze pair for
// one competitor, the stock cost-cutting scenario, for smoke testing.
func GenerateSlashFreezePair(competitor string) []*intel.Signal {
	now := time.Now().UTC()
	return []*intel.Signal{
		{
			ID:         uuid.New().String(),
			Head:       intel.HeadPriceWatch,
			Competitor: competitor,
			ObservedAt: now.Add(-time.Minute),
			Payload: map[string]any{
				"product":        "enterprise",
				"percent_change": -18.0,
			},
			RawConfidence: 0.9,
		},
		{
			ID:         uuid.New().String(),
			Head:       intel.HeadJobSpy,
			Competitor: competitor,
			ObservedAt: now,
			Payload: map[string]any{
				"hiring_velocity": 2.0,
				"hiring_freeze":   true,
			},
			RawConfidence: 0.85,
		},
	}
}
