// Package metrics provides the engine's counter collection and reporting.
// Counters are kept in-process with atomics and periodically written to
// Redis under a TTL'd key for centralized dashboards.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for engine metrics.
	KeyPrefix = "metrics:"
	// TTL is how long metrics stay in Redis if not refreshed.
	TTL = 2 * time.Minute
	// DefaultReportInterval is the default interval for writing metrics to Redis.
	DefaultReportInterval = 30 * time.Second
)

// EngineMetrics is the snapshot written to Redis and served over HTTP.
type EngineMetrics struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`

	SignalsReceived  uint64 `json:"signals_received"`
	SignalsIngested  uint64 `json:"signals_ingested"`
	SignalsRejected  uint64 `json:"signals_rejected"`
	InsightsEmitted  uint64 `json:"insights_emitted"`
	AlertsDispatched uint64 `json:"alerts_dispatched"`
	ProcessingErrors uint64 `json:"processing_errors"`

	AvgIngestLatencyNs float64 `json:"avg_ingest_latency_ns"`

	CustomCounters map[string]uint64 `json:"custom_counters,omitempty"`
}

// Collector collects and reports engine metrics. All record methods are safe
// for concurrent use and nil-receiver tolerant, so components can carry an
// optional collector without nil checks.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	received   atomic.Uint64
	ingested   atomic.Uint64
	rejected   atomic.Uint64
	insights   atomic.Uint64
	alerts     atomic.Uint64
	errors     atomic.Uint64
	latencyNs  atomic.Uint64
	latencyCnt atomic.Uint64

	customMu sync.RWMutex
	custom   map[string]*atomic.Uint64

	wg sync.WaitGroup
}

// NewCollector creates a collector. redisClient may be nil; counters then
// stay in-process only.
func NewCollector(serviceName string, redisClient *redis.Client) *Collector {
	return &Collector{
		serviceName:    serviceName,
		redis:          redisClient,
		startedAt:      time.Now().UTC(),
		reportInterval: DefaultReportInterval,
		custom:         make(map[string]*atomic.Uint64),
	}
}

// SetReportInterval sets the interval for writing metrics to Redis.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.reportInterval = interval
}

// Start begins periodic reporting to Redis until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	if c == nil || c.redis == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.write(context.Background()) // final write
				return
			case <-ticker.C:
				c.write(ctx)
			}
		}
	}()
}

// Wait blocks until the reporting goroutine has exited.
func (c *Collector) Wait() {
	if c != nil {
		c.wg.Wait()
	}
}

// RecordReceived counts a signal arriving at any boundary.
func (c *Collector) RecordReceived() {
	if c != nil {
		c.received.Add(1)
	}
}

// RecordIngested counts a committed signal with its ingest latency.
func (c *Collector) RecordIngested(latency time.Duration) {
	if c == nil {
		return
	}
	c.ingested.Add(1)
	c.latencyNs.Add(uint64(latency.Nanoseconds()))
	c.latencyCnt.Add(1)
}

// RecordRejected counts a signal rejected at validation.
func (c *Collector) RecordRejected() {
	if c != nil {
		c.rejected.Add(1)
	}
}

// RecordInsights counts emitted insights.
func (c *Collector) RecordInsights(n int) {
	if c != nil && n > 0 {
		c.insights.Add(uint64(n))
	}
}

// RecordAlert counts a dispatched alert.
func (c *Collector) RecordAlert() {
	if c != nil {
		c.alerts.Add(1)
	}
}

// RecordError counts an internal processing error.
func (c *Collector) RecordError() {
	if c != nil {
		c.errors.Add(1)
	}
}

// IncrementCustom increments a named counter.
func (c *Collector) IncrementCustom(name string) {
	if c == nil {
		return
	}
	c.customMu.RLock()
	counter, exists := c.custom[name]
	c.customMu.RUnlock()
	if !exists {
		c.customMu.Lock()
		if counter, exists = c.custom[name]; !exists {
			counter = &atomic.Uint64{}
			c.custom[name] = counter
		}
		c.customMu.Unlock()
	}
	counter.Add(1)
}

// Snapshot returns current metrics without writing to Redis.
func (c *Collector) Snapshot() *EngineMetrics {
	if c == nil {
		return &EngineMetrics{}
	}
	var avgLatency float64
	if cnt := c.latencyCnt.Load(); cnt > 0 {
		avgLatency = float64(c.latencyNs.Load()) / float64(cnt)
	}

	c.customMu.RLock()
	custom := make(map[string]uint64, len(c.custom))
	for name, counter := range c.custom {
		custom[name] = counter.Load()
	}
	c.customMu.RUnlock()

	return &EngineMetrics{
		ServiceName:        c.serviceName,
		StartedAt:          c.startedAt,
		LastUpdated:        time.Now().UTC(),
		SignalsReceived:    c.received.Load(),
		SignalsIngested:    c.ingested.Load(),
		SignalsRejected:    c.rejected.Load(),
		InsightsEmitted:    c.insights.Load(),
		AlertsDispatched:   c.alerts.Load(),
		ProcessingErrors:   c.errors.Load(),
		AvgIngestLatencyNs: avgLatency,
		CustomCounters:     custom,
	}
}

// write writes current metrics to Redis.
func (c *Collector) write(ctx context.Context) {
	snap := c.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to marshal metrics", "service", c.serviceName, "error", err)
		return
	}
	key := KeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, TTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "service", c.serviceName, "error", err)
		return
	}
	slog.Debug("Metrics written to Redis", "service", c.serviceName, "key", key)
}
