// Package config provides configuration parsing and validation for the brain
// service: process-level settings from flags/environment, and the rules file
// holding the per-head scoring table and the correlation pattern table.
package config

import (
	"fmt"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// Config holds all process-level configuration for the brain service.
type Config struct {
	HTTPPort string

	// Kafka head boundary; empty brokers disable the consumer.
	KafkaBrokers    string
	SignalsTopic    string
	ConsumerGroupID string

	// Redis metrics reporting; empty address disables it.
	RedisAddr string

	// Postgres archive; empty DSN disables it.
	PostgresDSN string

	// Rules file path; empty loads the built-in default rules.
	RulesFile string

	CorrelationWindow time.Duration // W: max span considered for correlation
	Retention         time.Duration // R: signal lifetime in the store, R >= W
	AlertCooldown     time.Duration // suppression window per (competitor, subject)
	AlertThreshold    string        // minimum threat level that dispatches an alert
	FutureSkew        time.Duration // tolerated clock skew on observed_at

	SubscriberQueueSize int // bounded queue per hub subscriber
	OverflowLimit       int // consecutive overflows before disconnect

	// Alert delivery endpoints; all optional.
	AlertWebhookURL string
	SlackWebhookURL string
	EmailFrom       string
	EmailTo         string // comma-separated recipients
}

// Validate checks that all required configuration fields are set and have
// valid values. Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("http-port cannot be empty")
	}
	if c.KafkaBrokers != "" {
		if c.SignalsTopic == "" {
			return fmt.Errorf("signals-topic cannot be empty when kafka-brokers is set")
		}
		if c.ConsumerGroupID == "" {
			return fmt.Errorf("consumer-group-id cannot be empty when kafka-brokers is set")
		}
	}
	if c.CorrelationWindow <= 0 {
		return fmt.Errorf("correlation-window must be > 0")
	}
	if c.Retention < c.CorrelationWindow {
		return fmt.Errorf("retention (%s) must be >= correlation-window (%s)",
			c.Retention, c.CorrelationWindow)
	}
	if _, err := intel.ParseThreatLevel(c.AlertThreshold); err != nil {
		return fmt.Errorf("invalid alert-threshold: %w", err)
	}
	if c.FutureSkew < 0 {
		return fmt.Errorf("future-skew must be >= 0")
	}
	if c.SubscriberQueueSize <= 0 {
		return fmt.Errorf("subscriber-queue-size must be > 0")
	}
	if c.OverflowLimit <= 0 {
		return fmt.Errorf("overflow-limit must be > 0")
	}
	// A negative cooldown is not a startup error: the dispatcher degrades it
	// to always-alert (false positives are preferred to silent misses).
	return nil
}

// ThreatThreshold returns the parsed alert threshold level.
// Call only after Validate has succeeded.
func (c *Config) ThreatThreshold() intel.ThreatLevel {
	t, _ := intel.ParseThreatLevel(c.AlertThreshold)
	return t
}
