package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/api"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/brain"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/config"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/consumer"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/correlator"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/database"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/dispatcher"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/hub"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/metrics"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/notify"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/notify/email"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/router"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/scorer"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/shared"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/store"
)

func main() {
	// Parse command-line flags (env vars supply defaults)
	cfg := &config.Config{}
	flag.StringVar(&cfg.HTTPPort, "http-port", shared.GetEnvOrDefault("HTTP_PORT", "8090"), "HTTP server port")
	flag.StringVar(&cfg.KafkaBrokers, "kafka-brokers", shared.GetEnvOrDefault("KAFKA_BROKERS", ""), "Kafka broker addresses (comma-separated, empty disables the consumer)")
	flag.StringVar(&cfg.SignalsTopic, "signals-topic", shared.GetEnvOrDefault("SIGNALS_TOPIC", "signals.observed"), "Kafka topic for observed signals")
	flag.StringVar(&cfg.ConsumerGroupID, "consumer-group-id", shared.GetEnvOrDefault("CONSUMER_GROUP_ID", "brain-group"), "Kafka consumer group ID")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", shared.GetEnvOrDefault("REDIS_ADDR", ""), "Redis server address (empty disables metrics reporting)")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", shared.GetEnvOrDefault("POSTGRES_DSN", ""), "PostgreSQL DSN for the archive (empty disables it)")
	flag.StringVar(&cfg.RulesFile, "rules-file", shared.GetEnvOrDefault("RULES_FILE", ""), "Path to JSON rules file (empty uses built-in defaults)")
	flag.DurationVar(&cfg.CorrelationWindow, "correlation-window", 30*time.Minute, "Correlation window")
	flag.DurationVar(&cfg.Retention, "retention", time.Hour, "Signal retention (must be >= correlation window)")
	flag.DurationVar(&cfg.AlertCooldown, "alert-cooldown", 15*time.Minute, "Suppression window per competitor and subject")
	flag.StringVar(&cfg.AlertThreshold, "alert-threshold", shared.GetEnvOrDefault("ALERT_THRESHOLD", "high"), "Minimum threat level that dispatches an alert")
	flag.DurationVar(&cfg.FutureSkew, "future-skew", 5*time.Minute, "Tolerated clock skew on observed_at")
	flag.IntVar(&cfg.SubscriberQueueSize, "subscriber-queue-size", 256, "Bounded queue size per stream subscriber")
	flag.IntVar(&cfg.OverflowLimit, "overflow-limit", 10, "Consecutive overflows before a slow subscriber is disconnected")
	flag.StringVar(&cfg.AlertWebhookURL, "alert-webhook-url", shared.GetEnvOrDefault("ALERT_WEBHOOK_URL", ""), "Webhook URL for alert delivery (empty disables it)")
	flag.StringVar(&cfg.SlackWebhookURL, "slack-webhook-url", shared.GetEnvOrDefault("SLACK_WEBHOOK_URL", ""), "Slack Incoming Webhook URL for alert delivery (empty disables it)")
	flag.StringVar(&cfg.EmailFrom, "email-from", shared.GetEnvOrDefault("EMAIL_FROM", ""), "From address for alert email (empty disables it)")
	flag.StringVar(&cfg.EmailTo, "email-to", shared.GetEnvOrDefault("EMAIL_TO", ""), "Comma-separated alert email recipients")
	flag.Parse()

	// Set up structured logging
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	slog.Info("Starting brain service",
		"http_port", cfg.HTTPPort,
		"kafka_brokers", cfg.KafkaBrokers,
		"signals_topic", cfg.SignalsTopic,
		"redis_addr", cfg.RedisAddr,
		"postgres_dsn", shared.MaskDSN(cfg.PostgresDSN),
		"rules_file", cfg.RulesFile,
		"correlation_window", cfg.CorrelationWindow,
		"retention", cfg.Retention,
		"alert_cooldown", cfg.AlertCooldown,
		"alert_threshold", cfg.AlertThreshold,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// A broken rule set is fatal before the engine accepts a single signal.
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		slog.Error("Failed to load rules", "error", err, "rules_file", cfg.RulesFile)
		os.Exit(1)
	}
	slog.Info("Rules loaded",
		"combiner", rules.Combiner,
		"heads", len(rules.Heads),
		"patterns", len(rules.Patterns),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Optional Redis connection for metrics reporting
	var collector *metrics.Collector
	if cfg.RedisAddr != "" {
		redisClient, err := shared.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			slog.Info("Tip: Start Redis with 'docker compose up -d redis' or ensure Redis is running")
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.Info("Successfully connected to Redis")
		collector = metrics.NewCollector("brain", redisClient)
		collector.Start(ctx)
	} else {
		collector = metrics.NewCollector("brain", nil)
	}

	// Core engine
	signalStore := store.New(cfg.Retention, time.Now)
	broadcastHub := hub.New(cfg.SubscriberQueueSize, cfg.OverflowLimit)
	engine := brain.New(brain.Options{
		Store:      signalStore,
		Scorer:     scorer.New(rules),
		Correlator: correlator.New(signalStore, rules, cfg.CorrelationWindow, cfg.Retention, time.Now),
		Dispatcher: dispatcher.New(cfg.ThreatThreshold(), cfg.AlertCooldown, time.Now),
		Hub:        broadcastHub,
		Metrics:    collector,
		FutureSkew: cfg.FutureSkew,
		Enabled:    enabledHeads(rules),
	})

	// Optional Postgres archive, draining its own hub subscription
	var archiver *database.Archiver
	if cfg.PostgresDSN != "" {
		db, err := database.NewDB(cfg.PostgresDSN)
		if err != nil {
			slog.Error("Failed to connect to PostgreSQL", "error", err)
			slog.Info("Tip: Start Postgres with 'docker compose up -d postgres'")
			os.Exit(1)
		}
		defer db.Close()
		archiver = database.NewArchiver(db, broadcastHub.Subscribe())
		archiver.Start(ctx)
	}

	// Optional outbound alert delivery, also a hub subscriber
	var notifier *notify.Notifier
	if senders := buildSenders(cfg); len(senders) > 0 {
		notifier = notify.NewNotifier(broadcastHub.Subscribe(), senders...)
		notifier.Start(ctx)
		slog.Info("Alert delivery enabled", "channels", len(senders))
	}

	// Optional Kafka head boundary
	if cfg.KafkaBrokers != "" {
		kafkaConsumer, err := consumer.NewConsumer(cfg.KafkaBrokers, cfg.SignalsTopic, cfg.ConsumerGroupID)
		if err != nil {
			slog.Error("Failed to create Kafka consumer", "error", err)
			slog.Info("Tip: Start Kafka with 'docker compose up -d kafka'")
			os.Exit(1)
		}
		defer kafkaConsumer.Close()
		go consumeSignals(ctx, kafkaConsumer, engine)
	}

	// HTTP server
	handlers := api.NewHandlers(engine, broadcastHub, collector)
	server := router.NewServer(cfg.HTTPPort, handlers)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if archiver != nil {
		archiver.Wait()
	}
	if notifier != nil {
		notifier.Wait()
	}
	collector.Wait()

	slog.Info("Brain service stopped")
}

// enabledHeads builds the ingest head filter from the rule set.
func enabledHeads(rules *config.Rules) map[intel.HeadKind]bool {
	enabled := make(map[intel.HeadKind]bool, len(rules.Heads))
	for head, hs := range rules.Heads {
		enabled[head] = hs.Enabled
	}
	return enabled
}

// buildSenders assembles the configured outbound alert channels.
func buildSenders(cfg *config.Config) []notify.Sender {
	var senders []notify.Sender
	if cfg.AlertWebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.AlertWebhookURL))
	}
	if cfg.SlackWebhookURL != "" {
		senders = append(senders, notify.NewSlackSender(cfg.SlackWebhookURL))
	}
	if cfg.EmailFrom != "" && cfg.EmailTo != "" {
		registry := email.NewRegistry()
		registry.Register(email.NewResendProvider())
		registry.Register(email.NewSESProvider())
		if err := registry.SetPrimary("resend"); err != nil {
			slog.Warn("Failed to set primary email provider", "error", err)
		}
		if err := registry.SetFallback("ses"); err != nil {
			slog.Warn("Failed to set fallback email provider", "error", err)
		}
		to := strings.Split(cfg.EmailTo, ",")
		for i := range to {
			to[i] = strings.TrimSpace(to[i])
		}
		senders = append(senders, notify.NewEmailSender(registry, cfg.EmailFrom, to))
	}
	return senders
}
