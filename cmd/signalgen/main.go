// Command signalgen publishes synthetic competitor signals to Kafka for load
// and end-to-end testing of the brain service.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/generator"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/producer"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/shared"
)

func main() {
	var (
		kafkaBrokers = flag.String("kafka-brokers", shared.GetEnvOrDefault("KAFKA_BROKERS", "localhost:9092"), "Kafka broker addresses (comma-separated)")
		signalsTopic = flag.String("signals-topic", shared.GetEnvOrDefault("SIGNALS_TOPIC", "signals.observed"), "Kafka topic for observed signals")
		count        = flag.Int("count", 100, "Number of signals to generate (0 = run until interrupted)")
		interval     = flag.Duration("interval", 100*time.Millisecond, "Delay between signals")
		seed         = flag.Int64("seed", 0, "RNG seed for reproducible output (0 = time-based)")
		headDist     = flag.String("head-dist", generator.DefaultHeadDist, "Weighted head distribution (head:weight, weights sum to 100)")
		competitors  = flag.String("competitors", "", "Comma-separated competitor names (empty uses the stock roster)")
		slashFreeze  = flag.String("slash-freeze", "", "Also emit a price-slash plus hiring-freeze pair for the named competitor")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := generator.Config{
		Seed:     *seed,
		HeadDist: *headDist,
	}
	if *competitors != "" {
		for _, c := range strings.Split(*competitors, ",") {
			cfg.Competitors = append(cfg.Competitors, strings.TrimSpace(c))
		}
	}

	gen, err := generator.New(cfg)
	if err != nil {
		slog.Error("Invalid generator configuration", "error", err)
		os.Exit(1)
	}

	pub, err := producer.New(*kafkaBrokers, *signalsTopic)
	if err != nil {
		slog.Error("Failed to create Kafka producer", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, stopping...")
		cancel()
	}()

	if *slashFreeze != "" {
		for _, sig := range generator.GenerateSlashFreezePair(*slashFreeze) {
			if err := pub.Publish(ctx, sig); err != nil {
				slog.Error("Failed to publish scenario signal", "error", err)
				os.Exit(1)
			}
		}
		slog.Info("Published slash-freeze scenario", "competitor", *slashFreeze)
	}

	published := 0
	for *count == 0 || published < *count {
		select {
		case <-ctx.Done():
			slog.Info("Generation stopped", "published", published)
			return
		default:
		}

		sig := gen.Generate()
		if err := pub.Publish(ctx, sig); err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("Failed to publish signal", "signal_id", sig.ID, "error", err)
			continue
		}
		published++

		if published%100 == 0 {
			slog.Info("Progress", "published", published)
		}

		select {
		case <-ctx.Done():
		case <-time.After(*interval):
		}
	}

	slog.Info("Generation complete", "published", published)
}
