package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/brain"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/consumer"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// consumeSignals reads observed signals from Kafka and feeds them into the
// engine until ctx is cancelled. Validation failures are logged and skipped;
// a malformed message must not wedge the partition.
func consumeSignals(ctx context.Context, c *consumer.Consumer, engine *brain.Brain) {
	slog.Info("Starting signal consumption loop")
	for {
		sig, err := c.ReadSignal(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.Info("Signal consumption loop stopped")
				return
			}
			slog.Error("Failed to read signal from Kafka", "error", err)
			continue
		}

		result, err := engine.Ingest(ctx, sig)
		if err != nil {
			if errors.Is(err, intel.ErrValidation) {
				slog.Warn("Skipping invalid signal from Kafka",
					"signal_id", sig.ID,
					"competitor", sig.Competitor,
					"error", err,
				)
				continue
			}
			slog.Error("Failed to ingest signal",
				"signal_id", sig.ID,
				"competitor", sig.Competitor,
				"error", err,
			)
			continue
		}

		if len(result.Insights) > 0 || len(result.Alerts) > 0 {
			slog.Info("Signal produced findings",
				"signal_id", sig.ID,
				"competitor", sig.Competitor,
				"insights", len(result.Insights),
				"alerts", len(result.Alerts),
			)
		}
	}
}
