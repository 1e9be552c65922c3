// Package consumer provides the Kafka head boundary: heads publish observed
// signals to a topic, and the consumer feeds them into the engine's ingest
// path with at-least-once semantics.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

const (
	// maxPollWait bounds how long a read blocks waiting for data.
	maxPollWait = 500 * time.Millisecond
	// commitInterval is the async offset-commit interval.
	commitInterval = time.Second
)

// Consumer wraps a Kafka reader and provides a simple interface for
// consuming observed signals.
type Consumer struct {
	reader *kafka.Reader
	topic  string
}

// NewConsumer creates a new Kafka consumer with the specified brokers,
// topic, and group ID, configured for at-least-once delivery.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if brokers == "" {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("groupID cannot be empty")
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	slog.Info("Initializing Kafka consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokerList,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,    // Return immediately when any data is available
		MaxBytes:       10e6, // 10MB
		MaxWait:        maxPollWait,
		CommitInterval: commitInterval,
		StartOffset:    kafka.FirstOffset, // Start from beginning if no committed offset
	})

	return &Consumer{reader: reader, topic: topic}, nil
}

// ReadSignal reads the next message from Kafka and deserializes it as a Signal.
func (c *Consumer) ReadSignal(ctx context.Context) (*intel.Signal, error) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read message from Kafka: %w", err)
	}

	var sig intel.Signal
	if err := json.Unmarshal(msg.Value, &sig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signal: %w", err)
	}
	return &sig, nil
}

// Close gracefully closes the Kafka reader and releases resources.
func (c *Consumer) Close() error {
	slog.Info("Closing Kafka consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing Kafka consumer", "error", err)
		return err
	}
	return nil
}
