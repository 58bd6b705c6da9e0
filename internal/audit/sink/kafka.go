// Package sink mirrors audit entries to Kafka so downstream compliance and
// alerting pipelines can consume the payment event stream without touching
// the primary database.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"portalpay/internal/audit"
)

// Kafka publishes audit entries to a topic. It implements audit.Store so the
// worker can fan out to it alongside the primary store.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects to the brokers and ensures the audit topic exists.
func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	// Ensure the topic exists so the first Append does not race topic
	// auto-creation settings on the broker.
	admin := kadm.NewClient(client)
	ctx := context.Background()
	if _, err := admin.CreateTopic(ctx, 1, -1, nil, topic); err != nil {
		// Already-exists is the normal steady state.
		logger.InfoContext(ctx, "audit topic creation skipped", "topic", topic, "reason", err.Error())
	}

	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

// Append publishes one entry, keyed by request id so all events of a
// verification call land in the same partition in order.
func (k *Kafka) Append(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(entry.RequestID),
		Value: payload,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (k *Kafka) Close() {
	k.client.Close()
}
