package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaStore appends audit events to a Kafka topic synchronously. A produce
// failure surfaces to the publisher, where callers log it for reconciliation;
// the state change the event describes has already committed by then.
type KafkaStore struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaStore connects to the brokers and ensures the audit topic exists.
func NewKafkaStore(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaStore, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(pingCtx, 1, -1, nil, topic); err != nil {
		// Topic may already exist; anything else is logged and tolerated
		// since most clusters auto-create.
		logger.Warn("audit topic creation skipped", "topic", topic, "error", err)
	}

	return &KafkaStore{client: client, topic: topic, logger: logger}, nil
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.AgreementID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("audit event persistence failed: %w", err)
	}
	return nil
}

// ListByAgreement is unsupported on the Kafka sink; the trail is consumed by
// downstream compliance tooling, not read back by the engine.
func (s *KafkaStore) ListByAgreement(context.Context, string) ([]Event, error) {
	return nil, fmt.Errorf("audit trail reads are not supported on the kafka sink")
}

func (s *KafkaStore) Close() {
	s.client.Close()
}
