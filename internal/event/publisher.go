package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const keyBalanceUpdated = "investment.balance.updated"

// BalanceUpdated is emitted after a successful snapshot write so other
// household automations can react to portfolio changes.
type BalanceUpdated struct {
	ID     string    `json:"id"`
	Amount float64   `json:"amount"`
	At     time.Time `json:"at"`
}

// Publisher emits household events to Kafka. A nil *Publisher is a valid
// no-op, used when Kafka is disabled in config.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a publisher for the given topic.
func NewPublisher(brokers []string, topic, clientID string, logger *zap.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Transport: &kafka.Transport{
			ClientID: clientID,
		},
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}
}

// PublishBalanceUpdated emits a balance event. Failures are logged and
// dropped so a broker outage never fails a refresh cycle.
func (p *Publisher) PublishBalanceUpdated(ctx context.Context, amount float64) {
	if p == nil {
		return
	}

	evt := BalanceUpdated{
		ID:     uuid.NewString(),
		Amount: amount,
		At:     time.Now().UTC(),
	}

	value, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(keyBalanceUpdated),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("key", keyBalanceUpdated),
			zap.Error(err))
		return
	}

	p.logger.Debug("event published",
		zap.String("key", keyBalanceUpdated),
		zap.String("id", evt.ID))
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
