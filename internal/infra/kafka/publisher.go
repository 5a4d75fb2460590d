package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
	"github.com/WinMir22/pokolenie-python/internal/ports"
)

// Ensure Publisher implements ports.VerdictPublisher.
var _ ports.VerdictPublisher = (*Publisher)(nil)

// PublisherConfig configures the Kafka-based verdict publisher.
type PublisherConfig struct {
	Brokers []string
	Topic   string
}

// Publisher publishes check verdicts to Kafka.
type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewPublisher constructs a Publisher using the supplied configuration.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}

	return newPublisher(newWriter(cfg)), nil
}

func newWriter(cfg PublisherConfig) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func newPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer, now: time.Now}
}

// PublishVerdict serializes and writes the supplied verdict to Kafka, keyed
// by job ID.
func (p *Publisher) PublishVerdict(ctx context.Context, verdict execution.Verdict) error {
	if p.writer == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	now := p.now()
	payload, err := encodeVerdict(verdict, now)
	if err != nil {
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(verdict.Suite.ID),
		Value: payload,
		Time:  now,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// Close releases the underlying Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
