package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Job is a check request as it travels on the jobs topic.
type Job struct {
	ID         string
	Submission string
	Input      string
	Output     string
}

// Submitter enqueues check jobs for a worker started with "serve".
type Submitter struct {
	writer messageWriter
	now    func() time.Time
}

// NewSubmitter constructs a Submitter writing to cfg.Topic.
func NewSubmitter(cfg PublisherConfig) (*Submitter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}
	return newSubmitter(newWriter(cfg)), nil
}

func newSubmitter(writer messageWriter) *Submitter {
	return &Submitter{writer: writer, now: time.Now}
}

// SubmitJob writes one job message keyed by the job ID.
func (s *Submitter) SubmitJob(ctx context.Context, job Job) error {
	payload, err := encodeJob(jobEnvelope{
		Type:       messageTypeJob,
		ID:         job.ID,
		Submission: job.Submission,
		Input:      job.Input,
		Output:     job.Output,
	})
	if err != nil {
		return err
	}
	return s.write(ctx, kafkago.Message{Key: []byte(job.ID), Value: payload})
}

// SubmitDone writes the message that makes consumers stop cleanly.
func (s *Submitter) SubmitDone(ctx context.Context) error {
	payload, err := encodeJob(jobEnvelope{Type: messageTypeDone})
	if err != nil {
		return err
	}
	return s.write(ctx, kafkago.Message{Value: payload})
}

func (s *Submitter) write(ctx context.Context, msg kafkago.Message) error {
	if s.writer == nil {
		return fmt.Errorf("submitter is not initialized")
	}
	msg.Time = s.now()
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close releases the underlying Kafka writer.
func (s *Submitter) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
