package kafka

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
	"github.com/WinMir22/pokolenie-python/internal/fixture"
	"github.com/WinMir22/pokolenie-python/internal/ports"
)

const (
	messageTypeJob  = "job"
	messageTypeDone = "done"
)

type jobEnvelope struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Submission string `json:"submission"`
	Input      string `json:"input"`
	Output     string `json:"output"`
}

type verdictEnvelope struct {
	ID         string                `json:"id"`
	Transcript string                `json:"transcript"`
	Passed     int                   `json:"passed"`
	Total      int                   `json:"total"`
	Tests      []testVerdictEnvelope `json:"tests,omitempty"`
	Error      string                `json:"error,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

type testVerdictEnvelope struct {
	Number     int              `json:"number"`
	Status     execution.Status `json:"status"`
	DurationMs int64            `json:"duration_ms"`
}

func decodeJobMessage(msg kafkago.Message) (execution.Suite, error) {
	var envelope jobEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return execution.Suite{}, fmt.Errorf("%w: decode: %v", ports.ErrMalformedJob, err)
	}

	msgType := envelope.Type
	if msgType == "" {
		msgType = messageTypeJob
	}

	switch msgType {
	case messageTypeJob:
		return envelope.toSuite(msg)
	case messageTypeDone:
		return execution.Suite{}, io.EOF
	default:
		return execution.Suite{}, fmt.Errorf("%w: unknown message type %q", ports.ErrMalformedJob, msgType)
	}
}

func (e jobEnvelope) toSuite(msg kafkago.Message) (execution.Suite, error) {
	jobID := e.ID
	if jobID == "" {
		jobID = string(msg.Key)
	}
	if jobID == "" {
		jobID = fmt.Sprintf("%s:%d", msg.Topic, msg.Offset)
	}

	return fixture.NewSuite(jobID, e.Submission, e.Input, e.Output), nil
}

func encodeJob(envelope jobEnvelope) ([]byte, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize job: %w", err)
	}
	return canonical, nil
}

// encodeVerdict marshals the verdict and canonicalizes it (RFC 8785) so equal
// verdicts always produce identical bytes.
func encodeVerdict(verdict execution.Verdict, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(makeVerdictEnvelope(verdict, now))
	if err != nil {
		return nil, fmt.Errorf("marshal verdict: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize verdict: %w", err)
	}
	return canonical, nil
}

func makeVerdictEnvelope(verdict execution.Verdict, now time.Time) verdictEnvelope {
	envelope := verdictEnvelope{
		ID:         verdict.Suite.ID,
		Transcript: verdict.Transcript,
		Total:      len(verdict.Tests),
		Timestamp:  now.UTC(),
	}

	if len(verdict.Tests) > 0 {
		envelope.Tests = make([]testVerdictEnvelope, 0, len(verdict.Tests))
		for _, test := range verdict.Tests {
			if test.Passed() {
				envelope.Passed++
			}
			envelope.Tests = append(envelope.Tests, testVerdictEnvelope{
				Number:     test.Case.Number,
				Status:     test.Status,
				DurationMs: test.Duration.Milliseconds(),
			})
		}
	}

	if verdict.Err != nil {
		envelope.Error = verdict.Err.Error()
	}

	return envelope
}
