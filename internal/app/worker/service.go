// Package worker checks jobs pulled from a producer one after another and
// publishes their verdicts.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/WinMir22/pokolenie-python/internal/app/checker"
	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
	"github.com/WinMir22/pokolenie-python/internal/ports"
)

// Service drives the checker from a job producer.
type Service struct {
	checker   *checker.Service
	publisher ports.VerdictPublisher
	logger    *zap.Logger
}

// NewService constructs a worker. publisher may be nil when verdicts are only
// consumed through the onVerdict callback.
func NewService(checker *checker.Service, publisher ports.VerdictPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		checker:   checker,
		publisher: publisher,
		logger:    logger,
	}
}

// ExecuteFromProducer pulls jobs from the producer and checks them
// sequentially.
//
// If maxJobs is greater than zero the loop stops after that many jobs.
// Otherwise it keeps consuming until the context is cancelled or the producer
// signals completion via io.EOF. Malformed jobs are logged and skipped.
//
// When onVerdict is provided it is invoked after every job.
func (s *Service) ExecuteFromProducer(
	ctx context.Context,
	producer ports.JobProducer,
	maxJobs int,
	onVerdict func(execution.Verdict),
) error {
	processed := 0
	for {
		if maxJobs > 0 && processed >= maxJobs {
			return nil
		}

		suite, err := producer.NextJob(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, ports.ErrMalformedJob) {
				s.logger.Warn("skipping malformed job", zap.Error(err))
				continue
			}
			return fmt.Errorf("get next job: %w", err)
		}

		processed++
		verdict := s.checkJob(ctx, suite)
		if ctx.Err() != nil {
			return nil
		}

		if s.publisher != nil {
			if err := s.publisher.PublishVerdict(ctx, verdict); err != nil {
				s.logger.Warn("failed to publish verdict", zap.String("job", suite.ID), zap.Error(err))
			}
		}
		if onVerdict != nil {
			onVerdict(verdict)
		}
	}
}

func (s *Service) checkJob(ctx context.Context, suite execution.Suite) execution.Verdict {
	s.logger.Info("checking job", zap.String("job", suite.ID), zap.Int("tests", len(suite.Tests)))

	var transcript bytes.Buffer
	results, err := s.checker.RunSuite(ctx, suite, s.checker.NewReporter(&transcript, &transcript))

	return execution.Verdict{
		Suite:      suite,
		Transcript: transcript.String(),
		Tests:      results,
		Err:        err,
	}
}

// Close releases the publisher, if any.
func (s *Service) Close() error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Close()
}
