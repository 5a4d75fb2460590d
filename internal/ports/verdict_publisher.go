package ports

import (
	"context"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
)

// VerdictPublisher publishes the outcome of a check job to an external system.
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, verdict execution.Verdict) error
	Close() error
}
