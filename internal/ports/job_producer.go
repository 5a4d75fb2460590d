package ports

import (
	"context"
	"errors"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
)

// ErrMalformedJob marks a job that could not be decoded. Consumers of a
// JobProducer skip such jobs instead of stopping.
var ErrMalformedJob = errors.New("malformed job message")

// JobProducer supplies check jobs to the worker. It returns io.EOF once no
// more jobs will arrive.
type JobProducer interface {
	NextJob(ctx context.Context) (execution.Suite, error)
}
