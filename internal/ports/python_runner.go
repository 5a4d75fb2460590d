package ports

import (
	"context"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
)

// PythonRunner evaluates Python source in a fresh interpreter and captures
// what it prints.
//
// A program that raises is not an error: it yields a Result with a non-zero
// ExitCode and the traceback in Stderr. Errors are reserved for failures of
// the runner itself.
type PythonRunner interface {
	RunPython(ctx context.Context, source string) (*execution.Result, error)
	Close() error
}
