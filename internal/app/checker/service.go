// Package checker runs a learner submission against fixture test cases and
// reports the outcome of every case.
package checker

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
	"github.com/WinMir22/pokolenie-python/internal/ports"
)

// Service checks submissions through a Python runtime.
type Service struct {
	runtime ports.PythonRunner
	logger  *zap.Logger
	stdout  io.Writer
	stderr  io.Writer
	color   bool
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used for operational diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConsole replaces the streams used when no results file is requested.
func WithConsole(stdout, stderr io.Writer) Option {
	return func(s *Service) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithColor enables colored pass and fail markers.
func WithColor(enabled bool) Option {
	return func(s *Service) {
		s.color = enabled
	}
}

// NewService constructs a Service with the provided runtime dependency.
func NewService(runtime ports.PythonRunner, opts ...Option) *Service {
	s := &Service{
		runtime: runtime,
		logger:  zap.NewNop(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewReporter returns a Reporter honoring the service color setting.
func (s *Service) NewReporter(out, trace io.Writer) *Reporter {
	return NewReporter(out, trace, s.color)
}

// RunSuite checks every test case of the suite in order. It stops early only
// when the context is cancelled or the transcript can no longer be written;
// failing tests never stop the run.
func (s *Service) RunSuite(ctx context.Context, suite execution.Suite, reporter *Reporter) ([]execution.TestResult, error) {
	results := make([]execution.TestResult, 0, len(suite.Tests))
	for _, test := range suite.Tests {
		result, err := s.CheckTest(ctx, test, suite.Submission, reporter)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		if err := reporter.Err(); err != nil {
			return results, fmt.Errorf("write report: %w", err)
		}
	}

	s.logger.Debug("suite finished",
		zap.String("suite", suite.ID),
		zap.Int("tests", len(results)),
		zap.Int("passed", countPassed(results)),
	)
	return results, nil
}

// CheckTest executes one test case against the submission, compares its
// output with the expected one and reports the outcome. The returned error is
// non-nil only when ctx is done; every failure of the evaluated program is
// folded into the result.
func (s *Service) CheckTest(ctx context.Context, test execution.TestCase, submission execution.Script, reporter *Reporter) (execution.TestResult, error) {
	reporter.BeginTest()
	defer reporter.EndTest()

	result := execution.TestResult{Case: test}

	run, trace, err := s.execute(ctx, test, submission)
	if err != nil {
		return result, err
	}
	if run != nil {
		result.Duration = run.Duration
	}

	if trace != "" {
		result.Status = execution.StatusException
		result.Trace = trace
		reporter.Raised(test.Number, trace)
		s.logTest(result)
		return result, nil
	}

	result.Actual = execution.Normalize(run.Stdout)
	result.Expected = execution.Normalize(test.ExpectedOutput)

	if result.Actual == result.Expected {
		result.Status = execution.StatusPassed
		reporter.Passed(test.Number)
	} else {
		result.Status = execution.StatusFailed
		reporter.Failed(test.Number, result.Expected, result.Actual)
	}

	s.logTest(result)
	return result, nil
}

// execute evaluates submission followed by the test snippet. A program that
// raised yields its traceback as trace; a runner failure is turned into a
// trace as well so the run can move on to the next test.
func (s *Service) execute(ctx context.Context, test execution.TestCase, submission execution.Script) (*execution.Result, string, error) {
	run, err := s.runtime.RunPython(ctx, submission.Program(test.Code))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", fmt.Errorf("test %d: %w", test.Number, ctxErr)
		}
		s.logger.Warn("python runtime failed", zap.Int("test", test.Number), zap.Error(err))
		return nil, fmt.Sprintf("runtime error: %v", err), nil
	}

	if run.Raised() {
		trace := run.Stderr
		if trace == "" {
			trace = fmt.Sprintf("program exited with status %d", run.ExitCode)
		}
		return run, trace, nil
	}

	return run, "", nil
}

func (s *Service) logTest(result execution.TestResult) {
	s.logger.Debug("test checked",
		zap.Int("test", result.Case.Number),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", result.Duration),
	)
}

func countPassed(results []execution.TestResult) int {
	passed := 0
	for _, result := range results {
		if result.Passed() {
			passed++
		}
	}
	return passed
}

// Close releases any resources owned by the underlying runtime.
func (s *Service) Close() error {
	return s.runtime.Close()
}
