// Package process runs Python programs in a local interpreter subprocess.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
	"github.com/WinMir22/pokolenie-python/internal/ports"
)

const defaultPython = "python3"

// Config describes how to launch the interpreter.
type Config struct {
	// Python is the interpreter executable name or path. Defaults to python3.
	Python string
	// Env is appended to the inherited environment of every run.
	Env []string
}

// Runner evaluates each program in a new interpreter process, so no state
// survives from one run to the next.
type Runner struct {
	python string
	env    []string
}

var _ ports.PythonRunner = (*Runner)(nil)

// New resolves the interpreter and returns a Runner using it.
func New(cfg Config) (*Runner, error) {
	python := cfg.Python
	if python == "" {
		python = defaultPython
	}

	path, err := exec.LookPath(python)
	if err != nil {
		return nil, fmt.Errorf("locate python interpreter %q: %w", python, err)
	}

	env := append(os.Environ(),
		"PYTHONIOENCODING=utf-8",
		"PYTHONDONTWRITEBYTECODE=1",
	)
	env = append(env, cfg.Env...)

	return &Runner{python: path, env: env}, nil
}

// Python returns the resolved interpreter path.
func (r *Runner) Python() string {
	return r.python
}

// RunPython feeds source to the interpreter on stdin ("python -") so that
// tracebacks refer to <stdin>. The program itself sees an exhausted stdin.
func (r *Runner) RunPython(ctx context.Context, source string) (*execution.Result, error) {
	cmd := exec.CommandContext(ctx, r.python, "-X", "utf8", "-")
	cmd.Env = r.env
	cmd.Stdin = strings.NewReader(source)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("run python: %w", ctxErr)
	}

	result := &execution.Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		// -1 when the interpreter was killed by a signal.
		result.ExitCode = int64(exitErr.ExitCode())
	default:
		return nil, fmt.Errorf("run python: %w", err)
	}

	return result, nil
}

// Close is a no-op; every run owns its own process.
func (r *Runner) Close() error {
	return nil
}
