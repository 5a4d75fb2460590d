package execution

import "time"

// Result captures the outcome of evaluating one program in the interpreter.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int64
	Duration time.Duration
}

// Raised reports whether the evaluated program terminated with an error.
func (r *Result) Raised() bool {
	return r != nil && r.ExitCode != 0
}
