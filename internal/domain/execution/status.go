package execution

// Status is the outcome classification of a single test case.
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusException Status = "exception"
)
