package execution

// Script is the learner submission under test. Its source is prefixed to
// every test snippet unmodified.
type Script struct {
	Source string
}

// Suite is an in-memory check run: one submission and its paired test cases.
type Suite struct {
	ID         string
	Submission Script
	Tests      []TestCase
}

// Program joins the submission and a test snippet into the source evaluated
// for that test.
func (s Script) Program(snippet string) string {
	return s.Source + "\n" + snippet
}

// Verdict is the outcome of a check job run by the worker: the transcript the
// reporter produced and the per-test results behind it.
type Verdict struct {
	Suite      Suite
	Transcript string
	Tests      []TestResult
	Err        error
}
