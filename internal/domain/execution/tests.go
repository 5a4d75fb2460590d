package execution

import "time"

// TestCase pairs an input-fixture snippet with its expected output.
type TestCase struct {
	// Number is the 1-based position of the case in the fixtures.
	Number         int
	Code           string
	ExpectedOutput string
}

// TestResult captures the outcome of checking a single TestCase.
//
// Expected and Actual hold normalized text and are empty for exception
// outcomes. Trace holds the interpreter traceback or runner error.
type TestResult struct {
	Case     TestCase
	Status   Status
	Expected string
	Actual   string
	Trace    string
	Duration time.Duration
}

// Passed reports whether the case passed. Exceptions count as failures.
func (r TestResult) Passed() bool {
	return r.Status == StatusPassed
}

// Pair zips input and output segments positionally into numbered test cases.
// When the slices differ in length the extra entries are ignored.
func Pair(inputs, outputs []string) []TestCase {
	n := min(len(inputs), len(outputs))
	cases := make([]TestCase, n)
	for idx := 0; idx < n; idx++ {
		cases[idx] = TestCase{
			Number:         idx + 1,
			Code:           inputs[idx],
			ExpectedOutput: outputs[idx],
		}
	}
	return cases
}
