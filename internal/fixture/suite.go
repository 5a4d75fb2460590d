package fixture

import "github.com/WinMir22/pokolenie-python/internal/domain/execution"

// NewSuite splits both fixture documents, drops their preambles and pairs the
// remaining segments positionally with the submission.
func NewSuite(id, submission, inputDoc, outputDoc string) execution.Suite {
	return execution.Suite{
		ID:         id,
		Submission: execution.Script{Source: submission},
		Tests:      execution.Pair(Tests(inputDoc), Tests(outputDoc)),
	}
}
