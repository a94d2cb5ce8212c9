package engine

import (
	"fmt"

	"github.com/florijnhq/florijn/internal/model"
)

// TestResult is the preview outcome for one sample transaction.
type TestResult struct {
	TransactionID string
	Explanation   string
	Confidence    float64
	Matches       bool
}

// Test runs a rule against a transaction sample without applying any side
// effects: no action executes and MatchCount never changes. It shares the
// evaluation path with Apply, so a preview can never disagree with live
// execution. Evaluation errors are surfaced directly — this is an
// interactive, single-rule operation where silently skipping would hide the
// feedback the user needs.
func (e *Evaluator) Test(rule *model.Rule, sample []model.Transaction) ([]TestResult, error) {
	results := make([]TestResult, 0, len(sample))

	for i := range sample {
		txn := &sample[i]

		res, err := e.evaluateRule(rule, txn)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
		}

		tr := TestResult{
			TransactionID: txn.ID,
			Matches:       res.Matched,
			Confidence:    res.Confidence,
		}
		if res.Matched {
			tr.Explanation = joinDetails(res.Details)
			if tr.Explanation == "" {
				tr.Explanation = "matched"
			}
		} else {
			tr.Explanation = "no conditions matched"
		}

		results = append(results, tr)
	}

	return results, nil
}
