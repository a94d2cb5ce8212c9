package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/florijnhq/florijn/internal/model"
)

const defaultBatchWorkers = 8

// ApplyBatch applies the rule set to every transaction in parallel.
// Transactions are independent of each other, so the batch fans out over a
// bounded worker pool; the only coordination point is the per-rule match
// counter, which is accumulated atomically and folded into MatchCount once
// the batch completes, avoiding lost updates under concurrent increments.
func (e *Evaluator) ApplyBatch(ctx context.Context, txns []*model.Transaction, rules []*model.Rule, groups []model.RuleGroup, workers int) ([]ExecutionResult, error) {
	if workers <= 0 {
		workers = defaultBatchWorkers
	}

	ordered := OrderRules(rules, groups)

	counters := make(map[string]*atomic.Int64, len(ordered))
	for _, rule := range ordered {
		counters[rule.ID] = &atomic.Int64{}
	}

	results := make([]ExecutionResult, len(txns))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, txn := range txns {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		wg.Add(1)
		go func(idx int, t *model.Transaction) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			result := e.apply(t, ordered)
			for _, id := range result.RulesFired {
				counters[id].Add(1)
			}
			results[idx] = result
		}(i, txn)
	}

	wg.Wait()

	for _, rule := range ordered {
		rule.MatchCount += int(counters[rule.ID].Load())
	}

	return results, nil
}
