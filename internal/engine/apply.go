package engine

import (
	"fmt"
	"sort"

	"github.com/florijnhq/florijn/internal/model"
)

// RuleError records a rule that could not be evaluated during a pass. The
// rule is skipped so one malformed rule never blocks categorization by the
// rest of the set.
type RuleError struct {
	Err      error
	RuleID   string
	RuleName string
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule %q (%s): %v", e.RuleName, e.RuleID, e.Err)
}

func (e RuleError) Unwrap() error {
	return e.Err
}

// ExecutionResult is the outcome of applying an ordered rule set to one
// transaction. Category is empty when no matched rule assigned one; the
// caller's own fallback policy then applies.
type ExecutionResult struct {
	TransactionID  string
	Category       string
	ActionsApplied []model.Action
	RulesFired     []string
	Errors         []RuleError
	Stopped        bool
}

// Apply evaluates the rule set against one transaction and returns the
// final category and accumulated side effects. Matched rules fire in
// priority order; a stop-processing rule terminates the pass after its own
// actions apply. MatchCount is incremented on each fired rule.
func (e *Evaluator) Apply(txn *model.Transaction, rules []*model.Rule, groups []model.RuleGroup) ExecutionResult {
	ordered := OrderRules(rules, groups)
	result := e.apply(txn, ordered)

	byID := make(map[string]*model.Rule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = rule
	}
	for _, id := range result.RulesFired {
		if rule, ok := byID[id]; ok {
			rule.MatchCount++
		}
	}

	return result
}

// apply is the side-effect-free core shared by Apply, ApplyBatch, and the
// preview harness. It never mutates rules or the transaction.
func (e *Evaluator) apply(txn *model.Transaction, ordered []*model.Rule) ExecutionResult {
	result := ExecutionResult{TransactionID: txn.ID}
	acc := newActionAccumulator()

	for _, rule := range ordered {
		matched, err := e.EvaluateRule(rule, txn)
		if err != nil {
			result.Errors = append(result.Errors, RuleError{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Err:      err,
			})
			continue
		}
		if !matched {
			continue
		}

		for _, action := range rule.EffectiveActions() {
			acc.apply(action)
		}
		result.RulesFired = append(result.RulesFired, rule.ID)

		if rule.StopProcessing {
			result.Stopped = true
			break
		}
	}

	result.ActionsApplied = acc.ordered()
	if category, ok := acc.value(model.ActionSetCategory); ok {
		result.Category = category
	}

	return result
}

// OrderRules returns the active rules in execution order: grouped rules
// sort by their group's execution order (rules in inactive or unknown
// groups are skipped), ungrouped rules interleave by their own priority at
// the same level; within a group by priority ascending; ties resolve by
// creation order. The sort is stable — ordering nondeterminism here would
// be a correctness bug, not an implementation detail.
func OrderRules(rules []*model.Rule, groups []model.RuleGroup) []*model.Rule {
	groupOrder := make(map[string]int, len(groups))
	for _, g := range groups {
		if g.IsActive {
			groupOrder[g.ID] = g.ExecutionOrder
		}
	}

	ordered := make([]*model.Rule, 0, len(rules))
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if rule.GroupID != "" {
			if _, ok := groupOrder[rule.GroupID]; !ok {
				continue
			}
		}
		ordered = append(ordered, rule)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		ka, kb := sortLevel(a, groupOrder), sortLevel(b, groupOrder)
		if ka != kb {
			return ka < kb
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	return ordered
}

func sortLevel(rule *model.Rule, groupOrder map[string]int) int {
	if rule.GroupID != "" {
		return groupOrder[rule.GroupID]
	}
	return rule.Priority
}

// actionAccumulator folds matched rules' actions with last-write-wins
// semantics per action type.
type actionAccumulator struct {
	byType map[model.ActionType]model.Action
}

func newActionAccumulator() *actionAccumulator {
	return &actionAccumulator{byType: make(map[model.ActionType]model.Action)}
}

func (a *actionAccumulator) apply(action model.Action) {
	a.byType[action.Type] = action
}

func (a *actionAccumulator) value(t model.ActionType) (string, bool) {
	action, ok := a.byType[t]
	return action.Value, ok
}

// ordered returns the effective actions in canonical action-type order, so
// results are deterministic regardless of which rules contributed them.
func (a *actionAccumulator) ordered() []model.Action {
	var out []model.Action
	for _, t := range model.ActionTypes() {
		if action, ok := a.byType[t]; ok {
			out = append(out, action)
		}
	}
	return out
}
