package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/operator"
)

func matchAllRule(name string, priority int) *model.Rule {
	r := simpleRule(name,
		model.ListCondition{Condition: cond(operator.FieldAmount, operator.OpGreaterThan, "0")})
	r.Priority = priority
	return r
}

func TestApply_StopProcessing(t *testing.T) {
	txn := testTransaction()

	groceries := matchAllRule("groceries", 10)
	groceries.TargetCategory = "Groceries"
	groceries.StopProcessing = true

	dining := matchAllRule("dining", 20)
	dining.TargetCategory = "Dining"

	result := New().Apply(txn, []*model.Rule{dining, groceries}, nil)

	assert.Equal(t, "Groceries", result.Category, "the lower-priority rule must never run")
	assert.Equal(t, []string{"groceries"}, result.RulesFired)
	assert.True(t, result.Stopped)
	assert.Equal(t, 1, groceries.MatchCount)
	assert.Equal(t, 0, dining.MatchCount, "rules after a stop must not count a match")
}

func TestApply_LastWriteWinsPerActionType(t *testing.T) {
	txn := testTransaction()

	first := matchAllRule("first", 10)
	first.TargetCategory = "Groceries"
	first.Actions = []model.Action{{Type: model.ActionAddTag, Value: "food"}}

	second := matchAllRule("second", 20)
	second.TargetCategory = "Food & Drink"

	result := New().Apply(txn, []*model.Rule{first, second}, nil)

	// The later rule overwrites the category; the earlier rule's tag
	// survives because each action type is tracked independently.
	assert.Equal(t, "Food & Drink", result.Category)
	assert.Contains(t, result.ActionsApplied, model.Action{Type: model.ActionAddTag, Value: "food"})
	assert.Equal(t, []string{"first", "second"}, result.RulesFired)
}

func TestApply_ErroringRuleIsSkipped(t *testing.T) {
	txn := testTransaction()

	broken := simpleRule("broken",
		model.ListCondition{Condition: model.Condition{
			Field: operator.FieldDescription, Operator: operator.OpRegex, Value: "^(unclosed",
		}})
	broken.Priority = 10

	healthy := matchAllRule("healthy", 20)
	healthy.TargetCategory = "Groceries"

	result := New().Apply(txn, []*model.Rule{broken, healthy}, nil)

	assert.Equal(t, "Groceries", result.Category, "one malformed rule must not block the rest")
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "broken", result.Errors[0].RuleID)
	assert.ErrorIs(t, result.Errors[0], common.ErrInvalidPattern)
	assert.Equal(t, 0, broken.MatchCount)
	assert.Equal(t, 1, healthy.MatchCount)
}

func TestApply_NoMatchLeavesCategoryEmpty(t *testing.T) {
	txn := testTransaction()

	rule := simpleRule("jumbo",
		model.ListCondition{Condition: cond(operator.FieldDescription, operator.OpContains, "jumbo")})

	result := New().Apply(txn, []*model.Rule{rule}, nil)

	assert.Empty(t, result.Category)
	assert.Empty(t, result.RulesFired)
	assert.Empty(t, result.ActionsApplied)
	assert.Equal(t, 0, rule.MatchCount)
}

func TestOrderRules(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rule := func(id string, priority int, groupID string, createdAt time.Time) *model.Rule {
		r := matchAllRule(id, priority)
		r.GroupID = groupID
		r.CreatedAt = createdAt
		return r
	}

	groups := []model.RuleGroup{
		{ID: "g-early", Name: "Early", ExecutionOrder: 5, IsActive: true},
		{ID: "g-late", Name: "Late", ExecutionOrder: 50, IsActive: true},
		{ID: "g-off", Name: "Disabled", ExecutionOrder: 1, IsActive: false},
	}

	rules := []*model.Rule{
		rule("ungrouped-20", 20, "", base),
		rule("late-1", 1, "g-late", base),
		rule("early-b", 10, "g-early", base.Add(time.Hour)),
		rule("early-a", 10, "g-early", base),
		rule("in-disabled-group", 1, "g-off", base),
		rule("in-unknown-group", 1, "g-missing", base),
		rule("ungrouped-40", 40, "", base),
	}
	inactive := rule("inactive", 1, "", base)
	inactive.IsActive = false
	rules = append(rules, inactive)

	ordered := OrderRules(rules, groups)

	ids := make([]string, len(ordered))
	for i, r := range ordered {
		ids[i] = r.ID
	}

	// Grouped rules sort at their group's execution order and ungrouped
	// rules interleave at their own priority; the early group's tie on
	// priority resolves by creation time. Rules in disabled or unknown
	// groups are skipped entirely.
	assert.Equal(t, []string{"early-a", "early-b", "ungrouped-20", "ungrouped-40", "late-1"}, ids)
}

func TestOrderRules_StableOnEqualKeys(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := matchAllRule("a", 10)
	a.CreatedAt = base
	b := matchAllRule("b", 10)
	b.CreatedAt = base

	ordered := OrderRules([]*model.Rule{a, b}, nil)
	require.Len(t, ordered, 2)
	assert.Equal(t, "a", ordered[0].ID, "fully tied rules keep input order")
}
