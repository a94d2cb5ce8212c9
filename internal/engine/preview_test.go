package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/operator"
)

func testSample() []model.Transaction {
	return []model.Transaction{
		{
			ID:          "txn-ah",
			Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Description: "ALBERT HEIJN 1663 AMSTERDAM",
			Amount:      decimal.RequireFromString("-42.50"),
			Type:        model.TypeExpense,
		},
		{
			ID:          "txn-shell",
			Date:        time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
			Description: "SHELL STATION 204",
			Amount:      decimal.RequireFromString("-60.00"),
			Type:        model.TypeExpense,
		},
	}
}

func TestTest_ReportsMatchesWithConfidence(t *testing.T) {
	rule := simpleRule("groceries",
		model.ListCondition{Condition: cond(operator.FieldDescription, operator.OpContains, "albert heijn")})

	results, err := New().Test(rule, testSample())
	require.NoError(t, err)
	require.Len(t, results, 2)

	ah := results[0]
	assert.Equal(t, "txn-ah", ah.TransactionID)
	assert.True(t, ah.Matches)
	// Confidence is the pattern's share of the matched field:
	// len("albert heijn") / len("ALBERT HEIJN 1663 AMSTERDAM") = 12/27.
	assert.InDelta(t, 12.0/27.0, ah.Confidence, 1e-9)
	assert.Contains(t, ah.Explanation, "albert heijn")

	shell := results[1]
	assert.False(t, shell.Matches)
	assert.Zero(t, shell.Confidence)
	assert.Equal(t, "no conditions matched", shell.Explanation)
}

func TestTest_ExactKindsScoreFixedConfidence(t *testing.T) {
	rule := simpleRule("range",
		model.ListCondition{Condition: cond(operator.FieldAmount, operator.OpBetween, "10..50")})

	results, err := New().Test(rule, testSample())
	require.NoError(t, err)

	assert.True(t, results[0].Matches)
	assert.InDelta(t, exactMatchConfidence, results[0].Confidence, 1e-9)
	assert.False(t, results[1].Matches)
}

func TestTest_AndTakesMinimumConfidence(t *testing.T) {
	rule := simpleRule("both",
		model.ListCondition{Condition: cond(operator.FieldDescription, operator.OpContains, "albert heijn")},
		model.ListCondition{Condition: cond(operator.FieldAmount, operator.OpLessThan, "100"), Connector: model.ConnectorAnd})

	results, err := New().Test(rule, testSample())
	require.NoError(t, err)

	require.True(t, results[0].Matches)
	assert.InDelta(t, 12.0/27.0, results[0].Confidence, 1e-9,
		"the weaker text score must bound the aggregate")
}

func TestTest_NeverMutatesState(t *testing.T) {
	rule := simpleRule("groceries",
		model.ListCondition{Condition: cond(operator.FieldDescription, operator.OpContains, "albert heijn")})
	sample := testSample()

	_, err := New().Test(rule, sample)
	require.NoError(t, err)

	assert.Equal(t, 0, rule.MatchCount, "previewing must not count matches")
	assert.Empty(t, sample[0].Category, "previewing must not categorize")
}

func TestTest_SurfacesInvalidPattern(t *testing.T) {
	rule := simpleRule("broken",
		model.ListCondition{Condition: model.Condition{
			Field: operator.FieldDescription, Operator: operator.OpRegex, Value: "^(unclosed",
		}})

	results, err := New().Test(rule, testSample())
	assert.ErrorIs(t, err, common.ErrInvalidPattern)
	assert.Nil(t, results)
}

func TestTest_MatchesAgreeWithApply(t *testing.T) {
	rules := []*model.Rule{
		simpleRule("text",
			model.ListCondition{Condition: cond(operator.FieldAnyField, operator.OpContains, "shell")}),
		simpleRule("amount",
			model.ListCondition{Condition: cond(operator.FieldAmount, operator.OpBetween, "10..50")}),
	}
	sample := testSample()

	for _, rule := range rules {
		e := New()
		results, err := e.Test(rule, sample)
		require.NoError(t, err)

		for i := range sample {
			matched, err := e.EvaluateRule(rule, &sample[i])
			require.NoError(t, err)
			assert.Equal(t, matched, results[i].Matches,
				"rule %q on %s: preview and live evaluation disagree", rule.Name, sample[i].ID)
		}
	}
}
