package migration

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/engine"
	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/operator"
)

type captureStore struct {
	created []*model.Rule
}

func (c *captureStore) CreateRule(_ context.Context, rule *model.Rule) error {
	c.created = append(c.created, rule)
	return nil
}

func TestAnalyze(t *testing.T) {
	legacy := []model.LegacyRule{
		{ID: 1, Pattern: "albert heijn", MatchType: model.MatchContains, TargetCategory: "Groceries", Priority: 10, IsActive: true},
		{ID: 2, Pattern: "SEPA", MatchType: model.MatchStartsWith, TargetCategory: "Transfers", Priority: 20, IsActive: false},
	}

	analysis, err := NewService(&captureStore{}).Analyze(legacy)
	require.NoError(t, err)

	assert.Equal(t, 2, analysis.TotalLegacyRules)
	require.Len(t, analysis.Proposals, 2)

	first := analysis.Proposals[0]
	assert.Equal(t, int64(1), first.LegacyRuleID)
	assert.Equal(t, model.TierSimple, first.Proposed.Tier)
	assert.Equal(t, "Groceries", first.Proposed.TargetCategory)
	assert.Equal(t, 10, first.Proposed.Priority)
	assert.True(t, first.Proposed.IsActive)

	require.Len(t, first.Proposed.Conditions.Conditions, 1)
	cond := first.Proposed.Conditions.Conditions[0].Condition
	assert.Equal(t, operator.FieldDescription, cond.Field)
	assert.Equal(t, operator.OpContains, cond.Operator)
	assert.Equal(t, "albert heijn", cond.Value)

	assert.False(t, analysis.Proposals[1].Proposed.IsActive,
		"disabled legacy rules must migrate as disabled")
}

func TestAnalyze_RejectsUnknownMatchType(t *testing.T) {
	legacy := []model.LegacyRule{
		{ID: 9, Pattern: "x", MatchType: model.LegacyMatchType("fuzzy"), TargetCategory: "Misc"},
	}

	_, err := NewService(&captureStore{}).Analyze(legacy)
	assert.ErrorIs(t, err, common.ErrInvalidRule)
}

func TestAnalyze_RejectsInvalidLegacyRegex(t *testing.T) {
	legacy := []model.LegacyRule{
		{ID: 3, Pattern: "^(unclosed", MatchType: model.MatchRegex, TargetCategory: "Misc"},
	}

	_, err := NewService(&captureStore{}).Analyze(legacy)
	assert.ErrorIs(t, err, common.ErrInvalidPattern)
}

func TestMigrate_PersistsExactlyOneRule(t *testing.T) {
	store := &captureStore{}
	legacy := model.LegacyRule{
		ID: 1, Pattern: "netflix", MatchType: model.MatchExact, TargetCategory: "Entertainment", Priority: 5, IsActive: true,
	}

	rule, err := NewService(store).Migrate(context.Background(), legacy)
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Same(t, store.created[0], rule)
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())
	assert.NoError(t, rule.Validate())
}

// A migrated rule must match exactly the transactions its legacy original
// matched.
func TestMigrate_BehavioralEquivalence(t *testing.T) {
	legacyMatch := func(mt model.LegacyMatchType, pattern, description string) bool {
		matched, err := operator.EvaluateText(legacyTextOperator(t, mt), description, pattern)
		require.NoError(t, err)
		return matched
	}

	txns := []model.Transaction{
		{ID: "a", Description: "ALBERT HEIJN 1663", Amount: decimal.NewFromInt(-10), Type: model.TypeExpense},
		{ID: "b", Description: "SEPA Overboeking huur", Amount: decimal.NewFromInt(-800), Type: model.TypeExpense},
		{ID: "c", Description: "netflix", Amount: decimal.NewFromInt(-12), Type: model.TypeExpense},
		{ID: "d", Description: "Netflix International", Amount: decimal.NewFromInt(-12), Type: model.TypeExpense},
	}

	legacies := []model.LegacyRule{
		{ID: 1, Pattern: "albert heijn", MatchType: model.MatchContains, TargetCategory: "Groceries"},
		{ID: 2, Pattern: "sepa", MatchType: model.MatchStartsWith, TargetCategory: "Transfers"},
		{ID: 3, Pattern: "netflix", MatchType: model.MatchExact, TargetCategory: "Entertainment"},
	}

	e := engine.New()
	for _, legacy := range legacies {
		store := &captureStore{}
		rule, err := NewService(store).Migrate(context.Background(), legacy)
		require.NoError(t, err)
		rule.IsActive = true

		for i := range txns {
			want := legacyMatch(legacy.MatchType, legacy.Pattern, txns[i].Description)
			got, err := e.EvaluateRule(rule, &txns[i])
			require.NoError(t, err)
			assert.Equal(t, want, got, "legacy rule %d on transaction %s", legacy.ID, txns[i].ID)
		}
	}
}

func legacyTextOperator(t *testing.T, mt model.LegacyMatchType) operator.Operator {
	t.Helper()
	op, ok := legacyOperators[mt]
	require.True(t, ok)
	return op
}
