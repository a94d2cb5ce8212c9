package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/operator"
)

func simpleConditions(value string) *ConditionList {
	return &ConditionList{Conditions: []ListCondition{{
		Condition: Condition{Field: operator.FieldDescription, Operator: operator.OpContains, Value: value},
	}}}
}

func TestRule_TierConsistent(t *testing.T) {
	list := simpleConditions("x")
	tree := &ConditionNode{Leaf: &Condition{Field: operator.FieldDescription, Operator: operator.OpContains, Value: "x"}}

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"simple with list", Rule{Tier: TierSimple, Conditions: list}, true},
		{"advanced with tree", Rule{Tier: TierAdvanced, ConditionTree: tree}, true},
		{"simple with tree", Rule{Tier: TierSimple, ConditionTree: tree}, false},
		{"simple with both", Rule{Tier: TierSimple, Conditions: list, ConditionTree: tree}, false},
		{"advanced with list", Rule{Tier: TierAdvanced, Conditions: list}, false},
		{"unknown tier", Rule{Tier: RuleTier("hybrid"), Conditions: list}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.TierConsistent())
		})
	}
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr error
	}{
		{
			name: "valid simple rule",
			rule: Rule{
				Name:           "Groceries",
				TargetCategory: "Groceries",
				Tier:           TierSimple,
				Conditions:     simpleConditions("albert heijn"),
			},
		},
		{
			name: "category via explicit action only",
			rule: Rule{
				Name:       "Groceries",
				Tier:       TierSimple,
				Conditions: simpleConditions("albert heijn"),
				Actions:    []Action{{Type: ActionSetCategory, Value: "Groceries"}},
			},
		},
		{
			name:    "missing name",
			rule:    Rule{TargetCategory: "x", Tier: TierSimple, Conditions: simpleConditions("y")},
			wantErr: common.ErrInvalidRule,
		},
		{
			name:    "tier mismatch",
			rule:    Rule{Name: "Broken", TargetCategory: "x", Tier: TierAdvanced, Conditions: simpleConditions("y")},
			wantErr: common.ErrTierMismatch,
		},
		{
			name:    "no category from any source",
			rule:    Rule{Name: "Aimless", Tier: TierSimple, Conditions: simpleConditions("y")},
			wantErr: common.ErrInvalidRule,
		},
		{
			name: "action missing required value",
			rule: Rule{
				Name:           "Tagger",
				TargetCategory: "x",
				Tier:           TierSimple,
				Conditions:     simpleConditions("y"),
				Actions:        []Action{{Type: ActionAddTag}},
			},
			wantErr: common.ErrInvalidRule,
		},
		{
			name: "unknown action type",
			rule: Rule{
				Name:           "Weird",
				TargetCategory: "x",
				Tier:           TierSimple,
				Conditions:     simpleConditions("y"),
				Actions:        []Action{{Type: ActionType("delete_transaction"), Value: "yes"}},
			},
			wantErr: common.ErrInvalidRule,
		},
		{
			name: "invalid nested condition",
			rule: Rule{
				Name:           "BadRegex",
				TargetCategory: "x",
				Tier:           TierSimple,
				Conditions: &ConditionList{Conditions: []ListCondition{{
					Condition: Condition{Field: operator.FieldDescription, Operator: operator.OpRegex, Value: "^(unclosed"},
				}}},
			},
			wantErr: common.ErrInvalidPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRule_EffectiveActions(t *testing.T) {
	t.Run("implicit set_category is prepended", func(t *testing.T) {
		rule := Rule{
			Name:           "Groceries",
			TargetCategory: "Groceries",
			Tier:           TierSimple,
			Conditions:     simpleConditions("ah"),
			Actions:        []Action{{Type: ActionAddTag, Value: "food"}},
		}

		actions := rule.EffectiveActions()
		require.Len(t, actions, 2)
		assert.Equal(t, Action{Type: ActionSetCategory, Value: "Groceries"}, actions[0])
		assert.Equal(t, Action{Type: ActionAddTag, Value: "food"}, actions[1])
	})

	t.Run("explicit set_category wins over target category", func(t *testing.T) {
		rule := Rule{
			TargetCategory: "Groceries",
			Actions:        []Action{{Type: ActionSetCategory, Value: "Food & Drink"}},
		}

		actions := rule.EffectiveActions()
		require.Len(t, actions, 1)
		assert.Equal(t, "Food & Drink", actions[0].Value)
	})

	t.Run("no target category leaves actions untouched", func(t *testing.T) {
		rule := Rule{Actions: []Action{{Type: ActionMarkReviewed}}}
		assert.Equal(t, rule.Actions, rule.EffectiveActions())
	})
}

func TestActionType_RequiresValue(t *testing.T) {
	for _, at := range ActionTypes() {
		want := at != ActionMarkReviewed
		assert.Equal(t, want, at.RequiresValue(), "action %q", at)
	}
}
