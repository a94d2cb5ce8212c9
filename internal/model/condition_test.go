package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/operator"
)

func TestCondition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		wantErr error
	}{
		{
			name: "valid text condition",
			cond: Condition{Field: operator.FieldDescription, Operator: operator.OpContains, Value: "albert heijn"},
		},
		{
			name: "valid negated condition",
			cond: Condition{Field: operator.FieldCounterParty, Operator: operator.OpExact, Value: "Spotify AB", Negated: true},
		},
		{
			name: "valid regex",
			cond: Condition{Field: operator.FieldIBAN, Operator: operator.OpRegex, Value: `^NL\d{2}INGB`},
		},
		{
			name: "valid amount range",
			cond: Condition{Field: operator.FieldAmount, Operator: operator.OpBetween, Value: "10..50"},
		},
		{
			name: "valid date",
			cond: Condition{Field: operator.FieldDate, Operator: operator.OpAfter, Value: "2024-01-01"},
		},
		{
			name: "valid transaction type list",
			cond: Condition{Field: operator.FieldTransactionType, Operator: operator.OpIn, Value: "expense, transfer"},
		},
		{
			name:    "operator wrong for field kind",
			cond:    Condition{Field: operator.FieldAmount, Operator: operator.OpContains, Value: "10"},
			wantErr: common.ErrTypeMismatch,
		},
		{
			name:    "invalid regex",
			cond:    Condition{Field: operator.FieldDescription, Operator: operator.OpRegex, Value: "^(unclosed"},
			wantErr: common.ErrInvalidPattern,
		},
		{
			name:    "empty text value",
			cond:    Condition{Field: operator.FieldDescription, Operator: operator.OpContains, Value: ""},
			wantErr: common.ErrInvalidRule,
		},
		{
			name:    "unparseable amount",
			cond:    Condition{Field: operator.FieldAmount, Operator: operator.OpEquals, Value: "ten euro"},
			wantErr: common.ErrInvalidRule,
		},
		{
			name:    "inverted amount range",
			cond:    Condition{Field: operator.FieldAmount, Operator: operator.OpBetween, Value: "50..10"},
			wantErr: common.ErrInvalidRule,
		},
		{
			name:    "unparseable date",
			cond:    Condition{Field: operator.FieldDate, Operator: operator.OpOn, Value: "01/02/2024"},
			wantErr: common.ErrInvalidRule,
		},
		{
			name:    "unknown transaction type member",
			cond:    Condition{Field: operator.FieldTransactionType, Operator: operator.OpIn, Value: "expense, refund"},
			wantErr: common.ErrInvalidRule,
		},
		{
			name:    "unknown field",
			cond:    Condition{Field: operator.Field("memo"), Operator: operator.OpContains, Value: "x"},
			wantErr: common.ErrInvalidRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConditionList_Validate(t *testing.T) {
	valid := Condition{Field: operator.FieldDescription, Operator: operator.OpContains, Value: "shell"}

	t.Run("nil list is valid", func(t *testing.T) {
		var list *ConditionList
		assert.NoError(t, list.Validate())
		assert.True(t, list.Empty())
	})

	t.Run("first connector is ignored", func(t *testing.T) {
		list := &ConditionList{Conditions: []ListCondition{{Condition: valid}}}
		assert.NoError(t, list.Validate())
	})

	t.Run("missing connector after first", func(t *testing.T) {
		list := &ConditionList{Conditions: []ListCondition{
			{Condition: valid},
			{Condition: valid},
		}}
		assert.ErrorIs(t, list.Validate(), common.ErrInvalidRule)
	})

	t.Run("bad nested condition is reported with its position", func(t *testing.T) {
		list := &ConditionList{Conditions: []ListCondition{
			{Condition: valid},
			{Condition: Condition{Field: operator.FieldAmount, Operator: operator.OpContains, Value: "10"}, Connector: ConnectorAnd},
		}}
		err := list.Validate()
		assert.ErrorIs(t, err, common.ErrTypeMismatch)
		assert.Contains(t, err.Error(), "condition 2")
	})
}

func TestConditionNode_Validate(t *testing.T) {
	leaf := &Condition{Field: operator.FieldDescription, Operator: operator.OpContains, Value: "shell"}

	t.Run("leaf node", func(t *testing.T) {
		node := &ConditionNode{Leaf: leaf}
		assert.NoError(t, node.Validate())
		assert.True(t, node.IsLeaf())
		assert.Equal(t, 1, node.LeafCount())
	})

	t.Run("nested tree", func(t *testing.T) {
		node := &ConditionNode{
			Connector: ConnectorAnd,
			Children: []*ConditionNode{
				{Leaf: leaf},
				{
					Connector: ConnectorOr,
					Negated:   true,
					Children: []*ConditionNode{
						{Leaf: leaf},
						{Leaf: &Condition{Field: operator.FieldAmount, Operator: operator.OpLessThan, Value: "100"}},
					},
				},
			},
		}
		assert.NoError(t, node.Validate())
		assert.Equal(t, 3, node.LeafCount())
		assert.False(t, node.Empty())
	})

	t.Run("leaf and children is malformed", func(t *testing.T) {
		node := &ConditionNode{Leaf: leaf, Children: []*ConditionNode{{Leaf: leaf}}}
		assert.ErrorIs(t, node.Validate(), common.ErrInvalidRule)
	})

	t.Run("branch without connector", func(t *testing.T) {
		node := &ConditionNode{Children: []*ConditionNode{{Leaf: leaf}}}
		assert.ErrorIs(t, node.Validate(), common.ErrInvalidRule)
	})

	t.Run("branch with no leaves anywhere is empty", func(t *testing.T) {
		node := &ConditionNode{Connector: ConnectorAnd, Children: []*ConditionNode{{Connector: ConnectorOr}}}
		assert.True(t, node.Empty())
	})
}
