package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/operator"
)

func TestApplyBatch(t *testing.T) {
	const total = 200

	txns := make([]*model.Transaction, total)
	for i := range txns {
		desc := "ALBERT HEIJN 1663"
		if i%2 == 1 {
			desc = "SHELL STATION 204"
		}
		txns[i] = &model.Transaction{
			ID:          fmt.Sprintf("txn-%03d", i),
			Description: desc,
			Amount:      decimal.RequireFromString("-20.00"),
			Type:        model.TypeExpense,
		}
	}

	groceries := simpleRule("groceries",
		model.ListCondition{Condition: cond(operator.FieldDescription, operator.OpContains, "albert heijn")})
	fuel := simpleRule("fuel",
		model.ListCondition{Condition: cond(operator.FieldDescription, operator.OpContains, "shell")})
	fuel.TargetCategory = "Transport"

	results, err := New().ApplyBatch(context.Background(), txns, []*model.Rule{groceries, fuel}, nil, 4)
	require.NoError(t, err)
	require.Len(t, results, total)

	for i, res := range results {
		assert.Equal(t, txns[i].ID, res.TransactionID, "results must keep input order")
		want := "Groceries"
		if i%2 == 1 {
			want = "Transport"
		}
		assert.Equal(t, want, res.Category)
	}

	// Concurrent workers must not lose match-count increments.
	assert.Equal(t, total/2, groceries.MatchCount)
	assert.Equal(t, total/2, fuel.MatchCount)
}

func TestApplyBatch_DefaultWorkerCount(t *testing.T) {
	txns := []*model.Transaction{{
		ID:          "txn-1",
		Description: "ALBERT HEIJN",
		Amount:      decimal.NewFromInt(-10),
		Type:        model.TypeExpense,
	}}
	rule := simpleRule("groceries",
		model.ListCondition{Condition: cond(operator.FieldDescription, operator.OpContains, "albert")})

	results, err := New().ApplyBatch(context.Background(), txns, []*model.Rule{rule}, nil, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Groceries", results[0].Category)
}

func TestApplyBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txns := []*model.Transaction{{ID: "txn-1", Type: model.TypeExpense}}
	rule := matchAllRule("r", 10)

	results, err := New().ApplyBatch(ctx, txns, []*model.Rule{rule}, nil, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}
