package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florijnhq/florijn/internal/common"
)

func TestCheckPair(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		op      Operator
		wantErr error
	}{
		{"contains on description", FieldDescription, OpContains, nil},
		{"regex on any_field", FieldAnyField, OpRegex, nil},
		{"between on amount", FieldAmount, OpBetween, nil},
		{"between on date", FieldDate, OpBetween, nil},
		{"in on transaction_type", FieldTransactionType, OpIn, nil},
		{"equals on category", FieldCategory, OpEquals, nil},

		// Cross-kind pairs are construction-time errors, never coerced.
		{"contains on amount", FieldAmount, OpContains, common.ErrTypeMismatch},
		{"greater_than on description", FieldDescription, OpGreaterThan, common.ErrTypeMismatch},
		{"regex on date", FieldDate, OpRegex, common.ErrTypeMismatch},
		{"in on iban", FieldIBAN, OpIn, common.ErrTypeMismatch},

		{"unknown field", Field("memo"), OpContains, common.ErrInvalidRule},
		{"unknown operator", FieldDescription, Operator("fuzzy"), common.ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPair(tt.field, tt.op)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidOperators_CoversEveryField(t *testing.T) {
	for _, f := range Fields() {
		ops := ValidOperators(f)
		require.NotEmpty(t, ops, "field %q has no valid operators", f)
		for _, op := range ops {
			assert.True(t, ValidFor(op, f), "ValidFor disagrees with ValidOperators for (%s, %s)", f, op)
		}
	}
}

func TestRegexCache(t *testing.T) {
	cache := NewRegexCache()

	re, err := cache.Get(`(?i)albert\s+heijn`)
	require.NoError(t, err)
	assert.True(t, re.MatchString("ALBERT HEIJN 1663"))

	again, err := cache.Get(`(?i)albert\s+heijn`)
	require.NoError(t, err)
	assert.Same(t, re, again, "compiled program must be reused")

	// Failures are cached too: a bad pattern in a rule set must not be
	// recompiled for every transaction in a batch.
	_, err = cache.Get("^(unclosed")
	assert.ErrorIs(t, err, common.ErrInvalidPattern)
	_, err = cache.Get("^(unclosed")
	assert.ErrorIs(t, err, common.ErrInvalidPattern)
}

func TestCheckPattern(t *testing.T) {
	assert.NoError(t, CheckPattern(`\d{2}-\d{2}`))
	assert.ErrorIs(t, CheckPattern("^(unclosed"), common.ErrInvalidPattern)
}
