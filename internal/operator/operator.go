package operator

import (
	"fmt"

	"github.com/florijnhq/florijn/internal/common"
)

// Operator identifies a comparison applied to a field value.
type Operator string

// Comparison operators. Between is shared between the amount and date kinds.
const (
	// Text operators (case-insensitive except Regex).
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpExact      Operator = "exact"
	OpRegex      Operator = "regex"

	// Amount operators.
	OpEquals      Operator = "equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpBetween     Operator = "between"

	// Date operators.
	OpOn     Operator = "on"
	OpBefore Operator = "before"
	OpAfter  Operator = "after"

	// Enum operators (Equals is shared with the amount kind).
	OpIn Operator = "in"
)

var operatorsByKind = map[Kind][]Operator{
	KindText:   {OpContains, OpStartsWith, OpEndsWith, OpExact, OpRegex},
	KindAmount: {OpEquals, OpGreaterThan, OpLessThan, OpBetween},
	KindDate:   {OpOn, OpBefore, OpAfter, OpBetween},
	KindEnum:   {OpEquals, OpIn},
}

// ValidOperators returns the operators permitted for a field.
func ValidOperators(f Field) []Operator {
	ops := operatorsByKind[f.Kind()]
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// ValidFor reports whether op is permitted for the given field.
func ValidFor(op Operator, f Field) bool {
	for _, valid := range operatorsByKind[f.Kind()] {
		if op == valid {
			return true
		}
	}
	return false
}

// CheckPair validates a (field, operator) pair, returning ErrTypeMismatch for
// an operator that does not belong to the field's value kind.
func CheckPair(f Field, op Operator) error {
	if !f.Valid() {
		return fmt.Errorf("%w: unknown field %q", common.ErrInvalidRule, f)
	}
	if !ValidFor(op, f) {
		return fmt.Errorf("%w: operator %q not valid for %s field %q",
			common.ErrTypeMismatch, op, f.Kind(), f)
	}
	return nil
}
