package model

import (
	"fmt"
	"strings"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/operator"
)

// Connector joins a condition to the running aggregate of the conditions
// before it.
type Connector string

// Boolean connectors.
const (
	ConnectorAnd Connector = "and"
	ConnectorOr  Connector = "or"
)

// Valid reports whether c is a known connector.
func (c Connector) Valid() bool {
	return c == ConnectorAnd || c == ConnectorOr
}

// Condition is a single atomic test against one transaction field.
type Condition struct {
	Field    operator.Field    `json:"field"`
	Operator operator.Operator `json:"operator"`
	Value    string            `json:"value"`
	Negated  bool              `json:"negated,omitempty"`
}

// Validate checks the (field, operator) pair against the valid-operator
// matrix and verifies the condition value parses for the field's kind.
// Invalid pairs are rejected here, at construction time, never coerced
// during evaluation.
func (c *Condition) Validate() error {
	if err := operator.CheckPair(c.Field, c.Operator); err != nil {
		return err
	}

	switch c.Field.Kind() {
	case operator.KindText:
		if c.Operator == operator.OpRegex {
			return operator.CheckPattern(c.Value)
		}
		if c.Value == "" {
			return fmt.Errorf("%w: empty text condition value", common.ErrInvalidRule)
		}
	case operator.KindAmount:
		if c.Operator == operator.OpBetween {
			_, _, err := operator.ParseAmountRange(c.Value)
			return err
		}
		_, err := operator.ParseAmount(c.Value)
		return err
	case operator.KindDate:
		if c.Operator == operator.OpBetween {
			_, _, err := operator.ParseDateRange(c.Value)
			return err
		}
		_, err := operator.ParseDate(c.Value)
		return err
	case operator.KindEnum:
		if c.Field == operator.FieldTransactionType {
			return validateTransactionTypeMembers(c.Value, c.Operator)
		}
		if c.Value == "" {
			return fmt.Errorf("%w: empty enum condition value", common.ErrInvalidRule)
		}
	}

	return nil
}

func validateTransactionTypeMembers(value string, op operator.Operator) error {
	members := []string{value}
	if op == operator.OpIn {
		members = splitEnumMembers(value)
	}
	for _, member := range members {
		if !TransactionType(member).Valid() {
			return fmt.Errorf("%w: unknown transaction type %q", common.ErrInvalidRule, member)
		}
	}
	return nil
}

func splitEnumMembers(value string) []string {
	parts := strings.Split(value, ",")
	members := make([]string, 0, len(parts))
	for _, p := range parts {
		members = append(members, strings.TrimSpace(p))
	}
	return members
}

// ListCondition is one entry of a Simple-tier condition list. The connector
// joins this condition to the aggregate of all prior conditions; it is
// ignored on the first entry.
type ListCondition struct {
	Condition Condition `json:"condition"`
	Connector Connector `json:"connector,omitempty"`
}

// ConditionList is the Simple-tier condition representation: a strictly
// left-associative AND/OR fold with no grouping. It is deliberately less
// expressive than ConditionNode and the two are never interchanged.
type ConditionList struct {
	Conditions []ListCondition `json:"conditions"`
}

// Empty reports whether the list has no conditions. An empty list matches
// nothing.
func (l *ConditionList) Empty() bool {
	return l == nil || len(l.Conditions) == 0
}

// Validate checks every condition and every connector after the first.
func (l *ConditionList) Validate() error {
	if l == nil {
		return nil
	}
	for i, entry := range l.Conditions {
		if err := entry.Condition.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i+1, err)
		}
		if i > 0 && !entry.Connector.Valid() {
			return fmt.Errorf("%w: condition %d has connector %q",
				common.ErrInvalidRule, i+1, entry.Connector)
		}
	}
	return nil
}

// ConditionNode is the Advanced-tier condition representation: either a
// single leaf condition or a boolean node over ordered children, with
// unlimited nesting depth. Negated applies to a node's aggregate result;
// leaf negation lives on the Condition itself.
type ConditionNode struct {
	Leaf      *Condition       `json:"leaf,omitempty"`
	Connector Connector        `json:"connector,omitempty"`
	Children  []*ConditionNode `json:"children,omitempty"`
	Negated   bool             `json:"negated,omitempty"`
}

// IsLeaf reports whether the node wraps a single condition.
func (n *ConditionNode) IsLeaf() bool {
	return n != nil && n.Leaf != nil
}

// Empty reports whether the tree contains no leaf conditions.
func (n *ConditionNode) Empty() bool {
	if n == nil {
		return true
	}
	if n.Leaf != nil {
		return false
	}
	for _, child := range n.Children {
		if !child.Empty() {
			return false
		}
	}
	return true
}

// LeafCount returns the number of leaf conditions in the tree.
func (n *ConditionNode) LeafCount() int {
	if n == nil {
		return 0
	}
	if n.Leaf != nil {
		return 1
	}
	count := 0
	for _, child := range n.Children {
		count += child.LeafCount()
	}
	return count
}

// Validate checks the tree shape (leaf xor branch) and every leaf condition.
func (n *ConditionNode) Validate() error {
	if n == nil {
		return nil
	}
	if n.Leaf != nil {
		if len(n.Children) > 0 {
			return fmt.Errorf("%w: node has both a leaf and children", common.ErrInvalidRule)
		}
		return n.Leaf.Validate()
	}
	if len(n.Children) > 0 && !n.Connector.Valid() {
		return fmt.Errorf("%w: branch node has connector %q", common.ErrInvalidRule, n.Connector)
	}
	for i, child := range n.Children {
		if child == nil {
			return fmt.Errorf("%w: child %d is nil", common.ErrInvalidRule, i+1)
		}
		if err := child.Validate(); err != nil {
			return fmt.Errorf("child %d: %w", i+1, err)
		}
	}
	return nil
}
