package model

import (
	"fmt"
	"time"

	"github.com/florijnhq/florijn/internal/common"
)

// RuleGroup scopes and sequences bulk rule execution. Grouped rules run in
// the group's ExecutionOrder; rules in an inactive group are skipped
// entirely. Ungrouped rules stay globally orderable by their own priority.
type RuleGroup struct {
	CreatedAt      time.Time `json:"created_at"`
	ModifiedAt     time.Time `json:"modified_at"`
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ExecutionOrder int       `json:"execution_order"`
	IsActive       bool      `json:"is_active"`
}

// Validate checks the group is well-formed.
func (g *RuleGroup) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: group name is required", common.ErrInvalidRule)
	}
	return nil
}
