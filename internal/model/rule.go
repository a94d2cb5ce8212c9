package model

import (
	"fmt"
	"time"

	"github.com/florijnhq/florijn/internal/common"
)

// RuleTier selects the condition representation a rule carries.
type RuleTier string

// Rule tiers.
const (
	TierSimple   RuleTier = "simple"
	TierAdvanced RuleTier = "advanced"
)

// ActionType identifies a side effect a matching rule applies.
type ActionType string

// Action types.
const (
	ActionSetCategory      ActionType = "set_category"
	ActionSetNotes         ActionType = "set_notes"
	ActionAddTag           ActionType = "add_tag"
	ActionSetSourceAccount ActionType = "set_source_account"
	ActionMarkReviewed     ActionType = "mark_reviewed"
)

// ActionTypes returns all action types in their canonical order. The order
// also determines how applied actions are reported in an ExecutionResult.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionSetCategory,
		ActionSetNotes,
		ActionAddTag,
		ActionSetSourceAccount,
		ActionMarkReviewed,
	}
}

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	for _, known := range ActionTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// RequiresValue reports whether the action type needs a non-empty value.
func (t ActionType) RequiresValue() bool {
	return t != ActionMarkReviewed
}

// Action is one side effect applied to a transaction when a rule matches.
type Action struct {
	Type  ActionType `json:"type"`
	Value string     `json:"value,omitempty"`
}

// Validate rejects unknown action types and value-requiring actions with an
// empty value. Such a rule must not be persisted or executed.
func (a Action) Validate() error {
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown action type %q", common.ErrInvalidRule, a.Type)
	}
	if a.Type.RequiresValue() && a.Value == "" {
		return fmt.Errorf("%w: action %q requires a value", common.ErrInvalidRule, a.Type)
	}
	return nil
}

// Rule binds one condition structure to an ordered list of actions.
type Rule struct {
	CreatedAt      time.Time      `json:"created_at"`
	ModifiedAt     time.Time      `json:"modified_at"`
	Conditions     *ConditionList `json:"conditions,omitempty"`
	ConditionTree  *ConditionNode `json:"condition_tree,omitempty"`
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	TargetCategory string         `json:"target_category"`
	Tier           RuleTier       `json:"tier"`
	GroupID        string         `json:"group_id,omitempty"` // Empty means ungrouped
	Actions        []Action       `json:"actions"`
	Priority       int            `json:"priority"` // Lower fires earlier
	MatchCount     int            `json:"match_count"`
	IsActive       bool           `json:"is_active"`
	StopProcessing bool           `json:"stop_processing"`
}

// TierConsistent reports whether the rule's tier agrees with the condition
// representation it carries. An inconsistent rule fails closed: the
// evaluator never matches it.
func (r *Rule) TierConsistent() bool {
	switch r.Tier {
	case TierSimple:
		return r.Conditions != nil && r.ConditionTree == nil
	case TierAdvanced:
		return r.ConditionTree != nil && r.Conditions == nil
	}
	return false
}

// Validate checks the rule is well-formed enough to persist and execute.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule name is required", common.ErrInvalidRule)
	}
	if !r.TierConsistent() {
		return fmt.Errorf("%w: rule %q is %s tier", common.ErrTierMismatch, r.Name, r.Tier)
	}
	if r.TargetCategory == "" && !r.hasAction(ActionSetCategory) {
		return fmt.Errorf("%w: rule %q assigns no category", common.ErrInvalidRule, r.Name)
	}
	for i, action := range r.Actions {
		if err := action.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
	}

	switch r.Tier {
	case TierSimple:
		if err := r.Conditions.Validate(); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	case TierAdvanced:
		if err := r.ConditionTree.Validate(); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}

	return nil
}

// EffectiveActions returns the rule's actions with the target category made
// explicit: a rule with a TargetCategory but no SetCategory action gets an
// implicit leading SetCategory.
func (r *Rule) EffectiveActions() []Action {
	if r.TargetCategory == "" || r.hasAction(ActionSetCategory) {
		return r.Actions
	}
	actions := make([]Action, 0, len(r.Actions)+1)
	actions = append(actions, Action{Type: ActionSetCategory, Value: r.TargetCategory})
	actions = append(actions, r.Actions...)
	return actions
}

func (r *Rule) hasAction(t ActionType) bool {
	for _, action := range r.Actions {
		if action.Type == t {
			return true
		}
	}
	return false
}
