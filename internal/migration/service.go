// Package migration converts legacy single-pattern rules into enhanced
// rules the evaluator can process uniformly.
package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/operator"
)

// RuleCreator persists migrated rules. Implemented by the storage layer.
type RuleCreator interface {
	CreateRule(ctx context.Context, rule *model.Rule) error
}

// Proposal maps a legacy rule to the enhanced rule that would replace it.
type Proposal struct {
	Proposed     model.Rule `json:"proposed"`
	LegacyRuleID int64      `json:"legacy_rule_id"`
}

// Analysis summarizes a legacy rule set and the proposed conversions.
type Analysis struct {
	Proposals        []Proposal `json:"proposals"`
	TotalLegacyRules int        `json:"total_legacy_rules"`
}

// Service performs legacy rule analysis and one-way conversion. Migration
// is additive: legacy rules are never mutated or deleted, so both
// representations coexist until the caller retires the legacy set.
type Service struct {
	store RuleCreator
}

// NewService creates a migration service backed by the given store.
func NewService(store RuleCreator) *Service {
	return &Service{store: store}
}

// Analyze proposes an enhanced rule for every legacy rule. It performs no
// writes.
func (s *Service) Analyze(legacy []model.LegacyRule) (Analysis, error) {
	analysis := Analysis{
		TotalLegacyRules: len(legacy),
		Proposals:        make([]Proposal, 0, len(legacy)),
	}

	for _, lr := range legacy {
		proposed, err := buildEnhancedRule(lr)
		if err != nil {
			return Analysis{}, fmt.Errorf("legacy rule %d: %w", lr.ID, err)
		}
		analysis.Proposals = append(analysis.Proposals, Proposal{
			LegacyRuleID: lr.ID,
			Proposed:     proposed,
		})
	}

	return analysis, nil
}

// Migrate converts one legacy rule and persists exactly one enhanced rule.
// Calling it twice creates two rules; duplicate detection is the caller's
// responsibility.
func (s *Service) Migrate(ctx context.Context, legacy model.LegacyRule) (*model.Rule, error) {
	rule, err := buildEnhancedRule(legacy)
	if err != nil {
		return nil, err
	}

	rule.ID = uuid.NewString()
	now := time.Now()
	rule.CreatedAt = now
	rule.ModifiedAt = now

	if err := s.store.CreateRule(ctx, &rule); err != nil {
		return nil, fmt.Errorf("failed to create migrated rule: %w", err)
	}

	return &rule, nil
}

// legacyOperators maps each legacy match type 1:1 onto an enhanced text
// operator.
var legacyOperators = map[model.LegacyMatchType]operator.Operator{
	model.MatchContains:   operator.OpContains,
	model.MatchStartsWith: operator.OpStartsWith,
	model.MatchExact:      operator.OpExact,
	model.MatchRegex:      operator.OpRegex,
}

// buildEnhancedRule produces the Simple-tier equivalent of a legacy rule:
// one Description condition with the mapped operator and the pattern as
// value, a single SetCategory action, and priority/active carried over.
func buildEnhancedRule(legacy model.LegacyRule) (model.Rule, error) {
	op, ok := legacyOperators[legacy.MatchType]
	if !ok {
		return model.Rule{}, fmt.Errorf("%w: unknown match type %q",
			common.ErrInvalidRule, legacy.MatchType)
	}

	rule := model.Rule{
		Name:           fmt.Sprintf("Imported legacy rule: %s", legacy.Pattern),
		TargetCategory: legacy.TargetCategory,
		Tier:           model.TierSimple,
		Conditions: &model.ConditionList{
			Conditions: []model.ListCondition{
				{
					Condition: model.Condition{
						Field:    operator.FieldDescription,
						Operator: op,
						Value:    legacy.Pattern,
					},
				},
			},
		},
		Actions: []model.Action{
			{Type: model.ActionSetCategory, Value: legacy.TargetCategory},
		},
		Priority: legacy.Priority,
		IsActive: legacy.IsActive,
	}

	if err := rule.Validate(); err != nil {
		return model.Rule{}, err
	}

	return rule, nil
}
