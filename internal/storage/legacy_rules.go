package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/model"
)

// CreateLegacyRule stores a legacy pattern rule. Only the editor creates
// these; the migration service reads them and never writes back.
func (s *SQLiteStorage) CreateLegacyRule(ctx context.Context, rule *model.LegacyRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := validateString(rule.Pattern, "pattern"); err != nil {
		return err
	}
	if !rule.MatchType.Valid() {
		return fmt.Errorf("%w: unknown match type %q", common.ErrInvalidRule, rule.MatchType)
	}
	if err := validateString(rule.TargetCategory, "target category"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO legacy_rules (pattern, match_type, target_category, priority, is_active)
		VALUES (?, ?, ?, ?, ?)
	`, rule.Pattern, rule.MatchType, rule.TargetCategory, rule.Priority, rule.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create legacy rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get legacy rule ID: %w", err)
	}

	rule.ID = id
	rule.CreatedAt = time.Now()

	return nil
}

// GetLegacyRules retrieves all legacy rules ordered by priority.
func (s *SQLiteStorage) GetLegacyRules(ctx context.Context) ([]model.LegacyRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern, match_type, target_category, priority, is_active, created_at
		FROM legacy_rules ORDER BY priority, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.LegacyRule
	for rows.Next() {
		var rule model.LegacyRule
		if err := rows.Scan(&rule.ID, &rule.Pattern, &rule.MatchType,
			&rule.TargetCategory, &rule.Priority, &rule.IsActive, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan legacy rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}
