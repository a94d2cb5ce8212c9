package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/service"
)

const ruleColumns = `id, name, target_category, tier, conditions, condition_tree,
	actions, priority, group_id, is_active, stop_processing, match_count,
	created_at, modified_at`

// CreateRule creates a new categorization rule. The rule must already carry
// an ID; condition structures and actions are stored as JSON.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	conditionsJSON, treeJSON, actionsJSON, err := marshalRuleColumns(rule)
	if err != nil {
		return err
	}

	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.ModifiedAt = now

	query := `
		INSERT INTO rules (
			id, name, target_category, tier, conditions, condition_tree,
			actions, priority, group_id, is_active, stop_processing,
			match_count, created_at, modified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.TargetCategory, rule.Tier,
		conditionsJSON, treeJSON, actionsJSON,
		rule.Priority, nullableString(rule.GroupID),
		rule.IsActive, rule.StopProcessing, rule.MatchCount,
		rule.CreatedAt, rule.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM rules WHERE id = ?", ruleColumns), id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// GetRules retrieves all rules ordered by priority, then creation time.
func (s *SQLiteStorage) GetRules(ctx context.Context) ([]*model.Rule, error) {
	return s.queryRules(ctx,
		fmt.Sprintf("SELECT %s FROM rules ORDER BY priority, created_at", ruleColumns))
}

// GetActiveRules retrieves active rules ordered by priority, then creation
// time.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context) ([]*model.Rule, error) {
	return s.queryRules(ctx,
		fmt.Sprintf("SELECT %s FROM rules WHERE is_active = 1 ORDER BY priority, created_at", ruleColumns))
}

func (s *SQLiteStorage) queryRules(ctx context.Context, query string, args ...any) ([]*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []*model.Rule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// UpdateRule replaces a rule's definition and bumps its modified time.
// MatchCount is not written here; it changes only through
// IncrementRuleMatchCounts.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	conditionsJSON, treeJSON, actionsJSON, err := marshalRuleColumns(rule)
	if err != nil {
		return err
	}

	rule.ModifiedAt = time.Now()

	query := `
		UPDATE rules SET
			name = ?, target_category = ?, tier = ?, conditions = ?,
			condition_tree = ?, actions = ?, priority = ?, group_id = ?,
			is_active = ?, stop_processing = ?, modified_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		rule.Name, rule.TargetCategory, rule.Tier,
		conditionsJSON, treeJSON, actionsJSON,
		rule.Priority, nullableString(rule.GroupID),
		rule.IsActive, rule.StopProcessing, rule.ModifiedAt,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return requireRowsAffected(result, rule.ID)
}

// DeleteRule removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return requireRowsAffected(result, id)
}

// IncrementRuleMatchCounts persists the match counters accumulated by an
// execution pass in a single transaction.
func (s *SQLiteStorage) IncrementRuleMatchCounts(ctx context.Context, counts map[string]int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(counts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"UPDATE rules SET match_count = match_count + ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for id, count := range counts {
		if count <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, count, id); err != nil {
			return fmt.Errorf("failed to increment match count for rule %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// UpdateRulePriorities rewrites priorities in a single batch. Reordering is
// always an explicit rewrite of the integer fields, never inferred from
// slice position.
func (s *SQLiteStorage) UpdateRulePriorities(ctx context.Context, updates []service.RulePriorityUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"UPDATE rules SET priority = ?, modified_at = CURRENT_TIMESTAMP WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, update := range updates {
		if _, err := stmt.ExecContext(ctx, update.Priority, update.RuleID); err != nil {
			return fmt.Errorf("failed to update priority for rule %s: %w", update.RuleID, err)
		}
	}

	return tx.Commit()
}

func marshalRuleColumns(rule *model.Rule) (conditions, tree sql.NullString, actions string, err error) {
	if rule.Conditions != nil {
		data, marshalErr := json.Marshal(rule.Conditions)
		if marshalErr != nil {
			return conditions, tree, "", fmt.Errorf("failed to marshal conditions: %w", marshalErr)
		}
		conditions = sql.NullString{String: string(data), Valid: true}
	}
	if rule.ConditionTree != nil {
		data, marshalErr := json.Marshal(rule.ConditionTree)
		if marshalErr != nil {
			return conditions, tree, "", fmt.Errorf("failed to marshal condition tree: %w", marshalErr)
		}
		tree = sql.NullString{String: string(data), Valid: true}
	}

	data, marshalErr := json.Marshal(rule.Actions)
	if marshalErr != nil {
		return conditions, tree, "", fmt.Errorf("failed to marshal actions: %w", marshalErr)
	}

	return conditions, tree, string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*model.Rule, error) {
	var rule model.Rule
	var conditionsJSON, treeJSON, groupID sql.NullString
	var actionsJSON string

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.TargetCategory, &rule.Tier,
		&conditionsJSON, &treeJSON, &actionsJSON,
		&rule.Priority, &groupID, &rule.IsActive, &rule.StopProcessing,
		&rule.MatchCount, &rule.CreatedAt, &rule.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if conditionsJSON.Valid {
		rule.Conditions = &model.ConditionList{}
		if err := json.Unmarshal([]byte(conditionsJSON.String), rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions for rule %s: %w", rule.ID, err)
		}
	}
	if treeJSON.Valid {
		rule.ConditionTree = &model.ConditionNode{}
		if err := json.Unmarshal([]byte(treeJSON.String), rule.ConditionTree); err != nil {
			return nil, fmt.Errorf("failed to unmarshal condition tree for rule %s: %w", rule.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(actionsJSON), &rule.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions for rule %s: %w", rule.ID, err)
	}
	if groupID.Valid {
		rule.GroupID = groupID.String
	}

	return &rule, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRowsAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", common.ErrNotFound, id)
	}
	return nil
}
