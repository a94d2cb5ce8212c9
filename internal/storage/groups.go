package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/service"
)

// CreateRuleGroup creates a new rule group.
func (s *SQLiteStorage) CreateRuleGroup(ctx context.Context, group *model.RuleGroup) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if group == nil {
		return fmt.Errorf("%w: group", ErrNilParameter)
	}
	if err := group.Validate(); err != nil {
		return err
	}
	if err := validateString(group.ID, "group ID"); err != nil {
		return err
	}

	now := time.Now()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.ModifiedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_groups (id, name, execution_order, is_active, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, group.ID, group.Name, group.ExecutionOrder, group.IsActive, group.CreatedAt, group.ModifiedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule group: %w", err)
	}

	return nil
}

// GetRuleGroups retrieves all groups ordered by execution order.
func (s *SQLiteStorage) GetRuleGroups(ctx context.Context) ([]model.RuleGroup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, execution_order, is_active, created_at, modified_at
		FROM rule_groups ORDER BY execution_order, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []model.RuleGroup
	for rows.Next() {
		var group model.RuleGroup
		if err := rows.Scan(&group.ID, &group.Name, &group.ExecutionOrder,
			&group.IsActive, &group.CreatedAt, &group.ModifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule group: %w", err)
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}

// UpdateRuleGroup updates a group's name, order, and active flag.
func (s *SQLiteStorage) UpdateRuleGroup(ctx context.Context, group *model.RuleGroup) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if group == nil {
		return fmt.Errorf("%w: group", ErrNilParameter)
	}
	if err := group.Validate(); err != nil {
		return err
	}

	group.ModifiedAt = time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE rule_groups SET name = ?, execution_order = ?, is_active = ?, modified_at = ?
		WHERE id = ?
	`, group.Name, group.ExecutionOrder, group.IsActive, group.ModifiedAt, group.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule group: %w", err)
	}

	return requireRowsAffected(result, group.ID)
}

// DeleteRuleGroup removes a group. Rules referencing it become ungrouped
// via the schema's ON DELETE SET NULL.
func (s *SQLiteStorage) DeleteRuleGroup(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM rule_groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule group: %w", err)
	}

	return requireRowsAffected(result, id)
}

// ReorderRuleGroups rewrites execution orders in a single batch.
func (s *SQLiteStorage) ReorderRuleGroups(ctx context.Context, updates []service.GroupOrderUpdate) error {
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
		"UPDATE rule_groups SET execution_order = ?, modified_at = CURRENT_TIMESTAMP WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, update := range updates {
		if _, err := stmt.ExecContext(ctx, update.ExecutionOrder, update.GroupID); err != nil {
			return fmt.Errorf("failed to reorder group %s: %w", update.GroupID, err)
		}
	}

	return tx.Commit()
}
