// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/florijnhq/florijn/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AccountID string
	Limit     int
	Offset    int
}

// RulePriorityUpdate rewrites one rule's priority during a batch reorder.
type RulePriorityUpdate struct {
	RuleID   string
	Priority int
}

// GroupOrderUpdate rewrites one group's execution order during a batch
// reorder.
type GroupOrderUpdate struct {
	GroupID        string
	ExecutionOrder int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetUncategorizedTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
	ApplyCategorization(ctx context.Context, transactionID string, actions []model.Action) error

	// Rule operations
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id string) (*model.Rule, error)
	GetRules(ctx context.Context) ([]*model.Rule, error)
	GetActiveRules(ctx context.Context) ([]*model.Rule, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id string) error
	IncrementRuleMatchCounts(ctx context.Context, counts map[string]int) error
	UpdateRulePriorities(ctx context.Context, updates []RulePriorityUpdate) error

	// Rule group operations
	CreateRuleGroup(ctx context.Context, group *model.RuleGroup) error
	GetRuleGroups(ctx context.Context) ([]model.RuleGroup, error)
	UpdateRuleGroup(ctx context.Context, group *model.RuleGroup) error
	DeleteRuleGroup(ctx context.Context, id string) error
	ReorderRuleGroups(ctx context.Context, updates []GroupOrderUpdate) error

	// Legacy rule operations (read-mostly: migration never mutates them)
	CreateLegacyRule(ctx context.Context, rule *model.LegacyRule) error
	GetLegacyRules(ctx context.Context) ([]model.LegacyRule, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
