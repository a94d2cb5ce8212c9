package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/florijnhq/florijn/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrEmptySlice   = errors.New("slice cannot be empty")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn.ID == "" {
		return fmt.Errorf("%w: transaction ID", ErrEmptyString)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: transaction description", ErrEmptyString)
	}
	if txn.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	if !txn.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", txn.Type)
	}
	return nil
}

// validateRule validates a rule before it is written. Rule.Validate carries
// the engine-level invariants (tier consistency, operator matrix, action
// values); this only adds storage preconditions.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: rule ID", ErrEmptyString)
	}
	return rule.Validate()
}
