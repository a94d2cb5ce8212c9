package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/service"
)

const transactionColumns = `id, hash, date, description, details, reference,
	counterparty, counterparty_iban, account_id, source_account, amount,
	transaction_type, category, notes, tags, reviewed, created_at`

// SaveTransactions saves multiple transactions to the database. Amounts are
// stored as decimal strings, never floated.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, date, description, details, reference,
			counterparty, counterparty_iban, account_id, source_account,
			amount, transaction_type, category, notes, tags, reviewed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		txn := &transactions[i]
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		tagsJSON, marshalErr := marshalTags(txn.Tags)
		if marshalErr != nil {
			return marshalErr
		}

		if _, err := stmt.ExecContext(ctx,
			txn.ID, txn.Hash, txn.Date, txn.Description, txn.Details, txn.Reference,
			txn.CounterParty, txn.CounterPartyIBAN, txn.AccountID, txn.SourceAccount,
			txn.Amount.String(), txn.Type, txn.Category, txn.Notes, tagsJSON, txn.Reviewed,
		); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM transactions WHERE id = ?", transactionColumns), id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransactions retrieves transactions matching the filter, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM transactions WHERE 1=1", transactionColumns)
	var args []any

	if filter.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += " AND date <= ?"
		args = append(args, *filter.EndDate)
	}
	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}

	query += " ORDER BY date DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	return s.queryTransactions(ctx, query, args...)
}

// GetUncategorizedTransactions retrieves transactions without a category,
// oldest first so bulk categorization is deterministic.
func (s *SQLiteStorage) GetUncategorizedTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM transactions WHERE category IS NULL OR category = '' ORDER BY date, id",
		transactionColumns)
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return s.queryTransactions(ctx, query, args...)
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

// ApplyCategorization writes an execution result's actions back onto a
// transaction: category, notes, tags, source account, reviewed flag.
func (s *SQLiteStorage) ApplyCategorization(ctx context.Context, transactionID string, actions []model.Action) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	if len(actions) == 0 {
		return nil
	}

	txn, err := s.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return err
	}

	for _, action := range actions {
		switch action.Type {
		case model.ActionSetCategory:
			txn.Category = action.Value
		case model.ActionSetNotes:
			txn.Notes = action.Value
		case model.ActionAddTag:
			txn.Tags = appendUniqueTag(txn.Tags, action.Value)
		case model.ActionSetSourceAccount:
			txn.SourceAccount = action.Value
		case model.ActionMarkReviewed:
			txn.Reviewed = true
		}
	}

	tagsJSON, err := marshalTags(txn.Tags)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET category = ?, notes = ?, tags = ?, source_account = ?, reviewed = ?
		WHERE id = ?
	`, txn.Category, txn.Notes, tagsJSON, txn.SourceAccount, txn.Reviewed, transactionID)
	if err != nil {
		return fmt.Errorf("failed to apply categorization to %s: %w", transactionID, err)
	}

	return requireRowsAffected(result, transactionID)
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amount string
	var details, reference, counterparty, iban, accountID, sourceAccount sql.NullString
	var category, notes, tagsJSON sql.NullString

	err := row.Scan(
		&txn.ID, &txn.Hash, &txn.Date, &txn.Description, &details, &reference,
		&counterparty, &iban, &accountID, &sourceAccount, &amount,
		&txn.Type, &category, &notes, &tagsJSON, &txn.Reviewed, &txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount for transaction %s: %w", txn.ID, err)
	}

	txn.Details = details.String
	txn.Reference = reference.String
	txn.CounterParty = counterparty.String
	txn.CounterPartyIBAN = iban.String
	txn.AccountID = accountID.String
	txn.SourceAccount = sourceAccount.String
	txn.Category = category.String
	txn.Notes = notes.String

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &txn.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for transaction %s: %w", txn.ID, err)
		}
	}

	return &txn, nil
}

func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(data), nil
}

func appendUniqueTag(tags []string, tag string) []string {
	for _, existing := range tags {
		if existing == tag {
			return tags
		}
	}
	return append(tags, tag)
}
