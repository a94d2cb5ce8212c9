// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags the direction of a transaction.
type TransactionType string

// Transaction type constants.
const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
	TypeUnknown  TransactionType = "unknown"
)

// Valid reports whether t is a member of the closed transaction-type set.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer, TypeUnknown:
		return true
	}
	return false
}

// Transaction represents a single imported bank transaction. The rule engine
// only reads these fields; amounts are fixed-point decimals, never floats.
type Transaction struct {
	Date             time.Time
	CreatedAt        time.Time
	ID               string
	Description      string // Primary bank statement description
	Details          string // Secondary free-text line, if the bank provides one
	Reference        string // Payment reference / remittance info
	CounterParty     string
	CounterPartyIBAN string
	AccountID        string
	SourceAccount    string
	Category         string // User-assigned category, empty until categorized
	Notes            string
	Hash             string
	Type             TransactionType
	Amount           decimal.Decimal // Signed: negative for debits
	Tags             []string
	Reviewed         bool
}

// DescriptionFields returns the non-empty free-text description fields, in
// declaration order. AnyField matching tests each of these individually.
func (t *Transaction) DescriptionFields() []string {
	fields := make([]string, 0, 3)
	for _, f := range []string{t.Description, t.Details, t.Reference} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
