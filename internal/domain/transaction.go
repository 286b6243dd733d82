package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"
)

// Transaction is an immutable ledger entry. Amount is always non-negative;
// the sign is carried by Direction.
type Transaction struct {
	ID              int64            `json:"id"`
	AccountID       int64            `json:"account_id"`
	AccountName     string           `json:"account_name"`
	TransactionDate time.Time        `json:"transaction_date"`
	Currency        string           `json:"currency"`
	Direction       string           `json:"direction"`
	Amount          decimal.Decimal  `json:"amount"`
	Description     string           `json:"description,omitempty"`
	ExternalID      string           `json:"external_id,omitempty"`
	BalanceAfter    *decimal.Decimal `json:"balance_after,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

type TransactionFilter struct {
	AccountID *int64
	Currency  string
	Direction string
	Take      int
	Skip      int
}

type TransactionRepository interface {
	CreateTransaction(tx *Transaction) error
	// ExternalIDExists is the reconciliation dedup check on the
	// (account, external id) pair.
	ExternalIDExists(accountID int64, externalID string) (bool, error)
	ListRecentTransactions(filter TransactionFilter) ([]Transaction, int, error)
	ListTransactionsByAccount(accountID int64, page, pageSize int) ([]Transaction, int, error)
}
