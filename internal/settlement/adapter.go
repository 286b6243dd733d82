// Package settlement abstracts the external bank that executes money
// movement: credential acquisition, transfer submission and authoritative
// transaction history.
package settlement

import (
	"context"

	"github.com/shopspring/decimal"
)

// Outcome is the provider's answer to a transfer submission. A business
// decline is Success=false with a status code; it is never an error.
type Outcome struct {
	Success           bool
	Reference         string
	StatusCode        string
	StatusDescription string
}

// SubmitRequest carries everything the provider needs to move money.
type SubmitRequest struct {
	FromAccountNumber string
	ToIban            string
	ToName            string
	Amount            decimal.Decimal
	Currency          string
	Description       string
}

// ExternalTransaction is one row of provider-reported history. Date stays
// in the provider's own format; the reconciliation engine parses it.
type ExternalTransaction struct {
	ExternalID    string
	Date          string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	DirectionCode string
	BalanceAfter  *decimal.Decimal
}

// Adapter is the contract the core consumes. Errors from SubmitTransfer
// and FetchTransactions are infrastructure failures only.
type Adapter interface {
	AcquireCredential(ctx context.Context) (string, error)
	SubmitTransfer(ctx context.Context, credential string, req SubmitRequest) (Outcome, error)
	// FetchTransactions takes the range bounds in dd-MM-yyyy form.
	FetchTransactions(ctx context.Context, credential, accountNumber, startDate, endDate string) ([]ExternalTransaction, error)
}
