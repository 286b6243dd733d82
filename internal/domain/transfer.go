package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is a closed set persisted with a fixed string
// representation; no runtime parse round-trips.
type TransferStatus string

const (
	TransferPending   TransferStatus = "Pending"
	TransferCompleted TransferStatus = "Completed"
	TransferFailed    TransferStatus = "Failed"
)

func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferCompleted, TransferFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition to Completed is permitted.
// Failed transfers stay eligible for an explicit resend.
func (s TransferStatus) Terminal() bool {
	return s == TransferCompleted
}

type Transfer struct {
	ID            int64           `json:"id"`
	FromAccountID int64           `json:"from_account_id"`
	ToIban        string          `json:"to_iban"`
	ToName        string          `json:"to_name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description,omitempty"`
	Status        TransferStatus  `json:"status"`
	BankReference string          `json:"bank_reference,omitempty"`
	RequestedAt   time.Time       `json:"requested_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

type TransferRepository interface {
	CreateTransfer(t *Transfer) error
	// GetTransferByID returns (nil, nil) when the transfer does not exist.
	GetTransferByID(id int64) (*Transfer, error)
	ListTransfersByAccount(accountID int64, page, pageSize int) ([]Transfer, int, error)
	// MarkTransferCompleted returns ErrAlreadySettled if the transfer is
	// already Completed, so a racing second completion rolls back instead
	// of double-applying its ledger effects.
	MarkTransferCompleted(id int64, bankReference string, completedAt time.Time) error
	MarkTransferFailed(id int64) error
}
