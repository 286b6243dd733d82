package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID            int64           `json:"id"`
	Iban          string          `json:"iban"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	OwnerName     string          `json:"owner_name,omitempty"`
	BankName      string          `json:"bank_name"`
	PhoneNumber   string          `json:"phone_number,omitempty"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Owner is the capability a recipient-name check needs: a single
// human-readable name, regardless of how the owning user is modeled.
type Owner interface {
	DisplayName() string
}

func (a *Account) DisplayName() string {
	if a.OwnerName != "" {
		return a.OwnerName
	}
	return a.AccountName
}

type AccountRepository interface {
	CreateAccount(account *Account) error
	GetAccount(id int64) (*Account, error)
	// GetAccountForUpdate locks the account row for the duration of the
	// enclosing transaction. Outside a transaction it behaves like GetAccount.
	GetAccountForUpdate(id int64) (*Account, error)
	// GetAccountByIban returns (nil, nil) when no local account has the IBAN.
	GetAccountByIban(iban string) (*Account, error)
	IbanExists(iban string) (bool, error)
	ListAccounts() ([]Account, error)
	UpdateAccountBalance(id int64, newBalance decimal.Decimal) error
}
