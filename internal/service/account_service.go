package service

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
	"mybank-ledger/internal/iban"
)

const countryPrefix = "TR"

type AccountService struct {
	store    domain.Store
	bankCode string
	bankName string
	logger   *slog.Logger
}

func NewAccountService(store domain.Store, bankCode, bankName string, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:    store,
		bankCode: bankCode,
		bankName: bankName,
		logger:   logger,
	}
}

type CreateAccountRequest struct {
	OwnerName      string
	AccountName    string
	PhoneNumber    string
	Currency       string
	InitialBalance decimal.Decimal
}

// CreateAccount mints a fresh IBAN and account number for the owner. The
// account name defaults to "Vadesiz - {owner}" when not supplied.
func (s *AccountService) CreateAccount(req CreateAccountRequest) (*domain.Account, error) {
	ownerName := strings.TrimSpace(req.OwnerName)
	if ownerName == "" {
		return nil, apperr.New(apperr.InvalidInput, "owner name is required")
	}
	if req.InitialBalance.IsNegative() {
		return nil, apperr.New(apperr.InvalidInput, "initial balance cannot be negative")
	}

	accountName := strings.TrimSpace(req.AccountName)
	if accountName == "" {
		accountName = "Vadesiz - " + ownerName
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "TRY"
	}

	newIban, err := iban.GenerateUnique(countryPrefix, s.bankCode, s.store.Accounts().IbanExists)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		Iban:          newIban,
		AccountNumber: iban.GenerateAccountNumber(12),
		AccountName:   accountName,
		OwnerName:     ownerName,
		BankName:      s.bankName,
		PhoneNumber:   strings.TrimSpace(req.PhoneNumber),
		Currency:      currency,
		Balance:       req.InitialBalance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Accounts().CreateAccount(account); err != nil {
		return nil, err
	}

	s.logger.Info("account created", "account_id", account.ID, "iban", account.Iban)
	return account, nil
}

func (s *AccountService) GetAccount(id int64) (*domain.Account, error) {
	return s.store.Accounts().GetAccount(id)
}

func (s *AccountService) ListAccounts() ([]domain.Account, error) {
	return s.store.Accounts().ListAccounts()
}
