package service

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
)

// LedgerService is the single authority for account balances. Every
// balance change in the system goes through it.
type LedgerService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewLedgerService(store domain.Store, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		store:  store,
		logger: logger,
	}
}

// Debit decreases the account balance, failing on insufficient funds.
func (s *LedgerService) Debit(accountID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.ErrInvalidAmount
	}

	return s.store.WithTransaction(func(tx domain.Store) error {
		account, err := tx.Accounts().GetAccountForUpdate(accountID)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(amount) {
			return apperr.ErrInsufficientFunds
		}
		return tx.Accounts().UpdateAccountBalance(accountID, account.Balance.Sub(amount))
	})
}

// Credit increases the account balance. Crediting an unknown account is a
// no-op: the caller decides whether an external-only destination matters.
func (s *LedgerService) Credit(accountID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.ErrInvalidAmount
	}

	return s.store.WithTransaction(func(tx domain.Store) error {
		account, err := tx.Accounts().GetAccountForUpdate(accountID)
		if err != nil {
			if apperr.From(err).Code == apperr.AccountNotFound {
				return nil
			}
			return err
		}
		return tx.Accounts().UpdateAccountBalance(accountID, account.Balance.Add(amount))
	})
}

// ApplyTransferEffects debits the source and, when the destination IBAN is
// locally known, credits it; otherwise the money simply leaves the local
// ledger. Both sides commit atomically or not at all.
func (s *LedgerService) ApplyTransferEffects(fromAccountID int64, toIban string, amount decimal.Decimal) error {
	return s.store.WithTransaction(func(tx domain.Store) error {
		return s.applyTransferEffects(tx, fromAccountID, toIban, amount, "", "")
	})
}

// applyTransferEffects runs inside an open unit of work so the orchestrator
// can commit the balance mutation together with the transfer's terminal
// state. It also appends the immutable ledger entries for both sides.
func (s *LedgerService) applyTransferEffects(tx domain.Store, fromAccountID int64, toIban string, amount decimal.Decimal, description, reference string) error {
	if !amount.IsPositive() {
		return apperr.ErrInvalidAmount
	}

	// Resolve the destination before locking so rows are always locked in
	// ascending id order; concurrent opposite-direction transfers would
	// deadlock otherwise.
	dest, err := tx.Accounts().GetAccountByIban(toIban)
	if err != nil {
		return err
	}

	var from *domain.Account
	if dest == nil || dest.ID == fromAccountID {
		from, err = tx.Accounts().GetAccountForUpdate(fromAccountID)
		if err != nil {
			return err
		}
		if dest != nil {
			dest = from
		}
	} else if dest.ID < fromAccountID {
		if dest, err = tx.Accounts().GetAccountForUpdate(dest.ID); err != nil {
			return err
		}
		if from, err = tx.Accounts().GetAccountForUpdate(fromAccountID); err != nil {
			return err
		}
	} else {
		if from, err = tx.Accounts().GetAccountForUpdate(fromAccountID); err != nil {
			return err
		}
		if dest, err = tx.Accounts().GetAccountForUpdate(dest.ID); err != nil {
			return err
		}
	}

	if from.Balance.LessThan(amount) {
		return apperr.ErrInsufficientFunds
	}

	now := time.Now().UTC()
	newFromBalance := from.Balance.Sub(amount)
	if err := tx.Accounts().UpdateAccountBalance(from.ID, newFromBalance); err != nil {
		return err
	}

	outBalance := newFromBalance
	outEntry := domain.Transaction{
		AccountID:       from.ID,
		AccountName:     from.AccountName,
		TransactionDate: now,
		Currency:        from.Currency,
		Direction:       domain.DirectionOut,
		Amount:          amount,
		Description:     description,
		ExternalID:      reference,
		BalanceAfter:    &outBalance,
	}
	if err := tx.Transactions().CreateTransaction(&outEntry); err != nil {
		return err
	}

	if dest == nil {
		// External destination: the debit is the whole local effect.
		return nil
	}

	destBalance := dest.Balance
	if dest.ID == from.ID {
		destBalance = newFromBalance
	}
	newDestBalance := destBalance.Add(amount)
	if err := tx.Accounts().UpdateAccountBalance(dest.ID, newDestBalance); err != nil {
		return err
	}

	inEntry := domain.Transaction{
		AccountID:       dest.ID,
		AccountName:     dest.AccountName,
		TransactionDate: now,
		Currency:        dest.Currency,
		Direction:       domain.DirectionIn,
		Amount:          amount,
		Description:     description,
		BalanceAfter:    &newDestBalance,
	}
	return tx.Transactions().CreateTransaction(&inEntry)
}
