package memory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
)

func seedAccount(t *testing.T, store *Store, iban string, balance string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		Iban:          iban,
		AccountNumber: "100200300400",
		AccountName:   "Vadesiz - Owner",
		OwnerName:     "Owner",
		Currency:      "TRY",
		Balance:       decimal.RequireFromString(balance),
	}
	require.NoError(t, store.Accounts().CreateAccount(account))
	return account
}

func TestCreateAccountAssignsSequentialIDs(t *testing.T) {
	store := NewStore()

	a := seedAccount(t, store, "TR000000000000000000000001", "10")
	b := seedAccount(t, store, "TR000000000000000000000002", "20")
	assert.Equal(t, a.ID+1, b.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestCreateAccountRejectsDuplicateIban(t *testing.T) {
	store := NewStore()
	seedAccount(t, store, "TR000000000000000000000001", "10")

	err := store.Accounts().CreateAccount(&domain.Account{
		Iban:     "TR000000000000000000000001",
		Currency: "TRY",
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicateAccount)
}

func TestGetAccountByIban(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "TR000000000000000000000001", "10")

	found, err := store.Accounts().GetAccountByIban(account.Iban)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, account.ID, found.ID)

	missing, err := store.Accounts().GetAccountByIban("TR000000000000000000000099")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateAccountBalance(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "TR000000000000000000000001", "100")

	require.NoError(t, store.Accounts().UpdateAccountBalance(account.ID, decimal.RequireFromString("42.50")))

	got, err := store.Accounts().GetAccount(account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("42.50")))

	err = store.Accounts().UpdateAccountBalance(9999, decimal.Zero)
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
}

func TestWithTransactionCommit(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "TR000000000000000000000001", "100")

	err := store.WithTransaction(func(tx domain.Store) error {
		return tx.Accounts().UpdateAccountBalance(account.ID, decimal.RequireFromString("60"))
	})
	require.NoError(t, err)

	got, err := store.Accounts().GetAccount(account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("60")))
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "TR000000000000000000000001", "100")

	err := store.WithTransaction(func(tx domain.Store) error {
		if err := tx.Accounts().UpdateAccountBalance(account.ID, decimal.Zero); err != nil {
			return err
		}
		return apperr.ErrInsufficientFunds
	})
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	// The balance write inside the failed unit of work is gone.
	got, err := store.Accounts().GetAccount(account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100")))
}

func TestWithTransactionCannotNest(t *testing.T) {
	store := NewStore()

	err := store.WithTransaction(func(tx domain.Store) error {
		return tx.WithTransaction(func(domain.Store) error { return nil })
	})
	assert.ErrorIs(t, err, apperr.ErrCannotBeginTransaction)
}

func TestMarkTransferCompletedIsTerminal(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "TR000000000000000000000001", "100")

	transfer := &domain.Transfer{
		FromAccountID: account.ID,
		ToIban:        "TR000000000000000000000002",
		Amount:        decimal.RequireFromString("10"),
		Currency:      "TRY",
		Status:        domain.TransferPending,
		RequestedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.Transfers().CreateTransfer(transfer))

	first := time.Now().UTC()
	require.NoError(t, store.Transfers().MarkTransferCompleted(transfer.ID, "REF-1", first))

	// A second completion attempt is rejected and does not overwrite the
	// record; a late failure mark is silently ignored.
	err := store.Transfers().MarkTransferCompleted(transfer.ID, "REF-2", time.Now().UTC())
	assert.ErrorIs(t, err, apperr.ErrAlreadySettled)
	require.NoError(t, store.Transfers().MarkTransferFailed(transfer.ID))

	got, err := store.Transfers().GetTransferByID(transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferCompleted, got.Status)
	assert.Equal(t, "REF-1", got.BankReference)
}

func TestListTransfersByAccountPaginates(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "TR000000000000000000000001", "100")

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Transfers().CreateTransfer(&domain.Transfer{
			FromAccountID: account.ID,
			ToIban:        "TR000000000000000000000002",
			Amount:        decimal.New(int64(i+1), 0),
			Currency:      "TRY",
			Status:        domain.TransferPending,
			RequestedAt:   time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	page1, total, err := store.Transfers().ListTransfersByAccount(account.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)

	page3, _, err := store.Transfers().ListTransfersByAccount(account.ID, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	// Newest first.
	assert.True(t, page1[0].RequestedAt.After(page1[1].RequestedAt))
}

func TestDuplicateExternalTransactionRejected(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, "TR000000000000000000000001", "100")

	tx := domain.Transaction{
		AccountID:       account.ID,
		TransactionDate: time.Now().UTC(),
		Currency:        "TRY",
		Direction:       domain.DirectionIn,
		Amount:          decimal.RequireFromString("5"),
		ExternalID:      "EXT-1",
	}
	first := tx
	require.NoError(t, store.Transactions().CreateTransaction(&first))

	second := tx
	err := store.Transactions().CreateTransaction(&second)
	assert.ErrorIs(t, err, apperr.ErrDuplicateExternalTx)

	exists, err := store.Transactions().ExternalIDExists(account.ID, "EXT-1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Blank external ids never collide.
	blank := domain.Transaction{
		AccountID:       account.ID,
		TransactionDate: time.Now().UTC(),
		Currency:        "TRY",
		Direction:       domain.DirectionOut,
		Amount:          decimal.RequireFromString("1"),
	}
	b1, b2 := blank, blank
	require.NoError(t, store.Transactions().CreateTransaction(&b1))
	require.NoError(t, store.Transactions().CreateTransaction(&b2))
}

func TestListRecentTransactionsFilters(t *testing.T) {
	store := NewStore()
	a := seedAccount(t, store, "TR000000000000000000000001", "100")
	b := seedAccount(t, store, "TR000000000000000000000002", "100")

	mk := func(accountID int64, currency, direction string, offset time.Duration) {
		require.NoError(t, store.Transactions().CreateTransaction(&domain.Transaction{
			AccountID:       accountID,
			TransactionDate: time.Now().UTC().Add(offset),
			Currency:        currency,
			Direction:       direction,
			Amount:          decimal.RequireFromString("1"),
		}))
	}
	mk(a.ID, "TRY", domain.DirectionIn, 0)
	mk(a.ID, "EUR", domain.DirectionOut, time.Second)
	mk(b.ID, "TRY", domain.DirectionOut, 2*time.Second)

	all, total, err := store.Transactions().ListRecentTransactions(domain.TransactionFilter{Take: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.True(t, all[0].TransactionDate.After(all[1].TransactionDate))

	byAccount, total, err := store.Transactions().ListRecentTransactions(domain.TransactionFilter{AccountID: &a.ID, Take: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, byAccount, 2)

	byCurrency, _, err := store.Transactions().ListRecentTransactions(domain.TransactionFilter{Currency: "EUR", Take: 10})
	require.NoError(t, err)
	assert.Len(t, byCurrency, 1)

	byDirection, _, err := store.Transactions().ListRecentTransactions(domain.TransactionFilter{Direction: domain.DirectionOut, Take: 10})
	require.NoError(t, err)
	assert.Len(t, byDirection, 2)

	skipped, _, err := store.Transactions().ListRecentTransactions(domain.TransactionFilter{Take: 2, Skip: 2})
	require.NoError(t, err)
	assert.Len(t, skipped, 1)
}
