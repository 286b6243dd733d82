package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
	"mybank-ledger/internal/iban"
	"mybank-ledger/internal/repository/memory"
	"mybank-ledger/internal/settlement"
)

func newSyncFixture(t *testing.T) (*memory.Store, *fakeAdapter, *SyncService, *domain.Account) {
	t.Helper()
	store := memory.NewStore()
	adapter := newFakeAdapter()
	svc := NewSyncService(store, adapter, newTestLogger())

	ibanStr, err := iban.GenerateUnique("TR", "00061", store.Accounts().IbanExists)
	require.NoError(t, err)
	account := &domain.Account{
		Iban:          ibanStr,
		AccountNumber: "100200300400",
		AccountName:   "Vadesiz - Ayşe Yılmaz",
		OwnerName:     "Ayşe Yılmaz",
		Currency:      "TRY",
		Balance:       decimal.RequireFromString("500.00"),
	}
	require.NoError(t, store.Accounts().CreateAccount(account))
	return store, adapter, svc, account
}

func extTx(id, date, amount, direction string) settlement.ExternalTransaction {
	return settlement.ExternalTransaction{
		ExternalID:    id,
		Date:          date,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "TRY",
		Description:   "provider entry " + id,
		DirectionCode: direction,
	}
}

func TestSyncInsertsNewTransactions(t *testing.T) {
	store, adapter, svc, account := newSyncFixture(t)
	adapter.fetched = []settlement.ExternalTransaction{
		extTx("EXT-1", "2025-08-01T10:30:00+03:00", "120.50", "IN"),
		extTx("EXT-2", "02-08-2025", "45.00", "OUT"),
	}

	result, err := svc.Sync(context.Background(), account.ID, "01-08-2025", "15-08-2025")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Received)
	assert.Equal(t, 2, result.Synced)

	entries, total, err := store.Transactions().ListTransactionsByAccount(account.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
}

func TestSyncIsIdempotent(t *testing.T) {
	store, adapter, svc, account := newSyncFixture(t)
	adapter.fetched = []settlement.ExternalTransaction{
		extTx("EXT-1", "2025-08-01T10:30:00+03:00", "120.50", "IN"),
		extTx("EXT-2", "2025-08-02T11:00:00+03:00", "45.00", "OUT"),
		extTx("EXT-3", "2025-08-03T09:15:00+03:00", "10.00", "IN"),
	}

	first, err := svc.Sync(context.Background(), account.ID, "01-08-2025", "15-08-2025")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Synced)
	assert.Equal(t, 3, first.Received)

	// Replaying the same range adds nothing.
	second, err := svc.Sync(context.Background(), account.ID, "01-08-2025", "15-08-2025")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Synced)
	assert.Equal(t, 3, second.Received)

	_, total, err := store.Transactions().ListTransactionsByAccount(account.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSyncDirectionMapping(t *testing.T) {
	store, adapter, svc, account := newSyncFixture(t)
	adapter.fetched = []settlement.ExternalTransaction{
		extTx("D-1", "2025-08-01T00:00:00+03:00", "10", "C"),
		extTx("D-2", "2025-08-01T00:00:00+03:00", "10", "credit"),
		extTx("D-3", "2025-08-01T00:00:00+03:00", "10", "A"),
		extTx("D-4", "2025-08-01T00:00:00+03:00", "10", "1"),
		extTx("D-5", "2025-08-01T00:00:00+03:00", "10", "D"),
		extTx("D-6", "2025-08-01T00:00:00+03:00", "10", ""),
	}

	_, err := svc.Sync(context.Background(), account.ID, "01-08-2025", "02-08-2025")
	require.NoError(t, err)

	byID := map[string]string{}
	entries, _, err := store.Transactions().ListTransactionsByAccount(account.ID, 1, 20)
	require.NoError(t, err)
	for _, e := range entries {
		byID[e.ExternalID] = e.Direction
	}
	assert.Equal(t, domain.DirectionIn, byID["D-1"])
	assert.Equal(t, domain.DirectionIn, byID["D-2"])
	assert.Equal(t, domain.DirectionIn, byID["D-3"])
	assert.Equal(t, domain.DirectionIn, byID["D-4"])
	assert.Equal(t, domain.DirectionOut, byID["D-5"])
	assert.Equal(t, domain.DirectionOut, byID["D-6"])
}

func TestSyncNegativeAmountBecomesOutflow(t *testing.T) {
	store, adapter, svc, account := newSyncFixture(t)
	adapter.fetched = []settlement.ExternalTransaction{
		extTx("NEG-1", "2025-08-01T00:00:00+03:00", "-75.25", "IN"),
	}

	_, err := svc.Sync(context.Background(), account.ID, "01-08-2025", "02-08-2025")
	require.NoError(t, err)

	entries, _, err := store.Transactions().ListTransactionsByAccount(account.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.DirectionOut, entries[0].Direction)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("75.25")))
}

func TestSyncDateParsing(t *testing.T) {
	store, adapter, svc, account := newSyncFixture(t)
	adapter.fetched = []settlement.ExternalTransaction{
		extTx("DT-1", "2025-08-01T10:30:00+03:00", "10", "IN"),
		extTx("DT-2", "05-08-2025", "10", "IN"),
		extTx("DT-3", "not a date", "10", "IN"),
	}

	before := time.Now().Add(-time.Second)
	_, err := svc.Sync(context.Background(), account.ID, "01-08-2025", "15-08-2025")
	require.NoError(t, err)

	byID := map[string]time.Time{}
	entries, _, err := store.Transactions().ListTransactionsByAccount(account.ID, 1, 10)
	require.NoError(t, err)
	for _, e := range entries {
		byID[e.ExternalID] = e.TransactionDate
	}

	want1, _ := time.Parse(time.RFC3339, "2025-08-01T10:30:00+03:00")
	assert.True(t, byID["DT-1"].Equal(want1))

	assert.Equal(t, 2025, byID["DT-2"].Year())
	assert.Equal(t, time.August, byID["DT-2"].Month())
	assert.Equal(t, 5, byID["DT-2"].Day())

	// Unparseable dates degrade to "now" instead of being dropped.
	assert.True(t, byID["DT-3"].After(before))
}

func TestSyncImportsEntriesWithoutExternalIDEveryTime(t *testing.T) {
	store, adapter, svc, account := newSyncFixture(t)
	adapter.fetched = []settlement.ExternalTransaction{
		extTx("", "2025-08-01T00:00:00+03:00", "10", "IN"),
		extTx("KEEP-1", "2025-08-01T00:00:00+03:00", "20", "IN"),
	}

	result, err := svc.Sync(context.Background(), account.ID, "01-08-2025", "02-08-2025")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Received)
	assert.Equal(t, 2, result.Synced)

	// Entries without a provider id have no dedup key and import again.
	result, err = svc.Sync(context.Background(), account.ID, "01-08-2025", "02-08-2025")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	_, total, err := store.Transactions().ListTransactionsByAccount(account.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSyncUnknownAccount(t *testing.T) {
	_, _, svc, _ := newSyncFixture(t)

	_, err := svc.Sync(context.Background(), 4242, "01-08-2025", "02-08-2025")
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
}

func TestSyncPropagatesProviderErrors(t *testing.T) {
	_, adapter, svc, account := newSyncFixture(t)
	adapter.fetchErr = apperr.ErrSettlementFailed

	_, err := svc.Sync(context.Background(), account.ID, "01-08-2025", "02-08-2025")
	assert.ErrorIs(t, err, apperr.ErrSettlementFailed)
}
