package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
	"mybank-ledger/internal/settlement"
)

// SyncService pulls the provider's transaction history for an account and
// materializes the entries the ledger has not seen yet.
type SyncService struct {
	store   domain.Store
	adapter settlement.Adapter
	logger  *slog.Logger
}

func NewSyncService(store domain.Store, adapter settlement.Adapter, logger *slog.Logger) *SyncService {
	return &SyncService{store: store, adapter: adapter, logger: logger}
}

type SyncResult struct {
	Synced   int `json:"synced"`
	Received int `json:"received"`
}

// Sync fetches the account's provider transactions for the date range and
// inserts those whose external id is new for the account. Replaying the
// same range is safe: already-known entries are skipped.
func (s *SyncService) Sync(ctx context.Context, accountID int64, startDate, endDate string) (*SyncResult, error) {
	account, err := s.store.Accounts().GetAccount(accountID)
	if err != nil {
		return nil, err
	}

	credential, err := s.adapter.AcquireCredential(ctx)
	if err != nil {
		return nil, err
	}

	external, err := s.adapter.FetchTransactions(ctx, credential, account.AccountNumber, startDate, endDate)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Received: len(external)}
	for _, ext := range external {
		// Entries without a provider id cannot be deduplicated and are
		// imported as-is on every sync of their range.
		if strings.TrimSpace(ext.ExternalID) != "" {
			exists, err := s.store.Transactions().ExternalIDExists(accountID, ext.ExternalID)
			if err != nil {
				return nil, err
			}
			if exists {
				continue
			}
		}

		entry := s.toLedgerEntry(account, ext)
		if err := s.store.Transactions().CreateTransaction(entry); err != nil {
			// A concurrent sync of the same range can insert the same entry
			// between our existence check and the insert.
			if errors.Is(err, apperr.ErrDuplicateExternalTx) {
				continue
			}
			return nil, err
		}
		result.Synced++
	}

	s.logger.Info("transaction sync finished",
		"account_id", accountID, "received", result.Received, "synced", result.Synced)
	return result, nil
}

func (s *SyncService) toLedgerEntry(account *domain.Account, ext settlement.ExternalTransaction) *domain.Transaction {
	amount := ext.Amount
	direction := mapDirection(ext.DirectionCode)
	if amount.IsNegative() {
		amount = amount.Abs()
		direction = domain.DirectionOut
	}

	currency := strings.ToUpper(strings.TrimSpace(ext.Currency))
	if currency == "" {
		currency = "TRY"
	}

	return &domain.Transaction{
		AccountID:       account.ID,
		AccountName:     account.AccountName,
		TransactionDate: s.parseDate(ext.Date),
		Currency:        currency,
		Direction:       direction,
		Amount:          amount,
		Description:     strings.TrimSpace(ext.Description),
		ExternalID:      ext.ExternalID,
		BalanceAfter:    ext.BalanceAfter,
		CreatedAt:       time.Now().UTC(),
	}
}

// parseDate accepts the provider's API timestamp or its dd-MM-yyyy form.
// An unparseable date degrades to the current time rather than dropping
// the entry.
func (s *SyncService) parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("02-01-2006", raw, time.FixedZone("UTC+3", 3*60*60)); err == nil {
		return t
	}
	s.logger.Warn("unparseable transaction date, using current time", "date", raw)
	return time.Now().UTC()
}

func mapDirection(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "IN", "C", "CREDIT", "A", "1":
		return domain.DirectionIn
	default:
		return domain.DirectionOut
	}
}
