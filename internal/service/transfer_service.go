package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
	"mybank-ledger/internal/events"
	"mybank-ledger/internal/iban"
	"mybank-ledger/internal/settlement"
)

// TransferService drives the Pending -> Completed | Failed state machine
// for a money movement. A transfer is never left Pending after a
// settlement attempt, and a Completed transfer is immutable.
type TransferService struct {
	store     domain.Store
	ledger    *LedgerService
	adapter   settlement.Adapter
	publisher events.Publisher
	topic     string
	logger    *slog.Logger
}

func NewTransferService(
	store domain.Store,
	ledger *LedgerService,
	adapter settlement.Adapter,
	publisher events.Publisher,
	topic string,
	logger *slog.Logger,
) *TransferService {
	return &TransferService{
		store:     store,
		ledger:    ledger,
		adapter:   adapter,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

type TransferRequest struct {
	FromAccountID int64
	ToIban        string
	ToName        string
	Amount        decimal.Decimal
	Description   string
}

// CreateAndSettle validates the request, persists a Pending transfer and
// attempts settlement. Validation failures return an error without side
// effects; settlement failures return the transfer in its Failed state.
func (s *TransferService) CreateAndSettle(ctx context.Context, req TransferRequest) (*domain.Transfer, error) {
	if !req.Amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}

	toIban := iban.Normalize(req.ToIban)
	if !iban.Validate(toIban) {
		return nil, apperr.ErrInvalidIban
	}

	from, err := s.store.Accounts().GetAccount(req.FromAccountID)
	if err != nil {
		return nil, err
	}

	// Optimistic check; re-checked atomically when the balance moves.
	if from.Balance.LessThan(req.Amount) {
		return nil, apperr.ErrInsufficientFunds
	}

	toName := strings.TrimSpace(req.ToName)
	if err := s.checkRecipientName(toIban, toName); err != nil {
		return nil, err
	}

	transfer := &domain.Transfer{
		FromAccountID: from.ID,
		ToIban:        toIban,
		ToName:        toName,
		Amount:        req.Amount,
		Currency:      from.Currency,
		Description:   strings.TrimSpace(req.Description),
		Status:        domain.TransferPending,
		RequestedAt:   time.Now().UTC(),
	}
	if transfer.Currency == "" {
		transfer.Currency = "TRY"
	}
	if err := s.store.Transfers().CreateTransfer(transfer); err != nil {
		return nil, err
	}

	return s.settle(ctx, transfer, from)
}

// Resend re-attempts settlement for a transfer that is not yet Completed.
// Balance and recipient name are validated again: state may have changed
// since the transfer was created.
func (s *TransferService) Resend(ctx context.Context, transferID int64) (*domain.Transfer, error) {
	transfer, err := s.store.Transfers().GetTransferByID(transferID)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, apperr.ErrTransferNotFound
	}
	if transfer.Status.Terminal() {
		return nil, apperr.ErrAlreadySettled
	}

	from, err := s.store.Accounts().GetAccount(transfer.FromAccountID)
	if err != nil {
		return nil, err
	}
	if from.Balance.LessThan(transfer.Amount) {
		return nil, apperr.ErrInsufficientFunds
	}
	if err := s.checkRecipientName(transfer.ToIban, transfer.ToName); err != nil {
		return nil, err
	}

	return s.settle(ctx, transfer, from)
}

func (s *TransferService) GetTransfer(transferID int64) (*domain.Transfer, error) {
	transfer, err := s.store.Transfers().GetTransferByID(transferID)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, apperr.ErrTransferNotFound
	}
	return transfer, nil
}

func (s *TransferService) ListTransfersByAccount(accountID int64, page, pageSize int) ([]domain.Transfer, int, error) {
	if _, err := s.store.Accounts().GetAccount(accountID); err != nil {
		return nil, 0, err
	}
	return s.store.Transfers().ListTransfersByAccount(accountID, page, pageSize)
}

func (s *TransferService) checkRecipientName(toIban, toName string) error {
	if toName == "" {
		return nil
	}
	dest, err := s.store.Accounts().GetAccountByIban(toIban)
	if err != nil {
		return err
	}
	if dest != nil && !recipientNameMatches(toName, dest) {
		return apperr.ErrRecipientNameMismatch
	}
	return nil
}

// settle submits the transfer to the settlement adapter and commits the
// outcome. Cancellation is honored only until the adapter acknowledges the
// submission; after that the local commit runs unconditionally.
func (s *TransferService) settle(ctx context.Context, transfer *domain.Transfer, from *domain.Account) (*domain.Transfer, error) {
	credential, err := s.adapter.AcquireCredential(ctx)
	if err != nil {
		s.logger.Error("credential acquisition failed", "transfer_id", transfer.ID, "error", err)
		return s.fail(transfer, apperr.From(err).Message)
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warn("transfer canceled before submission", "transfer_id", transfer.ID)
		return s.fail(transfer, "canceled before submission")
	}

	outcome, err := s.adapter.SubmitTransfer(ctx, credential, settlement.SubmitRequest{
		FromAccountNumber: from.AccountNumber,
		ToIban:            transfer.ToIban,
		ToName:            transfer.ToName,
		Amount:            transfer.Amount,
		Currency:          transfer.Currency,
		Description:       transfer.Description,
	})
	if err != nil {
		// Transport failure: terminal Failed, retry is the caller's call.
		s.logger.Error("settlement transport failure", "transfer_id", transfer.ID, "error", err)
		return s.fail(transfer, "settlement failed")
	}
	if !outcome.Success {
		s.logger.Warn("settlement declined",
			"transfer_id", transfer.ID,
			"status_code", outcome.StatusCode,
			"status_description", outcome.StatusDescription)
		return s.fail(transfer, outcome.StatusCode+" - "+outcome.StatusDescription)
	}

	reference := strings.TrimSpace(outcome.Reference)
	if reference == "" {
		reference = "RES-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	}

	// The provider accepted the movement; from here the local commit must
	// finish even if the caller has gone away.
	completedAt := time.Now().UTC()
	err = s.store.WithTransaction(func(tx domain.Store) error {
		if err := s.ledger.applyTransferEffects(tx, transfer.FromAccountID, transfer.ToIban, transfer.Amount, transfer.Description, reference); err != nil {
			return err
		}
		return tx.Transfers().MarkTransferCompleted(transfer.ID, reference, completedAt)
	})
	if err != nil {
		// Another worker completed this transfer while we were settling;
		// our balance effects rolled back and the record is intact.
		if errors.Is(err, apperr.ErrAlreadySettled) {
			return nil, err
		}
		// Local error during the balance mutation: no balance change is
		// visible and the transfer goes Failed.
		s.logger.Error("local commit failed after settlement", "transfer_id", transfer.ID, "error", err)
		if _, failErr := s.fail(transfer, apperr.From(err).Message); failErr != nil {
			return nil, failErr
		}
		return nil, err
	}

	transfer.Status = domain.TransferCompleted
	transfer.BankReference = reference
	transfer.CompletedAt = &completedAt

	if pubErr := s.publisher.Publish(s.topic, events.TransferSettled{
		TransferID:    transfer.ID,
		FromAccountID: transfer.FromAccountID,
		ToIban:        transfer.ToIban,
		Amount:        transfer.Amount,
		Currency:      transfer.Currency,
		BankReference: reference,
		OccurredAt:    completedAt,
	}); pubErr != nil {
		s.logger.Warn("failed to publish settlement event", "transfer_id", transfer.ID, "error", pubErr)
	}

	return transfer, nil
}

func (s *TransferService) fail(transfer *domain.Transfer, reason string) (*domain.Transfer, error) {
	if err := s.store.Transfers().MarkTransferFailed(transfer.ID); err != nil {
		return nil, err
	}
	transfer.Status = domain.TransferFailed

	if pubErr := s.publisher.Publish(s.topic, events.TransferFailed{
		TransferID: transfer.ID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}); pubErr != nil {
		s.logger.Warn("failed to publish failure event", "transfer_id", transfer.ID, "error", pubErr)
	}

	return transfer, nil
}
