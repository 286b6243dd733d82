package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
)

const transferColumns = `id, from_account_id, to_iban, to_name, amount, currency, description, status, bank_reference, requested_at, completed_at`

type transferRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransferRepository(db SQLExecutor, logger *slog.Logger) domain.TransferRepository {
	return &transferRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transferRepository) CreateTransfer(t *domain.Transfer) error {
	query := `
		INSERT INTO transfers (from_account_id, to_iban, to_name, amount, currency, description, status, bank_reference, requested_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		t.FromAccountID,
		t.ToIban,
		t.ToName,
		t.Amount.String(),
		t.Currency,
		nullable(t.Description),
		string(t.Status),
		nullable(t.BankReference),
		t.RequestedAt,
		t.CompletedAt,
	).Scan(&t.ID)

	if err != nil {
		r.logger.Error("Failed to create transfer",
			"from_account_id", t.FromAccountID,
			"to_iban", t.ToIban,
			"amount", t.Amount,
			"error", err)
		return apperr.New(apperr.InternalError, "failed to create transfer").WithDetails(err.Error())
	}

	r.logger.Info("Transfer created", "transfer_id", t.ID, "status", t.Status)
	return nil
}

func (r *transferRepository) GetTransferByID(id int64) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`

	t, err := scanTransferRow(r.db.QueryRow(query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get transfer", "transfer_id", id, "error", err)
		return nil, apperr.New(apperr.InternalError, "failed to get transfer").WithDetails(err.Error())
	}
	return t, nil
}

func (r *transferRepository) ListTransfersByAccount(accountID int64, page, pageSize int) ([]domain.Transfer, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM transfers WHERE from_account_id = $1`, accountID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.New(apperr.InternalError, "failed to count transfers").WithDetails(err.Error())
	}

	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE from_account_id = $1
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(query, accountID, pageSize, (page-1)*pageSize)
	if err != nil {
		r.logger.Error("Failed to list transfers", "account_id", accountID, "error", err)
		return nil, 0, apperr.New(apperr.InternalError, "failed to list transfers").WithDetails(err.Error())
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		t, err := scanTransferRow(rows.Scan)
		if err != nil {
			return nil, 0, apperr.New(apperr.InternalError, "failed to scan transfer").WithDetails(err.Error())
		}
		transfers = append(transfers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.New(apperr.InternalError, "failed to list transfers").WithDetails(err.Error())
	}
	return transfers, total, nil
}

// MarkTransferCompleted records the terminal Completed state. The status
// guard keeps an already-Completed row untouched.
func (r *transferRepository) MarkTransferCompleted(id int64, bankReference string, completedAt time.Time) error {
	query := `
		UPDATE transfers
		SET status = $1, bank_reference = $2, completed_at = $3
		WHERE id = $4 AND status <> $1
	`

	result, err := r.db.Exec(query, string(domain.TransferCompleted), bankReference, completedAt, id)
	if err != nil {
		r.logger.Error("Failed to mark transfer completed", "transfer_id", id, "error", err)
		return apperr.New(apperr.InternalError, "failed to update transfer status").WithDetails(err.Error())
	}

	// Zero rows means another worker already completed this transfer;
	// surfacing the error rolls back the caller's balance effects.
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return apperr.ErrAlreadySettled
	}

	r.logger.Info("Transfer completed", "transfer_id", id, "bank_reference", bankReference)
	return nil
}

func (r *transferRepository) MarkTransferFailed(id int64) error {
	query := `
		UPDATE transfers
		SET status = $1
		WHERE id = $2 AND status <> $3
	`

	_, err := r.db.Exec(query, string(domain.TransferFailed), id, string(domain.TransferCompleted))
	if err != nil {
		r.logger.Error("Failed to mark transfer failed", "transfer_id", id, "error", err)
		return apperr.New(apperr.InternalError, "failed to update transfer status").WithDetails(err.Error())
	}

	r.logger.Info("Transfer failed", "transfer_id", id)
	return nil
}

func scanTransferRow(scan func(dest ...interface{}) error) (*domain.Transfer, error) {
	var t domain.Transfer
	var amountStr string
	var status string
	var description, bankReference sql.NullString
	var completedAt sql.NullTime

	err := scan(
		&t.ID,
		&t.FromAccountID,
		&t.ToIban,
		&t.ToName,
		&amountStr,
		&t.Currency,
		&description,
		&status,
		&bankReference,
		&t.RequestedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	t.Amount = amount
	t.Description = description.String
	t.BankReference = bankReference.String
	t.Status = domain.TransferStatus(status)
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	return &t, nil
}
