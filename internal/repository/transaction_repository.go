package repository

import (
	"database/sql"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
)

const transactionColumns = `id, account_id, account_name, transaction_date, currency, direction, amount, description, external_id, balance_after, created_at`

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (account_id, account_name, transaction_date, currency, direction, amount, description, external_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var balanceAfter interface{}
	if tx.BalanceAfter != nil {
		balanceAfter = tx.BalanceAfter.String()
	}

	now := time.Now().UTC()
	err := r.db.QueryRow(
		query,
		tx.AccountID,
		tx.AccountName,
		tx.TransactionDate,
		tx.Currency,
		tx.Direction,
		tx.Amount.String(),
		nullable(tx.Description),
		nullable(tx.ExternalID),
		balanceAfter,
		now,
	).Scan(&tx.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			// The (account_id, external_id) dedup index caught a concurrent
			// import of the same provider row.
			r.logger.Warn("Duplicate external transaction",
				"account_id", tx.AccountID, "external_id", tx.ExternalID)
			return apperr.ErrDuplicateExternalTx
		}
		r.logger.Error("Failed to create transaction",
			"account_id", tx.AccountID, "external_id", tx.ExternalID, "error", err)
		return apperr.New(apperr.InternalError, "failed to create transaction").WithDetails(err.Error())
	}

	tx.CreatedAt = now
	return nil
}

func (r *transactionRepository) ExternalIDExists(accountID int64, externalID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE account_id = $1 AND external_id = $2)`,
		accountID, externalID,
	).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check external id", "account_id", accountID, "external_id", externalID, "error", err)
		return false, apperr.New(apperr.InternalError, "failed to check external transaction").WithDetails(err.Error())
	}
	return exists, nil
}

func (r *transactionRepository) ListRecentTransactions(filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	take := filter.Take
	if take < 1 {
		take = 10
	}
	if take > 100 {
		take = 100
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	var conds []string
	var args []interface{}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		conds = append(conds, "account_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Currency != "" {
		args = append(args, filter.Currency)
		conds = append(conds, "currency = $"+strconv.Itoa(len(args)))
	}
	if filter.Direction != "" {
		args = append(args, filter.Direction)
		conds = append(conds, "direction = $"+strconv.Itoa(len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.New(apperr.InternalError, "failed to count transactions").WithDetails(err.Error())
	}

	args = append(args, take, skip)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY transaction_date DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	return r.queryTransactions(query, total, args...)
}

func (r *transactionRepository) ListTransactionsByAccount(accountID int64, page, pageSize int) ([]domain.Transaction, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.New(apperr.InternalError, "failed to count transactions").WithDetails(err.Error())
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY transaction_date DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryTransactions(query, total, accountID, pageSize, (page-1)*pageSize)
}

func (r *transactionRepository) queryTransactions(query string, total int, args ...interface{}) ([]domain.Transaction, int, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, 0, apperr.New(apperr.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransactionRow(rows.Scan)
		if err != nil {
			return nil, 0, apperr.New(apperr.InternalError, "failed to scan transaction").WithDetails(err.Error())
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.New(apperr.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	return transactions, total, nil
}

func scanTransactionRow(scan func(dest ...interface{}) error) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountStr string
	var description, externalID, balanceAfter sql.NullString

	err := scan(
		&tx.ID,
		&tx.AccountID,
		&tx.AccountName,
		&tx.TransactionDate,
		&tx.Currency,
		&tx.Direction,
		&amountStr,
		&description,
		&externalID,
		&balanceAfter,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	tx.Amount = amount
	tx.Description = description.String
	tx.ExternalID = externalID.String
	if balanceAfter.Valid {
		b, err := decimal.NewFromString(balanceAfter.String)
		if err != nil {
			return nil, err
		}
		tx.BalanceAfter = &b
	}
	return &tx, nil
}
