package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
)

const accountColumns = `id, iban, account_number, account_name, owner_name, bank_name, phone_number, currency, balance, created_at, updated_at`

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(account *domain.Account) error {
	query := `
		INSERT INTO accounts (iban, account_number, account_name, owner_name, bank_name, phone_number, currency, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	now := time.Now().UTC()
	err := r.db.QueryRow(
		query,
		account.Iban,
		account.AccountNumber,
		account.AccountName,
		nullable(account.OwnerName),
		account.BankName,
		nullable(account.PhoneNumber),
		account.Currency,
		account.Balance.String(),
		now,
		now,
	).Scan(&account.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			r.logger.Warn("Duplicate IBAN on account creation", "iban", account.Iban)
			return apperr.ErrDuplicateAccount
		}
		r.logger.Error("Failed to create account", "iban", account.Iban, "error", err)
		return apperr.New(apperr.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created", "account_id", account.ID, "iban", account.Iban)
	return nil
}

func (r *accountRepository) GetAccount(id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(query, id)
}

func (r *accountRepository) GetAccountForUpdate(id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.scanAccount(query, id)
}

func (r *accountRepository) GetAccountByIban(iban string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE iban = $1`

	account, err := r.scanAccount(query, iban)
	if err != nil {
		if appErr := apperr.From(err); appErr.Code == apperr.AccountNotFound {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) IbanExists(iban string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM accounts WHERE iban = $1)`, iban).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check IBAN existence", "iban", iban, "error", err)
		return false, apperr.New(apperr.InternalError, "failed to check IBAN").WithDetails(err.Error())
	}
	return exists, nil
}

func (r *accountRepository) ListAccounts() ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, apperr.New(apperr.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccountRow(rows.Scan)
		if err != nil {
			return nil, apperr.New(apperr.InternalError, "failed to scan account").WithDetails(err.Error())
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	return accounts, nil
}

func (r *accountRepository) UpdateAccountBalance(id int64, newBalance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, newBalance.String(), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return apperr.New(apperr.InternalError, "failed to update account balance").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperr.New(apperr.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", id)
		return apperr.ErrAccountNotFound
	}

	return nil
}

func (r *accountRepository) scanAccount(query string, arg interface{}) (*domain.Account, error) {
	account, err := scanAccountRow(r.db.QueryRow(query, arg).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "arg", arg, "error", err)
		return nil, apperr.New(apperr.InternalError, "failed to get account").WithDetails(err.Error())
	}
	return account, nil
}

func scanAccountRow(scan func(dest ...interface{}) error) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string
	var ownerName, phoneNumber sql.NullString

	err := scan(
		&account.ID,
		&account.Iban,
		&account.AccountNumber,
		&account.AccountName,
		&ownerName,
		&account.BankName,
		&phoneNumber,
		&account.Currency,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, err
	}
	account.Balance = balance
	account.OwnerName = ownerName.String
	account.PhoneNumber = phoneNumber.String
	return &account, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
