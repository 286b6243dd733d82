// Package memory is an in-memory implementation of domain.Store, used when
// no database is configured and by the service unit tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
)

type state struct {
	accounts     map[int64]domain.Account
	transfers    map[int64]domain.Transfer
	transactions []domain.Transaction

	nextAccountID     int64
	nextTransferID    int64
	nextTransactionID int64
}

func newState() *state {
	return &state{
		accounts:          make(map[int64]domain.Account),
		transfers:         make(map[int64]domain.Transfer),
		nextAccountID:     1,
		nextTransferID:    1,
		nextTransactionID: 1,
	}
}

func (s *state) clone() *state {
	cp := &state{
		accounts:          make(map[int64]domain.Account, len(s.accounts)),
		transfers:         make(map[int64]domain.Transfer, len(s.transfers)),
		transactions:      make([]domain.Transaction, len(s.transactions)),
		nextAccountID:     s.nextAccountID,
		nextTransferID:    s.nextTransferID,
		nextTransactionID: s.nextTransactionID,
	}
	for id, a := range s.accounts {
		cp.accounts[id] = a
	}
	for id, t := range s.transfers {
		cp.transfers[id] = t
	}
	copy(cp.transactions, s.transactions)
	return cp
}

// Store keeps everything behind one mutex. WithTransaction holds the lock
// for the whole unit of work, which gives the same serialization the
// postgres store gets from row locks, and rolls back by restoring a
// snapshot.
type Store struct {
	mu     *sync.Mutex
	st     *state
	locked bool
}

func NewStore() *Store {
	return &Store{
		mu: &sync.Mutex{},
		st: newState(),
	}
}

func (s *Store) Accounts() domain.AccountRepository {
	return &accountRepo{s: s}
}

func (s *Store) Transfers() domain.TransferRepository {
	return &transferRepo{s: s}
}

func (s *Store) Transactions() domain.TransactionRepository {
	return &transactionRepo{s: s}
}

func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	if s.locked {
		return apperr.ErrCannotBeginTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, locked: true}

	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func (s *Store) lock() func() {
	if s.locked {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

var _ domain.Store = (*Store)(nil)

// ----- accounts -----

type accountRepo struct {
	s *Store
}

func (r *accountRepo) CreateAccount(account *domain.Account) error {
	defer r.s.lock()()
	st := r.s.st

	for _, existing := range st.accounts {
		if existing.Iban == account.Iban {
			return apperr.ErrDuplicateAccount
		}
	}

	now := time.Now().UTC()
	account.ID = st.nextAccountID
	st.nextAccountID++
	account.CreatedAt = now
	account.UpdatedAt = now
	st.accounts[account.ID] = *account
	return nil
}

func (r *accountRepo) GetAccount(id int64) (*domain.Account, error) {
	defer r.s.lock()()

	account, ok := r.s.st.accounts[id]
	if !ok {
		return nil, apperr.ErrAccountNotFound
	}
	return &account, nil
}

// GetAccountForUpdate has no separate row lock here: the store-wide lock
// held by WithTransaction already serializes the whole unit of work.
func (r *accountRepo) GetAccountForUpdate(id int64) (*domain.Account, error) {
	return r.GetAccount(id)
}

func (r *accountRepo) GetAccountByIban(iban string) (*domain.Account, error) {
	defer r.s.lock()()

	for _, account := range r.s.st.accounts {
		if account.Iban == iban {
			a := account
			return &a, nil
		}
	}
	return nil, nil
}

func (r *accountRepo) IbanExists(iban string) (bool, error) {
	account, err := r.GetAccountByIban(iban)
	if err != nil {
		return false, err
	}
	return account != nil, nil
}

func (r *accountRepo) ListAccounts() ([]domain.Account, error) {
	defer r.s.lock()()

	accounts := make([]domain.Account, 0, len(r.s.st.accounts))
	for _, a := range r.s.st.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (r *accountRepo) UpdateAccountBalance(id int64, newBalance decimal.Decimal) error {
	defer r.s.lock()()
	st := r.s.st

	account, ok := st.accounts[id]
	if !ok {
		return apperr.ErrAccountNotFound
	}
	account.Balance = newBalance
	account.UpdatedAt = time.Now().UTC()
	st.accounts[id] = account
	return nil
}

// ----- transfers -----

type transferRepo struct {
	s *Store
}

func (r *transferRepo) CreateTransfer(t *domain.Transfer) error {
	defer r.s.lock()()
	st := r.s.st

	t.ID = st.nextTransferID
	st.nextTransferID++
	st.transfers[t.ID] = *t
	return nil
}

func (r *transferRepo) GetTransferByID(id int64) (*domain.Transfer, error) {
	defer r.s.lock()()

	t, ok := r.s.st.transfers[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *transferRepo) ListTransfersByAccount(accountID int64, page, pageSize int) ([]domain.Transfer, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	defer r.s.lock()()

	var all []domain.Transfer
	for _, t := range r.s.st.transfers {
		if t.FromAccountID == accountID {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].RequestedAt.After(all[j].RequestedAt)
	})
	return paginate(all, (page-1)*pageSize, pageSize), len(all), nil
}

func (r *transferRepo) MarkTransferCompleted(id int64, bankReference string, completedAt time.Time) error {
	defer r.s.lock()()
	st := r.s.st

	t, ok := st.transfers[id]
	if !ok {
		return apperr.ErrTransferNotFound
	}
	if t.Status == domain.TransferCompleted {
		return apperr.ErrAlreadySettled
	}
	t.Status = domain.TransferCompleted
	t.BankReference = bankReference
	ts := completedAt
	t.CompletedAt = &ts
	st.transfers[id] = t
	return nil
}

func (r *transferRepo) MarkTransferFailed(id int64) error {
	defer r.s.lock()()
	st := r.s.st

	t, ok := st.transfers[id]
	if !ok {
		return apperr.ErrTransferNotFound
	}
	if t.Status == domain.TransferCompleted {
		return nil
	}
	t.Status = domain.TransferFailed
	st.transfers[id] = t
	return nil
}

// ----- transactions -----

type transactionRepo struct {
	s *Store
}

func (r *transactionRepo) CreateTransaction(tx *domain.Transaction) error {
	defer r.s.lock()()
	st := r.s.st

	if tx.ExternalID != "" {
		for _, existing := range st.transactions {
			if existing.AccountID == tx.AccountID && existing.ExternalID == tx.ExternalID {
				return apperr.ErrDuplicateExternalTx
			}
		}
	}

	tx.ID = st.nextTransactionID
	st.nextTransactionID++
	tx.CreatedAt = time.Now().UTC()
	st.transactions = append(st.transactions, *tx)
	return nil
}

func (r *transactionRepo) ExternalIDExists(accountID int64, externalID string) (bool, error) {
	defer r.s.lock()()

	for _, tx := range r.s.st.transactions {
		if tx.AccountID == accountID && tx.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (r *transactionRepo) ListRecentTransactions(filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
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

	defer r.s.lock()()

	var matched []domain.Transaction
	for _, tx := range r.s.st.transactions {
		if filter.AccountID != nil && tx.AccountID != *filter.AccountID {
			continue
		}
		if filter.Currency != "" && tx.Currency != filter.Currency {
			continue
		}
		if filter.Direction != "" && tx.Direction != filter.Direction {
			continue
		}
		matched = append(matched, tx)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].TransactionDate.After(matched[j].TransactionDate)
	})
	return paginate(matched, skip, take), len(matched), nil
}

func (r *transactionRepo) ListTransactionsByAccount(accountID int64, page, pageSize int) ([]domain.Transaction, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return r.ListRecentTransactions(domain.TransactionFilter{
		AccountID: &accountID,
		Take:      pageSize,
		Skip:      (page - 1) * pageSize,
	})
}

func paginate[T any](items []T, skip, take int) []T {
	if skip >= len(items) {
		return nil
	}
	end := skip + take
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-skip)
	copy(out, items[skip:end])
	return out
}
