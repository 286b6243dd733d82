package domain

// Store is the unit-of-work boundary over the three repositories.
// WithTransaction runs fn against a store whose repositories share one
// atomic transaction; returning an error rolls everything back.
type Store interface {
	Accounts() AccountRepository
	Transfers() TransferRepository
	Transactions() TransactionRepository
	WithTransaction(fn func(Store) error) error
}
