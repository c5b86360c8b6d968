package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines persistence operations for accounts
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	List(ctx context.Context, filter AccountFilter) ([]Account, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// ApplyBalanceDelta atomically adds delta to the cached balance column
	ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
	// SetCachedBalance overwrites the cached balance column
	SetCachedBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	// LockBalances holds row locks on every account until the surrounding transaction ends
	LockBalances(ctx context.Context) error

	// ComputeBalance recomputes one account's balance from transactions dated on or before asOf
	ComputeBalance(ctx context.Context, id uuid.UUID, asOf time.Time) (*Balance, error)
	// ComputeBalances recomputes balances of every account matching filter
	ComputeBalances(ctx context.Context, filter AccountFilter, asOf time.Time) ([]Balance, error)

	CountByHolder(ctx context.Context, holderID uuid.UUID) (int64, error)
	CountByCurrency(ctx context.Context, currencyID uuid.UUID) (int64, error)
}

// CategoryRepository defines persistence operations for categories
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter CategoryFilter) ([]Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountChildren(ctx context.Context, id uuid.UUID) (int64, error)
}

// HolderRepository defines persistence operations for account holders
type HolderRepository interface {
	Create(ctx context.Context, holder *AccountHolder) error
	FindByID(ctx context.Context, id uuid.UUID) (*AccountHolder, error)
	List(ctx context.Context) ([]AccountHolder, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CurrencyRepository defines persistence operations for currencies
type CurrencyRepository interface {
	Create(ctx context.Context, currency *Currency) error
	FindByID(ctx context.Context, id uuid.UUID) (*Currency, error)
	FindByCode(ctx context.Context, code string) (*Currency, error)
	FindBase(ctx context.Context) (*Currency, error)
	List(ctx context.Context, activeOnly bool) ([]Currency, error)
	// ClearBase removes the base flag from every currency except keep
	ClearBase(ctx context.Context, keep uuid.UUID) error
	Update(ctx context.Context, currency *Currency) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionRepository defines persistence operations for transactions
type TransactionRepository interface {
	// Create inserts a transaction; a reference collision returns ErrDuplicateReference
	Create(ctx context.Context, txn *Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*TransactionDetail, error)
	// ListDetails returns a page of details and the total count; a zero page size returns every row
	ListDetails(ctx context.Context, filter TransactionFilter) ([]TransactionDetail, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// SetReconciliation writes the new reconciliation state only if the stored flag still
	// equals expected. It returns false when no row matched.
	SetReconciliation(ctx context.Context, id uuid.UUID, expected bool, reconciled bool, at *time.Time) (bool, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

// AuditRepository appends and reads audit entries
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}

// ReportRepository runs read-only aggregate queries
type ReportRepository interface {
	CategoryTotals(ctx context.Context, from, to time.Time) ([]CategoryTotal, error)
	CashFlow(ctx context.Context, from, to time.Time) ([]CashFlowDay, error)
	CategoryTotal(ctx context.Context, categoryID uuid.UUID, from, to *time.Time) (decimal.Decimal, error)
	SumByCategoryType(ctx context.Context, categoryType CategoryType, from, to time.Time) (decimal.Decimal, error)
	CountTransactionsSince(ctx context.Context, since time.Time) (int64, error)
	TotalActiveBalance(ctx context.Context, asOf time.Time) (decimal.Decimal, error)
}

// Repositories is the set of repositories bound to one unit of work
type Repositories struct {
	Accounts     AccountRepository
	Categories   CategoryRepository
	Holders      HolderRepository
	Currencies   CurrencyRepository
	Transactions TransactionRepository
	Audit        AuditRepository
}

// UnitOfWork runs fn inside one database transaction. Returning an error from
// fn rolls back every write made through repos.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
