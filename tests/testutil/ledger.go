// Package testutil provides shared test helpers: a seeded in-memory ledger
// and a recording event publisher.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/identity"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens an in-memory SQLite database carrying the ledger schema.
// A single connection keeps every query on the same in-memory database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.UserModel{},
		&models.CurrencyModel{},
		&models.AccountHolderModel{},
		&models.AccountModel{},
		&models.CategoryModel{},
		&models.TransactionModel{},
		&models.AuditLogModel{},
	))
	require.NoError(t, db.Exec("CREATE UNIQUE INDEX idx_currencies_single_base ON currencies (is_base) WHERE is_base").Error)
	return db
}

// LedgerFixture is a seeded ledger with one user, holder, base currency
// and an income and an expense category
type LedgerFixture struct {
	DB       *gorm.DB
	Repos    ledger.Repositories
	UoW      *persistence.GormUnitOfWork
	Reports  *persistence.GormReportRepository
	Users    *persistence.GormUserRepository
	User     *identity.User
	Holder   *ledger.AccountHolder
	Currency *ledger.Currency
	Expense  *ledger.Category
	Income   *ledger.Category
}

// NewLedgerFixture creates the fixture on a fresh SQLite database
func NewLedgerFixture(t *testing.T) *LedgerFixture {
	t.Helper()
	return SeedLedgerFixture(t, NewSQLiteDB(t))
}

// SeedLedgerFixture creates the fixture rows in db, which must carry the ledger schema
func SeedLedgerFixture(t *testing.T, db *gorm.DB) *LedgerFixture {
	t.Helper()
	ctx := context.Background()

	f := &LedgerFixture{
		DB:      db,
		Repos:   persistence.NewLedgerRepositories(db),
		UoW:     persistence.NewGormUnitOfWork(db),
		Reports: persistence.NewGormReportRepository(db),
		Users:   persistence.NewGormUserRepository(db),
	}

	var err error
	f.User, err = identity.NewUser("alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, f.Users.Create(ctx, f.User))

	f.Holder, err = ledger.NewAccountHolder("Alice", ledger.HolderTypePersonal, ledger.HolderContact{})
	require.NoError(t, err)
	require.NoError(t, f.Repos.Holders.Create(ctx, f.Holder))

	f.Currency, err = ledger.NewCurrency("USD", "US Dollar", "$", decimal.NewFromInt(1))
	require.NoError(t, err)
	f.Currency.MarkBase()
	require.NoError(t, f.Repos.Currencies.Create(ctx, f.Currency))

	f.Expense, err = ledger.NewCategory("Groceries", ledger.CategoryTypeDebit)
	require.NoError(t, err)
	require.NoError(t, f.Repos.Categories.Create(ctx, f.Expense))

	f.Income, err = ledger.NewCategory("Salary", ledger.CategoryTypeCredit)
	require.NoError(t, err)
	require.NoError(t, f.Repos.Categories.Create(ctx, f.Income))
	return f
}

// Account creates an active checking account opened on 2024-01-01
func (f *LedgerFixture) Account(t *testing.T, name string, starting int64) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(name, ledger.AccountTypeChecking, f.Holder.ID, f.Currency.ID,
		decimal.NewFromInt(starting), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, f.Repos.Accounts.Create(context.Background(), account))
	return account
}

// Actor returns the fixture user as a request actor
func (f *LedgerFixture) Actor() shared.Actor {
	return f.User.Actor("127.0.0.1", "testutil")
}

// Context returns a background context carrying the fixture actor
func (f *LedgerFixture) Context() context.Context {
	return shared.WithActor(context.Background(), f.Actor())
}

// CachedBalance reads the cached balance column of an account
func (f *LedgerFixture) CachedBalance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	account, err := f.Repos.Accounts.FindByID(context.Background(), id)
	require.NoError(t, err)
	return account.CurrentBalance
}

// IDPtr returns a pointer to id
func IDPtr(id uuid.UUID) *uuid.UUID { return &id }
