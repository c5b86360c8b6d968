package persistence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/identity"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLiteDB opens an in-memory SQLite database with the ledger schema.
// A single connection keeps every query on the same in-memory database.
func newSQLiteDB(t *testing.T) *gorm.DB {
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

// ledgerFixture holds master data shared by repository tests
type ledgerFixture struct {
	db       *gorm.DB
	repos    ledger.Repositories
	user     *identity.User
	holder   *ledger.AccountHolder
	currency *ledger.Currency
	expense  *ledger.Category
	income   *ledger.Category
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	ctx := context.Background()
	db := newSQLiteDB(t)
	f := &ledgerFixture{db: db, repos: NewLedgerRepositories(db)}

	user, err := identity.NewUser("alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, user.SetFullName("Alice Example"))
	require.NoError(t, NewGormUserRepository(db).Create(ctx, user))
	f.user = user

	f.holder, err = ledger.NewAccountHolder("Alice", ledger.HolderTypePersonal, ledger.HolderContact{})
	require.NoError(t, err)
	require.NoError(t, f.repos.Holders.Create(ctx, f.holder))

	f.currency, err = ledger.NewCurrency("USD", "US Dollar", "$", decimal.NewFromInt(1))
	require.NoError(t, err)
	f.currency.MarkBase()
	require.NoError(t, f.repos.Currencies.Create(ctx, f.currency))

	f.expense, err = ledger.NewCategory("Groceries", ledger.CategoryTypeDebit)
	require.NoError(t, err)
	require.NoError(t, f.repos.Categories.Create(ctx, f.expense))

	f.income, err = ledger.NewCategory("Salary", ledger.CategoryTypeCredit)
	require.NoError(t, err)
	require.NoError(t, f.repos.Categories.Create(ctx, f.income))
	return f
}

func (f *ledgerFixture) account(t *testing.T, name string, starting int64) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(name, ledger.AccountTypeChecking, f.holder.ID, f.currency.ID,
		decimal.NewFromInt(starting), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, f.repos.Accounts.Create(context.Background(), account))
	return account
}

// post stores a transaction and applies its cached balance effects in one unit of work
func (f *ledgerFixture) post(t *testing.T, source, dest *uuid.UUID, category *ledger.Category, day string, amount int64) *ledger.Transaction {
	t.Helper()
	date, err := ledger.ParseDate(day)
	require.NoError(t, err)
	txn, err := ledger.NewTransaction(ledger.NewTransactionParams{
		Reference:       "TXN-" + date.Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:6]),
		SourceAccountID: source,
		DestAccountID:   dest,
		CategoryID:      category.ID,
		PostedBy:        f.user.ID,
		Date:            date,
		Amount:          decimal.NewFromInt(amount),
		Description:     category.Name + " " + day,
	})
	require.NoError(t, err)

	err = NewGormUnitOfWork(f.db).Do(context.Background(), func(ctx context.Context, repos ledger.Repositories) error {
		if err := repos.Transactions.Create(ctx, txn); err != nil {
			return err
		}
		for _, effect := range txn.BalanceEffects() {
			if err := repos.Accounts.ApplyBalanceDelta(ctx, effect.AccountID, effect.Delta); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return txn
}

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func day(s string) time.Time {
	d, err := ledger.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
