//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"

	app "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newLedgerService(f *testutil.LedgerFixture) *app.LedgerService {
	return app.NewLedgerService(app.LedgerServiceConfig{
		UnitOfWork:   f.UoW,
		Repositories: f.Repos,
	})
}

func TestLedger_PostAndDeleteKeepCacheInSync(t *testing.T) {
	tdb := NewTestDB(t)
	f := testutil.SeedLedgerFixture(t, tdb.DB)
	svc := newLedgerService(f)
	ctx := f.Context()

	checking := f.Account(t, "Checking", 1000)
	savings := f.Account(t, "Savings", 0)

	salary, err := svc.PostTransaction(ctx, app.PostTransactionRequest{
		DestAccountID: testutil.IDPtr(checking.ID),
		CategoryID:    f.Income.ID,
		Date:          "2024-02-01",
		Amount:        "2500.00",
		Description:   "February salary",
	})
	require.NoError(t, err)

	_, err = svc.PostTransaction(ctx, app.PostTransactionRequest{
		SourceAccountID: testutil.IDPtr(checking.ID),
		DestAccountID:   testutil.IDPtr(savings.ID),
		CategoryID:      f.Expense.ID,
		Date:            "2024-02-02",
		Amount:          "300.50",
		Description:     "Move to savings",
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("3199.50").Equal(f.CachedBalance(t, checking.ID)))
	assert.True(t, decimal.RequireFromString("300.50").Equal(f.CachedBalance(t, savings.ID)))

	require.NoError(t, svc.DeleteTransaction(ctx, salary.ID))
	assert.True(t, decimal.RequireFromString("699.50").Equal(f.CachedBalance(t, checking.ID)))

	balance, err := svc.GetAccountBalance(ctx, checking.ID, nil)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("699.50").Equal(balance.Balance))

	drifts, err := svc.VerifyBalances(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestLedger_ConcurrentPostingsToOneAccount(t *testing.T) {
	tdb := NewTestDB(t)
	f := testutil.SeedLedgerFixture(t, tdb.DB)
	svc := newLedgerService(f)
	ctx := f.Context()
	checking := f.Account(t, "Checking", 0)

	const postings = 20
	var g errgroup.Group
	for i := 0; i < postings; i++ {
		g.Go(func() error {
			_, err := svc.PostTransaction(ctx, app.PostTransactionRequest{
				DestAccountID: testutil.IDPtr(checking.ID),
				CategoryID:    f.Income.ID,
				Amount:        "10.25",
				Description:   "concurrent deposit",
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	want := decimal.RequireFromString("10.25").Mul(decimal.NewFromInt(postings))
	assert.True(t, want.Equal(f.CachedBalance(t, checking.ID)), "cached balance %s", f.CachedBalance(t, checking.ID))

	drifts, err := svc.VerifyBalances(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestLedger_ConcurrentReconciliationToggles(t *testing.T) {
	tdb := NewTestDB(t)
	f := testutil.SeedLedgerFixture(t, tdb.DB)
	svc := newLedgerService(f)
	ctx := f.Context()
	checking := f.Account(t, "Checking", 0)

	posted, err := svc.PostTransaction(ctx, app.PostTransactionRequest{
		SourceAccountID: testutil.IDPtr(checking.ID),
		CategoryID:      f.Expense.ID,
		Amount:          "42",
	})
	require.NoError(t, err)

	// an even number of toggles must leave the transaction unreconciled
	const toggles = 10
	var g errgroup.Group
	for i := 0; i < toggles; i++ {
		g.Go(func() error {
			for {
				_, err := svc.ToggleReconciliation(ctx, posted.ID)
				if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
					return err
				}
			}
		})
	}
	require.NoError(t, g.Wait())

	txn, err := svc.GetTransaction(ctx, posted.ID)
	require.NoError(t, err)
	assert.False(t, txn.IsReconciled)
	assert.Nil(t, txn.ReconciledAt)
}

func TestLedger_RefreshRepairsTamperedCache(t *testing.T) {
	tdb := NewTestDB(t)
	f := testutil.SeedLedgerFixture(t, tdb.DB)
	svc := newLedgerService(f)
	ctx := f.Context()
	checking := f.Account(t, "Checking", 100)

	_, err := svc.PostTransaction(ctx, app.PostTransactionRequest{
		SourceAccountID: testutil.IDPtr(checking.ID),
		CategoryID:      f.Expense.ID,
		Amount:          "40",
	})
	require.NoError(t, err)

	require.NoError(t, tdb.DB.Exec("UPDATE accounts SET current_balance = 999 WHERE id = ?", checking.ID).Error)

	drifts, err := svc.VerifyBalances(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, checking.ID, drifts[0].AccountID)

	corrected, err := svc.RefreshBalances(ctx)
	require.NoError(t, err)
	require.Len(t, corrected, 1)
	assert.True(t, decimal.NewFromInt(60).Equal(f.CachedBalance(t, checking.ID)))

	action := ledger.AuditActionRefreshBalance
	entries, total, err := f.Repos.Audit.List(context.Background(), ledger.AuditFilter{Action: &action})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, entries, 1)
}

func TestLedger_RefreshDuringConcurrentPostings(t *testing.T) {
	tdb := NewTestDB(t)
	f := testutil.SeedLedgerFixture(t, tdb.DB)
	svc := newLedgerService(f)
	ctx := f.Context()
	checking := f.Account(t, "Checking", 500)
	savings := f.Account(t, "Savings", 500)

	require.NoError(t, tdb.DB.Exec("UPDATE accounts SET current_balance = 0").Error)

	const rounds = 10
	var g errgroup.Group
	for i := 0; i < rounds; i++ {
		from, to := checking.ID, savings.ID
		if i%2 == 1 {
			from, to = to, from
		}
		g.Go(func() error {
			_, err := svc.PostTransaction(ctx, app.PostTransactionRequest{
				SourceAccountID: testutil.IDPtr(from),
				DestAccountID:   testutil.IDPtr(to),
				CategoryID:      f.Expense.ID,
				Amount:          "7.5",
			})
			return err
		})
		g.Go(func() error {
			_, err := svc.PostTransaction(ctx, app.PostTransactionRequest{
				DestAccountID: testutil.IDPtr(checking.ID),
				CategoryID:    f.Income.ID,
				Amount:        "1",
			})
			return err
		})
		g.Go(func() error {
			_, err := svc.RefreshBalances(ctx)
			return err
		})
	}
	require.NoError(t, g.Wait())

	drifts, err := svc.VerifyBalances(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts, "refresh must not overwrite concurrent postings")

	// transfers alternate direction and cancel out
	assert.True(t, decimal.NewFromInt(500+rounds).Equal(f.CachedBalance(t, checking.ID)), "checking %s", f.CachedBalance(t, checking.ID))
	assert.True(t, decimal.NewFromInt(500).Equal(f.CachedBalance(t, savings.ID)), "savings %s", f.CachedBalance(t, savings.ID))
}

func TestLedger_SingleBaseCurrencyIndex(t *testing.T) {
	tdb := NewTestDB(t)
	f := testutil.SeedLedgerFixture(t, tdb.DB)
	ctx := context.Background()

	eur, err := ledger.NewCurrency("EUR", "Euro", "€", decimal.RequireFromString("0.92"))
	require.NoError(t, err)
	eur.MarkBase()

	err = f.Repos.Currencies.Create(ctx, eur)
	require.Error(t, err, "the partial unique index allows a single base currency")

	md := app.NewMasterDataService(f.UoW, f.Repos, nil)
	created, err := md.CreateCurrency(f.Context(), app.CreateCurrencyRequest{
		Code: "EUR", Name: "Euro", Symbol: "€", ExchangeRate: decimal.RequireFromString("0.92"),
	})
	require.NoError(t, err)

	_, err = md.SetBaseCurrency(f.Context(), created.ID)
	require.NoError(t, err)

	var bases int64
	require.NoError(t, tdb.DB.Table("currencies").Where("is_base").Count(&bases).Error)
	assert.EqualValues(t, 1, bases)
}
