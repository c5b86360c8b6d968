package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	app "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMasterDataService(f *testutil.LedgerFixture) *app.MasterDataService {
	return app.NewMasterDataService(f.UoW, f.Repos, zap.NewNop())
}

func TestCreateAccount(t *testing.T) {
	f := testutil.NewLedgerFixture(t)
	svc := newMasterDataService(f)
	ctx := f.Context()

	t.Run("creates and lists with balance", func(t *testing.T) {
		limit := decimal.NewFromInt(5000)
		created, err := svc.CreateAccount(ctx, app.CreateAccountRequest{
			Name:            "Visa",
			Type:            "credit_card",
			HolderID:        f.Holder.ID,
			CurrencyID:      f.Currency.ID,
			CreditLimit:     &limit,
			StartingBalance: decimal.NewFromInt(-120),
			OpenedOn:        "2024-02-01",
		})
		require.NoError(t, err)
		assert.Equal(t, "credit_card", created.Type)
		assert.True(t, created.IsActive)
		assert.Equal(t, "2024-02-01", created.OpenedOn)

		list, err := svc.ListAccounts(ctx, ledger.AccountFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, decimal.NewFromInt(-120).Equal(list[0].Balance))
	})

	t.Run("unknown holder", func(t *testing.T) {
		_, err := svc.CreateAccount(ctx, app.CreateAccountRequest{
			Name: "Orphan", HolderID: uuid.New(), CurrencyID: f.Currency.ID,
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := svc.CreateAccount(ctx, app.CreateAccountRequest{
			Name: "Orphan", HolderID: f.Holder.ID, CurrencyID: uuid.New(),
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("requires actor", func(t *testing.T) {
		_, err := svc.CreateAccount(context.Background(), app.CreateAccountRequest{
			Name: "Anon", HolderID: f.Holder.ID, CurrencyID: f.Currency.ID,
		})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}

func TestSetAccountActive(t *testing.T) {
	f := testutil.NewLedgerFixture(t)
	svc := newMasterDataService(f)
	ctx := f.Context()
	a := f.Account(t, "Checking", 0)

	resp, err := svc.SetAccountActive(ctx, a.ID, false)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	active, err := svc.ListAccounts(ctx, ledger.AccountFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	resp, err = svc.SetAccountActive(ctx, a.ID, true)
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
}

func TestDeleteGuards(t *testing.T) {
	f := testutil.NewLedgerFixture(t)
	svc := newMasterDataService(f)
	ledgerSvc := newLedgerService(f, nil, nil)
	ctx := f.Context()
	a := f.Account(t, "Checking", 0)

	post(t, ledgerSvc, ctx, app.PostTransactionRequest{
		DestAccountID: testutil.IDPtr(a.ID), CategoryID: f.Income.ID, Amount: "10",
	})

	t.Run("account with transactions", func(t *testing.T) {
		err := svc.DeleteAccount(ctx, a.ID)
		assert.ErrorIs(t, err, ledger.ErrAccountInUse)
		assert.ErrorIs(t, err, shared.ErrConstraint)

		_, err = svc.GetAccount(ctx, a.ID)
		assert.NoError(t, err)
	})

	t.Run("category with transactions", func(t *testing.T) {
		err := svc.DeleteCategory(ctx, f.Income.ID)
		assert.ErrorIs(t, err, ledger.ErrCategoryInUse)
	})

	t.Run("holder with accounts", func(t *testing.T) {
		err := svc.DeleteHolder(ctx, f.Holder.ID)
		assert.ErrorIs(t, err, ledger.ErrHolderInUse)
	})

	t.Run("base currency", func(t *testing.T) {
		err := svc.DeleteCurrency(ctx, f.Currency.ID)
		assert.ErrorIs(t, err, ledger.ErrBaseCurrencyInUse)
	})

	t.Run("category with subcategories", func(t *testing.T) {
		parent, err := svc.CreateCategory(ctx, app.CreateCategoryRequest{Name: "Housing", Type: "debit"})
		require.NoError(t, err)
		child, err := svc.CreateCategory(ctx, app.CreateCategoryRequest{Name: "Rent", Type: "debit", ParentID: &parent.ID})
		require.NoError(t, err)
		assert.Equal(t, parent.ID, *child.ParentID)

		assert.ErrorIs(t, svc.DeleteCategory(ctx, parent.ID), ledger.ErrCategoryInUse)
		require.NoError(t, svc.DeleteCategory(ctx, child.ID))
		require.NoError(t, svc.DeleteCategory(ctx, parent.ID))
	})
}

func TestDeleteUnusedMasterData(t *testing.T) {
	f := testutil.NewLedgerFixture(t)
	svc := newMasterDataService(f)
	ctx := f.Context()

	holder, err := svc.CreateHolder(ctx, app.CreateHolderRequest{Name: "Acme LLC", Type: "business", Email: "books@acme.test"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteHolder(ctx, holder.ID))

	holders, err := svc.ListHolders(ctx)
	require.NoError(t, err)
	assert.Len(t, holders, 1)

	a := f.Account(t, "Unused", 0)
	require.NoError(t, svc.DeleteAccount(ctx, a.ID))
	_, err = svc.GetAccount(ctx, a.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, uuid.New()), shared.ErrNotFound)
}

func TestCurrencies_SingleBase(t *testing.T) {
	f := testutil.NewLedgerFixture(t)
	svc := newMasterDataService(f)
	ctx := f.Context()

	eur, err := svc.CreateCurrency(ctx, app.CreateCurrencyRequest{
		Code: "EUR", Name: "Euro", Symbol: "€", ExchangeRate: decimal.RequireFromString("0.92"), IsBase: true,
	})
	require.NoError(t, err)
	assert.True(t, eur.IsBase)

	assertSingleBase := func(t *testing.T, want string) {
		t.Helper()
		currencies, err := svc.ListCurrencies(ctx, false)
		require.NoError(t, err)
		var bases []string
		for _, c := range currencies {
			if c.IsBase {
				bases = append(bases, c.Code)
			}
		}
		assert.Equal(t, []string{want}, bases)
	}
	assertSingleBase(t, "EUR")

	usd, err := svc.SetBaseCurrency(ctx, f.Currency.ID)
	require.NoError(t, err)
	assert.True(t, usd.IsBase)
	assertSingleBase(t, "USD")

	// already base is a no-op
	_, err = svc.SetBaseCurrency(ctx, f.Currency.ID)
	require.NoError(t, err)
	assertSingleBase(t, "USD")

	require.NoError(t, svc.DeleteCurrency(ctx, eur.ID))
	assertSingleBase(t, "USD")

	_, err = svc.SetBaseCurrency(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCategories_ListAndStatus(t *testing.T) {
	f := testutil.NewLedgerFixture(t)
	svc := newMasterDataService(f)
	ctx := f.Context()

	resp, err := svc.SetCategoryActive(ctx, f.Expense.ID, false)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	active, err := svc.ListCategories(ctx, app.CategoryListQuery{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, f.Income.ID, active[0].ID)

	debits, err := svc.ListCategories(ctx, app.CategoryListQuery{Type: "debit"})
	require.NoError(t, err)
	require.Len(t, debits, 1)
	assert.Equal(t, "Groceries", debits[0].Name)
}
