package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionRepository_SetReconciliation_SQL(t *testing.T) {
	db, mock := newMockGorm(t)
	repo := NewGormTransactionRepository(db)
	id := uuid.New()
	at := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE "transactions" SET "is_reconciled"=\$1,"reconciled_at"=\$2,"updated_at"=\$3 WHERE id = \$4 AND is_reconciled = \$5`).
		WithArgs(true, at, sqlmock.AnyArg(), id, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.SetReconciliation(context.Background(), id, false, true, &at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransactionRepository_StorageErrors(t *testing.T) {
	db, mock := newMockGorm(t)
	repo := NewGormTransactionRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "transactions"`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.CountByCategory(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrStorage)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGormTransactionRepository(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	checking := f.account(t, "Checking", 1000)
	savings := f.account(t, "Savings", 0)
	repo := f.repos.Transactions

	rent := f.post(t, idPtr(checking.ID), nil, f.expense, "2024-01-05", 250)
	pay := f.post(t, nil, idPtr(checking.ID), f.income, "2024-01-06", 100)
	move := f.post(t, idPtr(checking.ID), idPtr(savings.ID), f.expense, "2024-02-01", 50)

	t.Run("duplicate reference", func(t *testing.T) {
		dup, err := ledger.NewTransaction(ledger.NewTransactionParams{
			Reference:       rent.Reference,
			SourceAccountID: idPtr(checking.ID),
			CategoryID:      f.expense.ID,
			PostedBy:        f.user.ID,
			Date:            day("2024-01-05"),
			Amount:          decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, ledger.ErrDuplicateReference)
	})

	t.Run("find detail joins display names", func(t *testing.T) {
		detail, err := repo.FindDetail(ctx, move.ID)
		require.NoError(t, err)
		assert.Equal(t, move.Reference, detail.Reference)
		assert.Equal(t, "Groceries", detail.CategoryName)
		assert.Equal(t, ledger.CategoryTypeDebit, detail.CategoryType)
		assert.Equal(t, "Checking", detail.SourceAccountName)
		assert.Equal(t, "Savings", detail.DestAccountName)
		assert.Equal(t, "Alice Example", detail.PostedByName)
		assert.Equal(t, day("2024-02-01"), detail.TransactionDate)
		assert.True(t, detail.Amount.Equal(decimal.NewFromInt(50)))

		_, err = repo.FindDetail(ctx, uuid.New())
		assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
	})

	t.Run("list orders newest first", func(t *testing.T) {
		details, total, err := repo.ListDetails(ctx, ledger.TransactionFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, details, 3)
		assert.Equal(t, move.ID, details[0].ID)
		assert.Equal(t, pay.ID, details[1].ID)
		assert.Equal(t, rent.ID, details[2].ID)
	})

	t.Run("list filters", func(t *testing.T) {
		from, to := day("2024-01-01"), day("2024-01-31")
		details, total, err := repo.ListDetails(ctx, ledger.TransactionFilter{DateFrom: &from, DateTo: &to})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, details, 2)

		_, total, err = repo.ListDetails(ctx, ledger.TransactionFilter{AccountID: idPtr(savings.ID)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		_, total, err = repo.ListDetails(ctx, ledger.TransactionFilter{CategoryID: idPtr(f.income.ID)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		details, _, err = repo.ListDetails(ctx, ledger.TransactionFilter{Search: "SALARY"})
		require.NoError(t, err)
		require.Len(t, details, 1)
		assert.Equal(t, pay.ID, details[0].ID)
	})

	t.Run("list paginates", func(t *testing.T) {
		filter := ledger.TransactionFilter{PageRequest: shared.PageRequest{Page: 2, PageSize: 2}}
		details, total, err := repo.ListDetails(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, details, 1)
		assert.Equal(t, rent.ID, details[0].ID)
	})

	t.Run("conditional reconciliation", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Second)
		ok, err := repo.SetReconciliation(ctx, pay.ID, false, true, &at)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.SetReconciliation(ctx, pay.ID, false, true, &at)
		require.NoError(t, err)
		assert.False(t, ok, "stale expectation must not match")

		stored, err := repo.FindByID(ctx, pay.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsReconciled)
		require.NotNil(t, stored.ReconciledAt)

		reconciled := true
		_, total, err := repo.ListDetails(ctx, ledger.TransactionFilter{IsReconciled: &reconciled})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		ok, err = repo.SetReconciliation(ctx, pay.ID, true, false, nil)
		require.NoError(t, err)
		assert.True(t, ok)
		stored, err = repo.FindByID(ctx, pay.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsReconciled)
		assert.Nil(t, stored.ReconciledAt)
	})

	t.Run("counts and delete", func(t *testing.T) {
		n, err := repo.CountByAccount(ctx, checking.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		n, err = repo.CountByCategory(ctx, f.expense.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		require.NoError(t, repo.Delete(ctx, rent.ID))
		assert.ErrorIs(t, repo.Delete(ctx, rent.ID), ledger.ErrTransactionNotFound)
		_, err = repo.FindByID(ctx, rent.ID)
		assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
	})
}
