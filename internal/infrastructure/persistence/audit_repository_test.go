package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormAuditRepository(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	repo := f.repos.Audit
	actor := f.user.Actor("10.0.0.1", "curl/8")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	recordID := uuid.NewString()
	create := ledger.NewAuditEntry(actor, ledger.AuditActionCreate, ledger.TableTransactions, recordID)
	create.CreatedAt = base
	_, err := create.WithAfter(map[string]string{"amount": "250.00"})
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, create))

	del := ledger.NewAuditEntry(actor, ledger.AuditActionDelete, ledger.TableTransactions, recordID)
	del.CreatedAt = base.Add(time.Hour)
	_, err = del.WithBefore(map[string]string{"amount": "250.00"})
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, del))

	system := ledger.NewAuditEntry(shared.SystemActor("ledgerctl"), ledger.AuditActionBackup, "", "")
	system.CreatedAt = base.Add(2 * time.Hour)
	require.NoError(t, repo.Append(ctx, system))

	t.Run("lists newest first", func(t *testing.T) {
		entries, total, err := repo.List(ctx, ledger.AuditFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, entries, 3)
		assert.Equal(t, ledger.AuditActionBackup, entries[0].Action)
		assert.Nil(t, entries[0].UserID)
		assert.Nil(t, entries[0].NewValues)

		assert.Equal(t, ledger.AuditActionDelete, entries[1].Action)
		assert.JSONEq(t, `{"amount":"250.00"}`, string(entries[1].OldValues))
		require.NotNil(t, entries[1].UserID)
		assert.Equal(t, f.user.ID, *entries[1].UserID)
		assert.Equal(t, "10.0.0.1", entries[1].IPAddress)
	})

	t.Run("filters by record and action", func(t *testing.T) {
		entries, total, err := repo.List(ctx, ledger.AuditFilter{RecordID: recordID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, entries, 2)

		action := ledger.AuditActionCreate
		entries, _, err = repo.List(ctx, ledger.AuditFilter{Action: &action, TableName: ledger.TableTransactions})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.JSONEq(t, `{"amount":"250.00"}`, string(entries[0].NewValues))
	})

	t.Run("paginates", func(t *testing.T) {
		entries, total, err := repo.List(ctx, ledger.AuditFilter{PageRequest: shared.PageRequest{Page: 2, PageSize: 2}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, entries, 1)
		assert.Equal(t, ledger.AuditActionCreate, entries[0].Action)
	})
}
