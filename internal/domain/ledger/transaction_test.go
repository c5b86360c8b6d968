package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func validParams() NewTransactionParams {
	return NewTransactionParams{
		Reference:       "TXN-20240105-AB12CD",
		SourceAccountID: ptr(uuid.New()),
		CategoryID:      uuid.New(),
		PostedBy:        uuid.New(),
		Date:            time.Date(2024, 1, 5, 15, 30, 0, 0, time.UTC),
		Amount:          decimal.NewFromInt(250),
		Description:     "Groceries",
	}
}

func TestValidateLegs(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("rejects missing legs", func(t *testing.T) {
		err := ValidateLegs(nil, nil)
		assert.ErrorIs(t, err, ErrNoAccountSpecified)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects same account", func(t *testing.T) {
		err := ValidateLegs(&a, ptr(a))
		assert.ErrorIs(t, err, ErrSameAccount)
	})

	t.Run("accepts single legs and distinct pairs", func(t *testing.T) {
		assert.NoError(t, ValidateLegs(&a, nil))
		assert.NoError(t, ValidateLegs(nil, &b))
		assert.NoError(t, ValidateLegs(&a, &b))
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "250.00", want: "250"},
		{raw: " 0 ", want: "0"},
		{raw: "1e3", want: "1000"},
		{raw: "-0.01", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "Infinity", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "99999999999999.9999", want: "99999999999999.9999"},
		{raw: "12.3400", want: "12.34"},
		{raw: "1e20", wantErr: true},
		{raw: "123456789012345678901", wantErr: true},
		{raw: "100000000000000", wantErr: true},
		{raw: "12.34567", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestNewTransaction(t *testing.T) {
	t.Run("normalizes date and starts unreconciled", func(t *testing.T) {
		txn, err := NewTransaction(validParams())
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), txn.TransactionDate)
		assert.False(t, txn.IsReconciled)
		assert.Nil(t, txn.ReconciledAt)
		assert.NotEqual(t, uuid.Nil, txn.ID)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		p := validParams()
		p.Amount = decimal.NewFromInt(-1)
		_, err := NewTransaction(p)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects amount wider than the column", func(t *testing.T) {
		p := validParams()
		p.Amount = decimal.RequireFromString("0.00001")
		_, err := NewTransaction(p)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects overlong description", func(t *testing.T) {
		p := validParams()
		p.Description = string(make([]byte, MaxDescriptionLength+1))
		_, err := NewTransaction(p)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_DESCRIPTION", de.Code)
	})

	t.Run("zero amount is allowed", func(t *testing.T) {
		p := validParams()
		p.Amount = decimal.Zero
		_, err := NewTransaction(p)
		assert.NoError(t, err)
	})
}

func TestTransaction_BalanceEffects(t *testing.T) {
	src, dst := uuid.New(), uuid.New()
	p := validParams()
	p.SourceAccountID = &src
	p.DestAccountID = &dst
	txn, err := NewTransaction(p)
	require.NoError(t, err)

	effects := txn.BalanceEffects()
	require.Len(t, effects, 2)
	assert.Equal(t, src, effects[0].AccountID)
	assert.True(t, effects[0].Delta.Equal(decimal.NewFromInt(-250)))
	assert.Equal(t, dst, effects[1].AccountID)
	assert.True(t, effects[1].Delta.Equal(decimal.NewFromInt(250)))

	reversal := txn.ReversalEffects()
	assert.True(t, reversal[0].Delta.Equal(decimal.NewFromInt(250)))
	assert.True(t, reversal[1].Delta.Equal(decimal.NewFromInt(-250)))

	assert.True(t, txn.Touches(src))
	assert.True(t, txn.Touches(dst))
	assert.False(t, txn.Touches(uuid.New()))
	assert.Equal(t, []uuid.UUID{src, dst}, txn.AccountIDs())
}

func TestTransaction_ToggleReconciliation(t *testing.T) {
	txn, err := NewTransaction(validParams())
	require.NoError(t, err)
	at := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	txn.ToggleReconciliation(at)
	assert.True(t, txn.IsReconciled)
	require.NotNil(t, txn.ReconciledAt)
	assert.Equal(t, at, *txn.ReconciledAt)

	txn.ToggleReconciliation(at.Add(time.Hour))
	assert.False(t, txn.IsReconciled)
	assert.Nil(t, txn.ReconciledAt)
}

func TestTransaction_Snapshot(t *testing.T) {
	txn, err := NewTransaction(validParams())
	require.NoError(t, err)

	snap := txn.Snapshot()
	assert.Equal(t, "2024-01-05", snap.TransactionDate)
	assert.Equal(t, "250.00", snap.Amount)
	assert.Nil(t, snap.DestAccountID)
	require.NotNil(t, snap.SourceAccountID)
	assert.Equal(t, txn.SourceAccountID.String(), *snap.SourceAccountID)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("31/03/2024")
	assert.ErrorIs(t, err, shared.ErrValidation)
}
