package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// MaxDescriptionLength bounds the free-text description
const MaxDescriptionLength = 500

// Amounts are stored as DECIMAL(18,4)
const (
	AmountScale         = 4
	AmountIntegerDigits = 14
)

var amountCeiling = decimal.New(1, AmountIntegerDigits)

// FitsAmountColumn reports whether d keeps at most four decimal places and
// fourteen integer digits
func FitsAmountColumn(d decimal.Decimal) bool {
	if !d.Equal(d.Truncate(AmountScale)) {
		return false
	}
	return d.Abs().LessThan(amountCeiling)
}

// DateOnly truncates t to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, shared.NewValidationError("INVALID_DATE", "Date must use the YYYY-MM-DD format")
	}
	return t, nil
}

// ValidateLegs checks that at least one leg is present and that two legs differ
func ValidateLegs(source, dest *uuid.UUID) error {
	if source == nil && dest == nil {
		return ErrNoAccountSpecified
	}
	if source != nil && dest != nil && *source == *dest {
		return ErrSameAccount
	}
	return nil
}

// ParseAmount parses raw amount text. Only finite, non-negative decimals that
// fit the amount column are accepted.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.IsNegative() || !FitsAmountColumn(amount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// Transaction is a posted money movement with at most one source leg and at most
// one destination leg. The amount is never negative; direction comes from the legs.
type Transaction struct {
	shared.BaseEntity
	Reference       string
	SourceAccountID *uuid.UUID
	DestAccountID   *uuid.UUID
	CategoryID      uuid.UUID
	PostedBy        uuid.UUID
	TransactionDate time.Time
	Amount          decimal.Decimal
	Description     string
	Notes           string
	IsReconciled    bool
	ReconciledAt    *time.Time
}

// NewTransactionParams holds everything needed to build a transaction
type NewTransactionParams struct {
	Reference       string
	SourceAccountID *uuid.UUID
	DestAccountID   *uuid.UUID
	CategoryID      uuid.UUID
	PostedBy        uuid.UUID
	Date            time.Time
	Amount          decimal.Decimal
	Description     string
	Notes           string
}

// NewTransaction creates a new unreconciled transaction
func NewTransaction(p NewTransactionParams) (*Transaction, error) {
	if err := ValidateLegs(p.SourceAccountID, p.DestAccountID); err != nil {
		return nil, err
	}
	if p.CategoryID == uuid.Nil {
		return nil, ErrUnknownCategory
	}
	if p.Amount.IsNegative() || !FitsAmountColumn(p.Amount) {
		return nil, ErrInvalidAmount
	}
	if p.PostedBy == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_USER", "Posting user is required")
	}
	if p.Reference == "" {
		return nil, shared.NewValidationError("INVALID_REFERENCE", "Reference is required")
	}
	description := strings.TrimSpace(p.Description)
	if len(description) > MaxDescriptionLength {
		return nil, shared.NewValidationError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
	}
	date := p.Date
	if date.IsZero() {
		date = time.Now()
	}

	return &Transaction{
		BaseEntity:      shared.NewBaseEntity(),
		Reference:       p.Reference,
		SourceAccountID: p.SourceAccountID,
		DestAccountID:   p.DestAccountID,
		CategoryID:      p.CategoryID,
		PostedBy:        p.PostedBy,
		TransactionDate: DateOnly(date),
		Amount:          p.Amount,
		Description:     description,
		Notes:           p.Notes,
	}, nil
}

// BalanceEffect is the signed change a transaction applies to one account
type BalanceEffect struct {
	AccountID uuid.UUID
	Delta     decimal.Decimal
}

// BalanceEffects returns the per-account deltas of posting the transaction
func (t *Transaction) BalanceEffects() []BalanceEffect {
	effects := make([]BalanceEffect, 0, 2)
	if t.SourceAccountID != nil {
		effects = append(effects, BalanceEffect{AccountID: *t.SourceAccountID, Delta: t.Amount.Neg()})
	}
	if t.DestAccountID != nil {
		effects = append(effects, BalanceEffect{AccountID: *t.DestAccountID, Delta: t.Amount})
	}
	return effects
}

// ReversalEffects returns the deltas that undo BalanceEffects
func (t *Transaction) ReversalEffects() []BalanceEffect {
	effects := t.BalanceEffects()
	for i := range effects {
		effects[i].Delta = effects[i].Delta.Neg()
	}
	return effects
}

// AccountIDs returns the populated legs
func (t *Transaction) AccountIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	for _, e := range t.BalanceEffects() {
		ids = append(ids, e.AccountID)
	}
	return ids
}

// Touches reports whether accountID is one of the legs
func (t *Transaction) Touches(accountID uuid.UUID) bool {
	return (t.SourceAccountID != nil && *t.SourceAccountID == accountID) ||
		(t.DestAccountID != nil && *t.DestAccountID == accountID)
}

// ToggleReconciliation flips the reconciled flag. Reconciling stamps at,
// un-reconciling clears the stamp.
func (t *Transaction) ToggleReconciliation(at time.Time) {
	if t.IsReconciled {
		t.IsReconciled = false
		t.ReconciledAt = nil
	} else {
		stamp := at.UTC()
		t.IsReconciled = true
		t.ReconciledAt = &stamp
	}
	t.UpdatedAt = at.UTC()
}

// TransactionSnapshot is the audit representation of a transaction
type TransactionSnapshot struct {
	ID              string     `json:"id"`
	Reference       string     `json:"reference"`
	SourceAccountID *string    `json:"source_account_id"`
	DestAccountID   *string    `json:"dest_account_id"`
	CategoryID      string     `json:"category_id"`
	PostedBy        string     `json:"posted_by"`
	TransactionDate string     `json:"transaction_date"`
	Amount          string     `json:"amount"`
	Description     string     `json:"description"`
	Notes           string     `json:"notes,omitempty"`
	IsReconciled    bool       `json:"is_reconciled"`
	ReconciledAt    *time.Time `json:"reconciled_at"`
}

// Snapshot returns the audit representation of t
func (t *Transaction) Snapshot() TransactionSnapshot {
	return TransactionSnapshot{
		ID:              t.ID.String(),
		Reference:       t.Reference,
		SourceAccountID: uuidString(t.SourceAccountID),
		DestAccountID:   uuidString(t.DestAccountID),
		CategoryID:      t.CategoryID.String(),
		PostedBy:        t.PostedBy.String(),
		TransactionDate: t.TransactionDate.Format(DateLayout),
		Amount:          t.Amount.StringFixed(2),
		Description:     t.Description,
		Notes:           t.Notes,
		IsReconciled:    t.IsReconciled,
		ReconciledAt:    t.ReconciledAt,
	}
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// TransactionDetail is a transaction joined with the display names used by
// statements and exports
type TransactionDetail struct {
	Transaction
	CategoryName      string
	CategoryType      CategoryType
	SourceAccountName string
	DestAccountName   string
	PostedByName      string
}

// TransactionFilter narrows transaction listings. Dates are inclusive calendar days.
type TransactionFilter struct {
	DateFrom     *time.Time
	DateTo       *time.Time
	AccountID    *uuid.UUID
	CategoryID   *uuid.UUID
	IsReconciled *bool
	Search       string
	shared.PageRequest
}
