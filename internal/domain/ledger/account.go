package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AccountType represents the kind of account
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeOther      AccountType = "other"
)

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// IsValid returns true if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCreditCard,
		AccountTypeCash, AccountTypeInvestment, AccountTypeOther:
		return true
	}
	return false
}

// Account holds money owned by an account holder in a single currency.
// CurrentBalance is a cache of the recomputed balance; the transaction history
// is authoritative.
type Account struct {
	shared.BaseEntity
	Name            string
	Number          string
	Type            AccountType
	HolderID        uuid.UUID
	CurrencyID      uuid.UUID
	BankName        string
	Details         string
	CreditLimit     *decimal.Decimal
	StartingBalance decimal.Decimal
	CurrentBalance  decimal.Decimal
	IsActive        bool
	OpenedOn        time.Time
}

// NewAccount creates a new active account whose cached balance starts at the starting balance
func NewAccount(
	name string,
	accountType AccountType,
	holderID uuid.UUID,
	currencyID uuid.UUID,
	startingBalance decimal.Decimal,
	openedOn time.Time,
) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "Account name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("INVALID_NAME", "Account name cannot exceed 100 characters")
	}
	if accountType == "" {
		accountType = AccountTypeChecking
	}
	if !accountType.IsValid() {
		return nil, shared.NewValidationError("INVALID_ACCOUNT_TYPE", "Invalid account type")
	}
	if holderID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_HOLDER", "Account holder is required")
	}
	if currencyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CURRENCY", "Currency is required")
	}
	if openedOn.IsZero() {
		openedOn = time.Now()
	}

	return &Account{
		BaseEntity:      shared.NewBaseEntity(),
		Name:            name,
		Type:            accountType,
		HolderID:        holderID,
		CurrencyID:      currencyID,
		StartingBalance: startingBalance,
		CurrentBalance:  startingBalance,
		IsActive:        true,
		OpenedOn:        DateOnly(openedOn),
	}, nil
}

// WithNumber sets the external account number
func (a *Account) WithNumber(number string) *Account {
	a.Number = strings.TrimSpace(number)
	return a
}

// WithBankName sets the bank name
func (a *Account) WithBankName(bank string) *Account {
	a.BankName = strings.TrimSpace(bank)
	return a
}

// WithDetails sets free-form details
func (a *Account) WithDetails(details string) *Account {
	a.Details = details
	return a
}

// WithCreditLimit sets the credit limit of a credit account
func (a *Account) WithCreditLimit(limit decimal.Decimal) *Account {
	a.CreditLimit = &limit
	return a
}

// Activate marks the account as active
func (a *Account) Activate() {
	a.IsActive = true
	a.Touch()
}

// Deactivate hides the account from active listings without deleting history
func (a *Account) Deactivate() {
	a.IsActive = false
	a.Touch()
}

// Balance is a recomputed account balance at a point in time
type Balance struct {
	AccountID       uuid.UUID
	StartingBalance decimal.Decimal
	Inflow          decimal.Decimal
	Outflow         decimal.Decimal
	CachedBalance   decimal.Decimal
	AsOf            time.Time
}

// Amount returns starting balance plus inflow minus outflow
func (b Balance) Amount() decimal.Decimal {
	return b.StartingBalance.Add(b.Inflow).Sub(b.Outflow)
}

// Drift returns the difference between the cached column and the recomputed amount
func (b Balance) Drift() decimal.Decimal {
	return b.CachedBalance.Sub(b.Amount())
}

// IsStale reports whether the cached column disagrees with the recomputation
func (b Balance) IsStale() bool {
	return !b.Drift().IsZero()
}

// AccountFilter narrows account listings
type AccountFilter struct {
	ActiveOnly bool
	HolderID   *uuid.UUID
	CurrencyID *uuid.UUID
	Type       *AccountType
}
