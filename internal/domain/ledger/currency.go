package ledger

import (
	"regexp"
	"strings"

	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3,5}$`)

// Currency is a unit of account. Exchange rates are relative to the single
// base currency and are stored only; no conversion is performed.
type Currency struct {
	shared.BaseEntity
	Code         string
	Name         string
	Symbol       string
	ExchangeRate decimal.Decimal
	IsBase       bool
	IsActive     bool
}

// NewCurrency creates a new active, non-base currency. A zero rate defaults to 1.
func NewCurrency(code, name, symbol string, rate decimal.Decimal) (*Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currencyCodePattern.MatchString(code) {
		return nil, shared.NewValidationError("INVALID_CURRENCY_CODE", "Currency code must be 3 to 5 letters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "Currency name cannot be empty")
	}
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	if rate.IsNegative() {
		return nil, shared.NewValidationError("INVALID_EXCHANGE_RATE", "Exchange rate must be positive")
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		symbol = code
	}

	return &Currency{
		BaseEntity:   shared.NewBaseEntity(),
		Code:         code,
		Name:         name,
		Symbol:       symbol,
		ExchangeRate: rate,
		IsActive:     true,
	}, nil
}

// MarkBase flags the currency as the base currency. The base rate is always 1.
func (c *Currency) MarkBase() {
	c.IsBase = true
	c.ExchangeRate = decimal.NewFromInt(1)
	c.IsActive = true
	c.Touch()
}
