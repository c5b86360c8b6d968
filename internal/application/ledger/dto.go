package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Transaction DTOs
// =============================================================================

// PostTransactionRequest carries a new posting. Field checks run in the service
// so that validation errors keep their documented order.
type PostTransactionRequest struct {
	SourceAccountID *uuid.UUID `json:"source_account_id"`
	DestAccountID   *uuid.UUID `json:"dest_account_id"`
	CategoryID      uuid.UUID  `json:"category_id"`
	PostedBy        *uuid.UUID `json:"posted_by"` // defaults to the request actor
	Date            string     `json:"date"`      // YYYY-MM-DD, defaults to today
	Amount          AmountText `json:"amount"`
	Description     string     `json:"description"`
	Notes           string     `json:"notes"`
}

// AmountText is an amount as sent by the client. JSON numbers and strings are
// both accepted; anything else is kept verbatim so parsing reports INVALID_AMOUNT.
type AmountText string

func (a *AmountText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = AmountText(s)
		return nil
	}
	*a = AmountText(data)
	return nil
}

// PostTransactionResult identifies a posted transaction
type PostTransactionResult struct {
	ID        uuid.UUID `json:"id"`
	Reference string    `json:"reference"`
}

// TransactionListQuery holds the query-string filters of transaction listings and exports
type TransactionListQuery struct {
	DateFrom     string `form:"date_from"`
	DateTo       string `form:"date_to"`
	AccountID    string `form:"account_id" binding:"omitempty,uuid"`
	CategoryID   string `form:"category_id" binding:"omitempty,uuid"`
	IsReconciled *bool  `form:"is_reconciled"`
	Search       string `form:"search" binding:"max=100"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToFilter parses the query into a domain filter
func (q TransactionListQuery) ToFilter() (ledger.TransactionFilter, error) {
	filter := ledger.TransactionFilter{
		IsReconciled: q.IsReconciled,
		Search:       q.Search,
	}
	filter.Page = q.Page
	filter.PageSize = q.PageSize

	if q.DateFrom != "" {
		from, err := ledger.ParseDate(q.DateFrom)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &from
	}
	if q.DateTo != "" {
		to, err := ledger.ParseDate(q.DateTo)
		if err != nil {
			return filter, err
		}
		filter.DateTo = &to
	}
	if q.AccountID != "" {
		id, err := uuid.Parse(q.AccountID)
		if err != nil {
			return filter, ledger.ErrAccountNotFound
		}
		filter.AccountID = &id
	}
	if q.CategoryID != "" {
		id, err := uuid.Parse(q.CategoryID)
		if err != nil {
			return filter, ledger.ErrCategoryNotFound
		}
		filter.CategoryID = &id
	}
	return filter, nil
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                uuid.UUID       `json:"id"`
	Reference         string          `json:"reference"`
	SourceAccountID   *uuid.UUID      `json:"source_account_id"`
	SourceAccountName string          `json:"source_account_name,omitempty"`
	DestAccountID     *uuid.UUID      `json:"dest_account_id"`
	DestAccountName   string          `json:"dest_account_name,omitempty"`
	CategoryID        uuid.UUID       `json:"category_id"`
	CategoryName      string          `json:"category_name,omitempty"`
	CategoryType      string          `json:"category_type,omitempty"`
	PostedBy          uuid.UUID       `json:"posted_by"`
	PostedByName      string          `json:"posted_by_name,omitempty"`
	Date              string          `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	Notes             string          `json:"notes,omitempty"`
	IsReconciled      bool            `json:"is_reconciled"`
	ReconciledAt      *time.Time      `json:"reconciled_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToTransactionResponse converts a bare transaction
func ToTransactionResponse(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		Reference:       t.Reference,
		SourceAccountID: t.SourceAccountID,
		DestAccountID:   t.DestAccountID,
		CategoryID:      t.CategoryID,
		PostedBy:        t.PostedBy,
		Date:            t.TransactionDate.Format(ledger.DateLayout),
		Amount:          t.Amount,
		Description:     t.Description,
		Notes:           t.Notes,
		IsReconciled:    t.IsReconciled,
		ReconciledAt:    t.ReconciledAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// ToTransactionDetailResponse converts a transaction with display names
func ToTransactionDetailResponse(d *ledger.TransactionDetail) TransactionResponse {
	resp := ToTransactionResponse(&d.Transaction)
	resp.SourceAccountName = d.SourceAccountName
	resp.DestAccountName = d.DestAccountName
	resp.CategoryName = d.CategoryName
	resp.CategoryType = d.CategoryType.String()
	resp.PostedByName = d.PostedByName
	return resp
}

// =============================================================================
// Balance DTOs
// =============================================================================

// BalanceResponse is a recomputed account balance
type BalanceResponse struct {
	AccountID       uuid.UUID       `json:"account_id"`
	AsOf            string          `json:"as_of"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	Inflow          decimal.Decimal `json:"inflow"`
	Outflow         decimal.Decimal `json:"outflow"`
	Balance         decimal.Decimal `json:"balance"`
}

// ToBalanceResponse converts a domain balance
func ToBalanceResponse(b ledger.Balance) BalanceResponse {
	return BalanceResponse{
		AccountID:       b.AccountID,
		AsOf:            b.AsOf.Format(ledger.DateLayout),
		StartingBalance: b.StartingBalance,
		Inflow:          b.Inflow,
		Outflow:         b.Outflow,
		Balance:         b.Amount(),
	}
}

// BalanceDriftResponse describes an account whose cached balance is out of sync
type BalanceDriftResponse struct {
	AccountID uuid.UUID       `json:"account_id"`
	Cached    decimal.Decimal `json:"cached"`
	Computed  decimal.Decimal `json:"computed"`
	Drift     decimal.Decimal `json:"drift"`
}

func toDriftResponse(b ledger.Balance) BalanceDriftResponse {
	return BalanceDriftResponse{
		AccountID: b.AccountID,
		Cached:    b.CachedBalance,
		Computed:  b.Amount(),
		Drift:     b.Drift(),
	}
}

// =============================================================================
// Account DTOs
// =============================================================================

// CreateAccountRequest represents a request to create an account
type CreateAccountRequest struct {
	Name            string           `json:"name" binding:"required,min=1,max=100"`
	Number          string           `json:"number" binding:"max=50"`
	Type            string           `json:"type" binding:"omitempty,oneof=checking savings credit_card cash investment other"`
	HolderID        uuid.UUID        `json:"holder_id" binding:"required"`
	CurrencyID      uuid.UUID        `json:"currency_id" binding:"required"`
	BankName        string           `json:"bank_name" binding:"max=100"`
	Details         string           `json:"details"`
	CreditLimit     *decimal.Decimal `json:"credit_limit"`
	StartingBalance decimal.Decimal  `json:"starting_balance"`
	OpenedOn        string           `json:"opened_on"`
}

// SetStatusRequest activates or deactivates a record
type SetStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	Number          string           `json:"number,omitempty"`
	Type            string           `json:"type"`
	HolderID        uuid.UUID        `json:"holder_id"`
	CurrencyID      uuid.UUID        `json:"currency_id"`
	BankName        string           `json:"bank_name,omitempty"`
	Details         string           `json:"details,omitempty"`
	CreditLimit     *decimal.Decimal `json:"credit_limit"`
	StartingBalance decimal.Decimal  `json:"starting_balance"`
	CurrentBalance  decimal.Decimal  `json:"current_balance"`
	IsActive        bool             `json:"is_active"`
	OpenedOn        string           `json:"opened_on"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ToAccountResponse converts a domain account
func ToAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:              a.ID,
		Name:            a.Name,
		Number:          a.Number,
		Type:            a.Type.String(),
		HolderID:        a.HolderID,
		CurrencyID:      a.CurrencyID,
		BankName:        a.BankName,
		Details:         a.Details,
		CreditLimit:     a.CreditLimit,
		StartingBalance: a.StartingBalance,
		CurrentBalance:  a.CurrentBalance,
		IsActive:        a.IsActive,
		OpenedOn:        a.OpenedOn.Format(ledger.DateLayout),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// AccountWithBalanceResponse is an account listing row with its recomputed balance
type AccountWithBalanceResponse struct {
	AccountResponse
	Balance decimal.Decimal `json:"balance"`
}

// =============================================================================
// Category DTOs
// =============================================================================

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name          string           `json:"name" binding:"required,min=1,max=100"`
	Type          string           `json:"type" binding:"required,oneof=credit debit"`
	ParentID      *uuid.UUID       `json:"parent_id"`
	Icon          string           `json:"icon" binding:"max=50"`
	Color         string           `json:"color"`
	SortOrder     int              `json:"sort_order"`
	Budget        *decimal.Decimal `json:"budget"`
	TaxDeductible bool             `json:"tax_deductible"`
}

// CategoryListQuery filters category listings
type CategoryListQuery struct {
	Type       string `form:"type" binding:"omitempty,oneof=credit debit"`
	ActiveOnly bool   `form:"active_only"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Type          string           `json:"type"`
	ParentID      *uuid.UUID       `json:"parent_id"`
	Icon          string           `json:"icon,omitempty"`
	Color         string           `json:"color"`
	SortOrder     int              `json:"sort_order"`
	Budget        *decimal.Decimal `json:"budget"`
	TaxDeductible bool             `json:"tax_deductible"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ToCategoryResponse converts a domain category
func ToCategoryResponse(c *ledger.Category) CategoryResponse {
	return CategoryResponse{
		ID:            c.ID,
		Name:          c.Name,
		Type:          c.Type.String(),
		ParentID:      c.ParentID,
		Icon:          c.Icon,
		Color:         c.Color,
		SortOrder:     c.SortOrder,
		Budget:        c.Budget,
		TaxDeductible: c.TaxDeductible,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
	}
}

// CategoryTotalResponse is the summed amount of one category
type CategoryTotalResponse struct {
	CategoryID uuid.UUID       `json:"category_id"`
	DateFrom   string          `json:"date_from,omitempty"`
	DateTo     string          `json:"date_to,omitempty"`
	Total      decimal.Decimal `json:"total"`
}

// =============================================================================
// Holder and currency DTOs
// =============================================================================

// CreateHolderRequest represents a request to create an account holder
type CreateHolderRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Type    string `json:"type" binding:"omitempty,oneof=personal joint business other"`
	TaxID   string `json:"tax_id" binding:"max=50"`
	Address string `json:"address" binding:"max=500"`
	Phone   string `json:"phone" binding:"max=50"`
	Email   string `json:"email" binding:"omitempty,email,max=100"`
	Notes   string `json:"notes"`
}

// HolderResponse represents an account holder in API responses
type HolderResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	TaxID     string    `json:"tax_id,omitempty"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToHolderResponse converts a domain holder
func ToHolderResponse(h *ledger.AccountHolder) HolderResponse {
	return HolderResponse{
		ID:        h.ID,
		Name:      h.Name,
		Type:      string(h.Type),
		TaxID:     h.TaxID,
		Address:   h.Address,
		Phone:     h.Phone,
		Email:     h.Email,
		Notes:     h.Notes,
		CreatedAt: h.CreatedAt,
	}
}

// CreateCurrencyRequest represents a request to create a currency
type CreateCurrencyRequest struct {
	Code         string          `json:"code" binding:"required,min=3,max=5"`
	Name         string          `json:"name" binding:"required,min=1,max=50"`
	Symbol       string          `json:"symbol" binding:"max=10"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	IsBase       bool            `json:"is_base"`
}

// CurrencyResponse represents a currency in API responses
type CurrencyResponse struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	IsBase       bool            `json:"is_base"`
	IsActive     bool            `json:"is_active"`
}

// ToCurrencyResponse converts a domain currency
func ToCurrencyResponse(c *ledger.Currency) CurrencyResponse {
	return CurrencyResponse{
		ID:           c.ID,
		Code:         c.Code,
		Name:         c.Name,
		Symbol:       c.Symbol,
		ExchangeRate: c.ExchangeRate,
		IsBase:       c.IsBase,
		IsActive:     c.IsActive,
	}
}

// =============================================================================
// Report and audit DTOs
// =============================================================================

// DateRangeQuery is an inclusive calendar date range
type DateRangeQuery struct {
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

// CategoryTotalRow is one line of the income/expense report
type CategoryTotalRow struct {
	CategoryID   uuid.UUID       `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
}

// IncomeExpenseResponse is the income/expense report
type IncomeExpenseResponse struct {
	DateFrom      string             `json:"date_from"`
	DateTo        string             `json:"date_to"`
	Income        []CategoryTotalRow `json:"income"`
	Expenses      []CategoryTotalRow `json:"expenses"`
	TotalIncome   decimal.Decimal    `json:"total_income"`
	TotalExpenses decimal.Decimal    `json:"total_expenses"`
	Net           decimal.Decimal    `json:"net"`
}

func toCategoryRows(rows []ledger.CategoryTotal) []CategoryTotalRow {
	out := make([]CategoryTotalRow, len(rows))
	for i, r := range rows {
		out[i] = CategoryTotalRow{CategoryID: r.CategoryID, CategoryName: r.CategoryName, Total: r.Total}
	}
	return out
}

// ToIncomeExpenseResponse converts a domain report
func ToIncomeExpenseResponse(r ledger.IncomeExpenseReport) IncomeExpenseResponse {
	return IncomeExpenseResponse{
		DateFrom:      r.From.Format(ledger.DateLayout),
		DateTo:        r.To.Format(ledger.DateLayout),
		Income:        toCategoryRows(r.Income),
		Expenses:      toCategoryRows(r.Expenses),
		TotalIncome:   r.TotalIncome,
		TotalExpenses: r.TotalExpenses,
		Net:           r.Net(),
	}
}

// CashFlowDayResponse is one day of the cash flow report
type CashFlowDayResponse struct {
	Date    string          `json:"date"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Net     decimal.Decimal `json:"net"`
}

// DashboardResponse holds the dashboard headline figures
type DashboardResponse struct {
	TotalBalance       decimal.Decimal `json:"total_balance"`
	MonthIncome        decimal.Decimal `json:"month_income"`
	MonthExpenses      decimal.Decimal `json:"month_expenses"`
	RecentTransactions int64           `json:"recent_transactions"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// AuditListQuery filters the audit log
type AuditListQuery struct {
	UserID    string `form:"user_id" binding:"omitempty,uuid"`
	Action    string `form:"action"`
	TableName string `form:"table"`
	RecordID  string `form:"record_id"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// AuditEntryResponse represents an audit entry in API responses
type AuditEntryResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    *uuid.UUID      `json:"user_id"`
	Action    string          `json:"action"`
	TableName string          `json:"table,omitempty"`
	RecordID  string          `json:"record_id,omitempty"`
	OldValues json.RawMessage `json:"old_values,omitempty" swaggertype:"object"`
	NewValues json.RawMessage `json:"new_values,omitempty" swaggertype:"object"`
	IPAddress string          `json:"ip_address,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToAuditEntryResponse converts a domain audit entry
func ToAuditEntryResponse(e *ledger.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    string(e.Action),
		TableName: e.TableName,
		RecordID:  e.RecordID,
		OldValues: e.OldValues,
		NewValues: e.NewValues,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		CreatedAt: e.CreatedAt,
	}
}
