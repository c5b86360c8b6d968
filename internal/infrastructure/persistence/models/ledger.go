package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// CurrencyModel is the persistence model for the Currency domain entity.
type CurrencyModel struct {
	BaseModel
	Code         string          `gorm:"type:varchar(5);not null;uniqueIndex:idx_currencies_code"`
	Name         string          `gorm:"type:varchar(50);not null"`
	Symbol       string          `gorm:"type:varchar(10);not null"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(18,6);not null;default:1"`
	IsBase       bool            `gorm:"not null;default:false"`
	IsActive     bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CurrencyModel) TableName() string {
	return "currencies"
}

// ToDomain converts the persistence model to a domain Currency entity.
func (m *CurrencyModel) ToDomain() *ledger.Currency {
	return &ledger.Currency{
		BaseEntity:   m.BaseModel.entity(),
		Code:         m.Code,
		Name:         m.Name,
		Symbol:       m.Symbol,
		ExchangeRate: m.ExchangeRate,
		IsBase:       m.IsBase,
		IsActive:     m.IsActive,
	}
}

// CurrencyModelFromDomain creates a persistence model from a domain Currency entity.
func CurrencyModelFromDomain(c *ledger.Currency) *CurrencyModel {
	m := &CurrencyModel{
		Code:         c.Code,
		Name:         c.Name,
		Symbol:       c.Symbol,
		ExchangeRate: c.ExchangeRate,
		IsBase:       c.IsBase,
		IsActive:     c.IsActive,
	}
	m.BaseModel = baseModel(c.BaseEntity)
	return m
}

// AccountHolderModel is the persistence model for the AccountHolder domain entity.
type AccountHolderModel struct {
	BaseModel
	Name       string  `gorm:"type:varchar(100);not null"`
	HolderType string  `gorm:"column:holder_type;type:varchar(20);not null;default:'personal'"`
	TaxID      *string `gorm:"type:varchar(50)"`
	Email      *string `gorm:"type:varchar(100)"`
	Phone      *string `gorm:"type:varchar(30)"`
	Address    *string `gorm:"type:text"`
	Notes      *string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AccountHolderModel) TableName() string {
	return "account_holders"
}

// ToDomain converts the persistence model to a domain AccountHolder entity.
func (m *AccountHolderModel) ToDomain() *ledger.AccountHolder {
	return &ledger.AccountHolder{
		BaseEntity: m.BaseModel.entity(),
		Name:       m.Name,
		Type:       ledger.HolderType(m.HolderType),
		TaxID:      stringOrEmpty(m.TaxID),
		Email:      stringOrEmpty(m.Email),
		Phone:      stringOrEmpty(m.Phone),
		Address:    stringOrEmpty(m.Address),
		Notes:      stringOrEmpty(m.Notes),
	}
}

// AccountHolderModelFromDomain creates a persistence model from a domain AccountHolder entity.
func AccountHolderModelFromDomain(h *ledger.AccountHolder) *AccountHolderModel {
	m := &AccountHolderModel{
		Name:       h.Name,
		HolderType: string(h.Type),
		TaxID:      nullString(h.TaxID),
		Email:      nullString(h.Email),
		Phone:      nullString(h.Phone),
		Address:    nullString(h.Address),
		Notes:      nullString(h.Notes),
	}
	m.BaseModel = baseModel(h.BaseEntity)
	return m
}

// AccountModel is the persistence model for the Account domain entity.
type AccountModel struct {
	BaseModel
	Name            string           `gorm:"type:varchar(100);not null"`
	AccountNumber   *string          `gorm:"type:varchar(50)"`
	AccountType     string           `gorm:"type:varchar(20);not null;default:'checking'"`
	HolderID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_accounts_holder"`
	CurrencyID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_accounts_currency"`
	BankName        *string          `gorm:"type:varchar(100)"`
	Details         *string          `gorm:"type:text"`
	CreditLimit     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	StartingBalance decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	CurrentBalance  decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	IsActive        bool             `gorm:"not null;default:true"`
	OpenedOn        time.Time        `gorm:"type:date;not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account entity.
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		BaseEntity:      m.BaseModel.entity(),
		Name:            m.Name,
		Number:          stringOrEmpty(m.AccountNumber),
		Type:            ledger.AccountType(m.AccountType),
		HolderID:        m.HolderID,
		CurrencyID:      m.CurrencyID,
		BankName:        stringOrEmpty(m.BankName),
		Details:         stringOrEmpty(m.Details),
		CreditLimit:     m.CreditLimit,
		StartingBalance: m.StartingBalance,
		CurrentBalance:  m.CurrentBalance,
		IsActive:        m.IsActive,
		OpenedOn:        ledger.DateOnly(m.OpenedOn),
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account entity.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{
		Name:            a.Name,
		AccountNumber:   nullString(a.Number),
		AccountType:     string(a.Type),
		HolderID:        a.HolderID,
		CurrencyID:      a.CurrencyID,
		BankName:        nullString(a.BankName),
		Details:         nullString(a.Details),
		CreditLimit:     a.CreditLimit,
		StartingBalance: a.StartingBalance,
		CurrentBalance:  a.CurrentBalance,
		IsActive:        a.IsActive,
		OpenedOn:        a.OpenedOn,
	}
	m.BaseModel = baseModel(a.BaseEntity)
	return m
}

// CategoryModel is the persistence model for the Category domain entity.
type CategoryModel struct {
	BaseModel
	Name          string           `gorm:"type:varchar(100);not null"`
	CategoryType  string           `gorm:"type:varchar(10);not null;index:idx_categories_type"`
	ParentID      *uuid.UUID       `gorm:"type:uuid;index:idx_categories_parent"`
	Icon          *string          `gorm:"type:varchar(50)"`
	Color         string           `gorm:"type:varchar(7);not null;default:'#6c757d'"`
	SortOrder     int              `gorm:"not null;default:0"`
	Budget        *decimal.Decimal `gorm:"type:decimal(18,4)"`
	TaxDeductible bool             `gorm:"not null;default:false"`
	IsActive      bool             `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category entity.
func (m *CategoryModel) ToDomain() *ledger.Category {
	return &ledger.Category{
		BaseEntity:    m.BaseModel.entity(),
		Name:          m.Name,
		Type:          ledger.CategoryType(m.CategoryType),
		ParentID:      m.ParentID,
		Icon:          stringOrEmpty(m.Icon),
		Color:         m.Color,
		SortOrder:     m.SortOrder,
		Budget:        m.Budget,
		TaxDeductible: m.TaxDeductible,
		IsActive:      m.IsActive,
	}
}

// CategoryModelFromDomain creates a persistence model from a domain Category entity.
func CategoryModelFromDomain(c *ledger.Category) *CategoryModel {
	m := &CategoryModel{
		Name:          c.Name,
		CategoryType:  string(c.Type),
		ParentID:      c.ParentID,
		Icon:          nullString(c.Icon),
		Color:         c.Color,
		SortOrder:     c.SortOrder,
		Budget:        c.Budget,
		TaxDeductible: c.TaxDeductible,
		IsActive:      c.IsActive,
	}
	m.BaseModel = baseModel(c.BaseEntity)
	return m
}

// TransactionModel is the persistence model for the Transaction domain entity.
type TransactionModel struct {
	BaseModel
	Reference       string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_transactions_reference"`
	SourceAccountID *uuid.UUID      `gorm:"type:uuid;index:idx_transactions_source"`
	DestAccountID   *uuid.UUID      `gorm:"type:uuid;index:idx_transactions_dest"`
	CategoryID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_category"`
	PostedBy        uuid.UUID       `gorm:"type:uuid;not null"`
	TransactionDate time.Time       `gorm:"type:date;not null;index:idx_transactions_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Description     string          `gorm:"type:varchar(500);not null;default:''"`
	Notes           *string         `gorm:"type:text"`
	IsReconciled    bool            `gorm:"not null;default:false"`
	ReconciledAt    *time.Time
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction entity.
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	return &ledger.Transaction{
		BaseEntity:      m.BaseModel.entity(),
		Reference:       m.Reference,
		SourceAccountID: m.SourceAccountID,
		DestAccountID:   m.DestAccountID,
		CategoryID:      m.CategoryID,
		PostedBy:        m.PostedBy,
		TransactionDate: ledger.DateOnly(m.TransactionDate),
		Amount:          m.Amount,
		Description:     m.Description,
		Notes:           stringOrEmpty(m.Notes),
		IsReconciled:    m.IsReconciled,
		ReconciledAt:    m.ReconciledAt,
	}
}

// TransactionModelFromDomain creates a persistence model from a domain Transaction entity.
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{
		Reference:       t.Reference,
		SourceAccountID: t.SourceAccountID,
		DestAccountID:   t.DestAccountID,
		CategoryID:      t.CategoryID,
		PostedBy:        t.PostedBy,
		TransactionDate: ledger.DateOnly(t.TransactionDate),
		Amount:          t.Amount,
		Description:     t.Description,
		Notes:           nullString(t.Notes),
		IsReconciled:    t.IsReconciled,
		ReconciledAt:    t.ReconciledAt,
	}
	m.BaseModel = baseModel(t.BaseEntity)
	return m
}

// TransactionDetailRow is a transaction joined with category, account and user names
type TransactionDetailRow struct {
	TransactionModel
	CategoryName      string
	CategoryType      string
	SourceAccountName *string
	DestAccountName   *string
	PostedByName      *string
}

// ToDomain converts the joined row to a domain TransactionDetail
func (r *TransactionDetailRow) ToDomain() ledger.TransactionDetail {
	return ledger.TransactionDetail{
		Transaction:       *r.TransactionModel.ToDomain(),
		CategoryName:      r.CategoryName,
		CategoryType:      ledger.CategoryType(r.CategoryType),
		SourceAccountName: stringOrEmpty(r.SourceAccountName),
		DestAccountName:   stringOrEmpty(r.DestAccountName),
		PostedByName:      stringOrEmpty(r.PostedByName),
	}
}

// AuditLogModel is the persistence model for audit entries.
// Snapshots are JSON documents (jsonb in PostgreSQL).
type AuditLogModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    *uuid.UUID `gorm:"type:uuid;index:idx_audit_log_user"`
	Action    string     `gorm:"type:varchar(30);not null"`
	Table     string     `gorm:"column:table_name;type:varchar(50);not null"`
	RecordID  *string    `gorm:"type:varchar(64)"`
	OldValues *string    `gorm:"type:jsonb"`
	NewValues *string    `gorm:"type:jsonb"`
	IPAddress *string    `gorm:"type:varchar(45)"`
	UserAgent *string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time  `gorm:"not null;index:idx_audit_log_created"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_log"
}

// ToDomain converts the persistence model to a domain AuditEntry.
func (m *AuditLogModel) ToDomain() ledger.AuditEntry {
	return ledger.AuditEntry{
		ID:        m.ID,
		UserID:    m.UserID,
		Action:    ledger.AuditAction(m.Action),
		TableName: m.Table,
		RecordID:  stringOrEmpty(m.RecordID),
		OldValues: rawJSON(m.OldValues),
		NewValues: rawJSON(m.NewValues),
		IPAddress: stringOrEmpty(m.IPAddress),
		UserAgent: stringOrEmpty(m.UserAgent),
		CreatedAt: m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a persistence model from a domain AuditEntry.
func AuditLogModelFromDomain(e *ledger.AuditEntry) *AuditLogModel {
	return &AuditLogModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    string(e.Action),
		Table:     e.TableName,
		RecordID:  nullString(e.RecordID),
		OldValues: jsonString(e.OldValues),
		NewValues: jsonString(e.NewValues),
		IPAddress: nullString(e.IPAddress),
		UserAgent: nullString(e.UserAgent),
		CreatedAt: e.CreatedAt,
	}
}

func jsonString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

func rawJSON(s *string) json.RawMessage {
	if s == nil {
		return nil
	}
	return json.RawMessage(*s)
}
