package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type categoryTotalRow struct {
	CategoryID   uuid.UUID
	CategoryName string
	CategoryType string
	Total        decimal.Decimal
}

type cashFlowRow struct {
	Date    time.Time
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
}

type sumRow struct {
	Total decimal.Decimal
}

// GormReportRepository implements ledger.ReportRepository with aggregate SQL
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// CategoryTotals sums transaction amounts per category between from and to, inclusive
func (r *GormReportRepository) CategoryTotals(ctx context.Context, from, to time.Time) ([]ledger.CategoryTotal, error) {
	var rows []categoryTotalRow
	err := r.db.WithContext(ctx).
		Table("transactions AS t").
		Select("c.id AS category_id, c.name AS category_name, c.category_type AS category_type, SUM(t.amount) AS total").
		Joins("JOIN categories c ON c.id = t.category_id").
		Where("t.transaction_date BETWEEN ? AND ?", ledger.DateOnly(from), ledger.DateOnly(to)).
		Group("c.id, c.name, c.category_type").
		Order("total DESC, c.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError("category totals", err, nil)
	}
	totals := make([]ledger.CategoryTotal, len(rows))
	for i, row := range rows {
		totals[i] = ledger.CategoryTotal{
			CategoryID:   row.CategoryID,
			CategoryName: row.CategoryName,
			CategoryType: ledger.CategoryType(row.CategoryType),
			Total:        row.Total,
		}
	}
	return totals, nil
}

// CashFlow returns per-day inflow and outflow between from and to, inclusive
func (r *GormReportRepository) CashFlow(ctx context.Context, from, to time.Time) ([]ledger.CashFlowDay, error) {
	var rows []cashFlowRow
	err := r.db.WithContext(ctx).
		Table("transactions AS t").
		Select(`t.transaction_date AS date,
			COALESCE(SUM(CASE WHEN c.category_type = ? THEN t.amount ELSE 0 END), 0) AS inflow,
			COALESCE(SUM(CASE WHEN c.category_type = ? THEN t.amount ELSE 0 END), 0) AS outflow`,
			string(ledger.CategoryTypeCredit), string(ledger.CategoryTypeDebit)).
		Joins("JOIN categories c ON c.id = t.category_id").
		Where("t.transaction_date BETWEEN ? AND ?", ledger.DateOnly(from), ledger.DateOnly(to)).
		Group("t.transaction_date").
		Order("t.transaction_date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError("cash flow", err, nil)
	}
	days := make([]ledger.CashFlowDay, len(rows))
	for i, row := range rows {
		days[i] = ledger.CashFlowDay{
			Date:    ledger.DateOnly(row.Date),
			Inflow:  row.Inflow,
			Outflow: row.Outflow,
		}
	}
	return days, nil
}

// CategoryTotal sums one category's transactions, optionally bounded by dates
func (r *GormReportRepository) CategoryTotal(ctx context.Context, categoryID uuid.UUID, from, to *time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Table("transactions").
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("category_id = ?", categoryID)
	if from != nil {
		query = query.Where("transaction_date >= ?", ledger.DateOnly(*from))
	}
	if to != nil {
		query = query.Where("transaction_date <= ?", ledger.DateOnly(*to))
	}
	return r.sum(query, "category total")
}

// SumByCategoryType sums every transaction booked against categories of one type
func (r *GormReportRepository) SumByCategoryType(ctx context.Context, categoryType ledger.CategoryType, from, to time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Table("transactions AS t").
		Select("COALESCE(SUM(t.amount), 0) AS total").
		Joins("JOIN categories c ON c.id = t.category_id").
		Where("c.category_type = ?", string(categoryType)).
		Where("t.transaction_date BETWEEN ? AND ?", ledger.DateOnly(from), ledger.DateOnly(to))
	return r.sum(query, "sum by category type")
}

// CountTransactionsSince counts transactions dated on or after since
func (r *GormReportRepository) CountTransactionsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("transactions").
		Where("transaction_date >= ?", ledger.DateOnly(since)).
		Count(&count).Error
	return count, translateError("count recent transactions", err, nil)
}

// TotalActiveBalance sums the recomputed balances of every active account
func (r *GormReportRepository) TotalActiveBalance(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	asOf = ledger.DateOnly(asOf)
	query := r.db.WithContext(ctx).
		Table("accounts AS a").
		Select(`COALESCE(SUM(a.starting_balance
			+ COALESCE((SELECT SUM(t.amount) FROM transactions t WHERE t.dest_account_id = a.id AND t.transaction_date <= ?), 0)
			- COALESCE((SELECT SUM(t.amount) FROM transactions t WHERE t.source_account_id = a.id AND t.transaction_date <= ?), 0)), 0) AS total`,
			asOf, asOf).
		Where("a.is_active = ?", true)
	return r.sum(query, "total balance")
}

func (r *GormReportRepository) sum(query *gorm.DB, op string) (decimal.Decimal, error) {
	var row sumRow
	if err := query.Scan(&row).Error; err != nil {
		return decimal.Zero, translateError(op, err, nil)
	}
	return row.Total, nil
}

var _ ledger.ReportRepository = (*GormReportRepository)(nil)
