package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryTotal is the summed amount of one category over a period
type CategoryTotal struct {
	CategoryID   uuid.UUID
	CategoryName string
	CategoryType CategoryType
	Total        decimal.Decimal
}

// IncomeExpenseReport groups category totals into income (credit) and expenses (debit)
type IncomeExpenseReport struct {
	From          time.Time
	To            time.Time
	Income        []CategoryTotal
	Expenses      []CategoryTotal
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
}

// Net returns income minus expenses
func (r IncomeExpenseReport) Net() decimal.Decimal {
	return r.TotalIncome.Sub(r.TotalExpenses)
}

// NewIncomeExpenseReport splits rows by category type and totals them
func NewIncomeExpenseReport(from, to time.Time, rows []CategoryTotal) IncomeExpenseReport {
	report := IncomeExpenseReport{
		From:          from,
		To:            to,
		Income:        []CategoryTotal{},
		Expenses:      []CategoryTotal{},
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for _, row := range rows {
		if row.CategoryType == CategoryTypeCredit {
			report.Income = append(report.Income, row)
			report.TotalIncome = report.TotalIncome.Add(row.Total)
		} else {
			report.Expenses = append(report.Expenses, row)
			report.TotalExpenses = report.TotalExpenses.Add(row.Total)
		}
	}
	return report
}

// CashFlowDay is the inflow (credit categories) and outflow (debit categories) of one day
type CashFlowDay struct {
	Date    time.Time
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
}

// Net returns inflow minus outflow
func (d CashFlowDay) Net() decimal.Decimal {
	return d.Inflow.Sub(d.Outflow)
}

// DashboardStats are the headline figures of the dashboard
type DashboardStats struct {
	TotalBalance       decimal.Decimal
	MonthIncome        decimal.Decimal
	MonthExpenses      decimal.Decimal
	RecentTransactions int64
	GeneratedAt        time.Time
}

// MonthBounds returns the first and last calendar day of t's month
func MonthBounds(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}
