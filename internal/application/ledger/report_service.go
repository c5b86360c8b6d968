package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// recentWindow is how far back the dashboard counts recent transactions
const recentWindow = 30 * 24 * time.Hour

// ReportService runs read-only aggregate reports
type ReportService struct {
	reports ledger.ReportRepository
	audit   ledger.AuditRepository
	now     func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(reports ledger.ReportRepository, audit ledger.AuditRepository) *ReportService {
	return &ReportService{reports: reports, audit: audit, now: time.Now}
}

// resolveRange parses an inclusive date range. Missing bounds default to the current month.
func (s *ReportService) resolveRange(q DateRangeQuery) (time.Time, time.Time, error) {
	from, to := ledger.MonthBounds(s.now())
	var err error
	if q.DateFrom != "" {
		if from, err = ledger.ParseDate(q.DateFrom); err != nil {
			return from, to, err
		}
	}
	if q.DateTo != "" {
		if to, err = ledger.ParseDate(q.DateTo); err != nil {
			return from, to, err
		}
	}
	if to.Before(from) {
		return from, to, shared.NewValidationError("INVALID_DATE_RANGE", "date_from must not be after date_to")
	}
	return from, to, nil
}

// IncomeExpense totals credit and debit categories over a date range
func (s *ReportService) IncomeExpense(ctx context.Context, q DateRangeQuery) (*IncomeExpenseResponse, error) {
	from, to, err := s.resolveRange(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.reports.CategoryTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	resp := ToIncomeExpenseResponse(ledger.NewIncomeExpenseReport(from, to, rows))
	return &resp, nil
}

// CashFlow returns daily inflow and outflow over a date range
func (s *ReportService) CashFlow(ctx context.Context, q DateRangeQuery) ([]CashFlowDayResponse, error) {
	from, to, err := s.resolveRange(q)
	if err != nil {
		return nil, err
	}
	days, err := s.reports.CashFlow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]CashFlowDayResponse, len(days))
	for i, d := range days {
		out[i] = CashFlowDayResponse{
			Date:    d.Date.Format(ledger.DateLayout),
			Inflow:  d.Inflow,
			Outflow: d.Outflow,
			Net:     d.Net(),
		}
	}
	return out, nil
}

// CategoryTotal sums one category. Either bound may be omitted.
func (s *ReportService) CategoryTotal(ctx context.Context, categoryID uuid.UUID, q DateRangeQuery) (*CategoryTotalResponse, error) {
	resp := &CategoryTotalResponse{CategoryID: categoryID, DateFrom: q.DateFrom, DateTo: q.DateTo}
	var from, to *time.Time
	if q.DateFrom != "" {
		d, err := ledger.ParseDate(q.DateFrom)
		if err != nil {
			return nil, err
		}
		from = &d
	}
	if q.DateTo != "" {
		d, err := ledger.ParseDate(q.DateTo)
		if err != nil {
			return nil, err
		}
		to = &d
	}
	total, err := s.reports.CategoryTotal(ctx, categoryID, from, to)
	if err != nil {
		return nil, err
	}
	resp.Total = total
	return resp, nil
}

// Dashboard runs the four headline aggregates concurrently
func (s *ReportService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "dashboard")
	defer span.End()

	now := s.now()
	monthStart, monthEnd := ledger.MonthBounds(now)

	var (
		balance, income, expenses decimal.Decimal
		recent                    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		balance, err = s.reports.TotalActiveBalance(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		income, err = s.reports.SumByCategoryType(gctx, ledger.CategoryTypeCredit, monthStart, monthEnd)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.reports.SumByCategoryType(gctx, ledger.CategoryTypeDebit, monthStart, monthEnd)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.reports.CountTransactionsSince(gctx, ledger.DateOnly(now.Add(-recentWindow)))
		return err
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &DashboardResponse{
		TotalBalance:       balance,
		MonthIncome:        income,
		MonthExpenses:      expenses,
		RecentTransactions: recent,
		GeneratedAt:        now.UTC(),
	}, nil
}

// ListAudit returns a page of audit entries, newest first
func (s *ReportService) ListAudit(ctx context.Context, q AuditListQuery) (shared.Paginated[AuditEntryResponse], error) {
	filter := ledger.AuditFilter{TableName: q.TableName, RecordID: q.RecordID}
	filter.PageRequest = shared.PageRequest{Page: q.Page, PageSize: q.PageSize}.Normalize()

	if q.UserID != "" {
		id, err := uuid.Parse(q.UserID)
		if err != nil {
			return shared.Paginated[AuditEntryResponse]{}, shared.ErrInvalidInput
		}
		filter.UserID = &id
	}
	if q.Action != "" {
		action := ledger.AuditAction(q.Action)
		filter.Action = &action
	}
	if q.DateFrom != "" {
		d, err := ledger.ParseDate(q.DateFrom)
		if err != nil {
			return shared.Paginated[AuditEntryResponse]{}, err
		}
		filter.From = &d
	}
	if q.DateTo != "" {
		d, err := ledger.ParseDate(q.DateTo)
		if err != nil {
			return shared.Paginated[AuditEntryResponse]{}, err
		}
		end := d.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &end
	}

	entries, total, err := s.audit.List(ctx, filter)
	if err != nil {
		return shared.Paginated[AuditEntryResponse]{}, err
	}
	items := make([]AuditEntryResponse, len(entries))
	for i := range entries {
		items[i] = ToAuditEntryResponse(&entries[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
