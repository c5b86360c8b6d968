package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
)

// ReportUseCase is the reporting surface the report handler depends on
type ReportUseCase interface {
	IncomeExpense(ctx context.Context, q ledgerapp.DateRangeQuery) (*ledgerapp.IncomeExpenseResponse, error)
	CashFlow(ctx context.Context, q ledgerapp.DateRangeQuery) ([]ledgerapp.CashFlowDayResponse, error)
	Dashboard(ctx context.Context) (*ledgerapp.DashboardResponse, error)
}

// ReportHandler handles report endpoints. Ranges default to the current month.
type ReportHandler struct {
	BaseHandler
	reportService ReportUseCase
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService ReportUseCase) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// IncomeExpense handles GET /reports/income-expense
//
// @Summary      Income and expense report
// @Description  Per-category totals of credit and debit categories over a date range
// @Tags         reports
// @Produce      json
// @Param        date_from query string false "Start date (YYYY-MM-DD)"
// @Param        date_to query string false "End date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=ledgerapp.IncomeExpenseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/income-expense [get]
func (h *ReportHandler) IncomeExpense(c *gin.Context) {
	var query ledgerapp.DateRangeQuery
	if !h.BindQuery(c, &query) {
		return
	}
	report, err := h.reportService.IncomeExpense(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// CashFlow handles GET /reports/cash-flow
//
// @Summary      Daily cash flow
// @Tags         reports
// @Produce      json
// @Param        date_from query string false "Start date (YYYY-MM-DD)"
// @Param        date_to query string false "End date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=[]ledgerapp.CashFlowDayResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/cash-flow [get]
func (h *ReportHandler) CashFlow(c *gin.Context) {
	var query ledgerapp.DateRangeQuery
	if !h.BindQuery(c, &query) {
		return
	}
	days, err := h.reportService.CashFlow(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, days)
}

// Dashboard handles GET /reports/dashboard
//
// @Summary      Dashboard summary
// @Tags         reports
// @Produce      json
// @Success      200 {object} dto.Response{data=ledgerapp.DashboardResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	stats, err := h.reportService.Dashboard(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
