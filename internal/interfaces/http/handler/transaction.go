package handler

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/export"
	"github.com/ledgerbook/backend/internal/infrastructure/telemetry"
)

// TransactionUseCase is the ledger surface the transaction handler depends on
type TransactionUseCase interface {
	PostTransaction(ctx context.Context, req ledgerapp.PostTransactionRequest) (*ledgerapp.PostTransactionResult, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	ToggleReconciliation(ctx context.Context, id uuid.UUID) (*ledgerapp.TransactionResponse, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*ledgerapp.TransactionResponse, error)
	ListTransactions(ctx context.Context, filter ledger.TransactionFilter) (shared.Paginated[ledgerapp.TransactionResponse], error)
	ExportTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.ExportRow, error)
}

// TransactionHandler handles ledger transaction endpoints
type TransactionHandler struct {
	BaseHandler
	ledgerService TransactionUseCase
	metrics       *telemetry.LedgerMetrics
	now           func() time.Time
}

// NewTransactionHandler creates a new TransactionHandler. metrics may be nil.
func NewTransactionHandler(ledgerService TransactionUseCase, metrics *telemetry.LedgerMetrics) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
		metrics:       metrics,
		now:           time.Now,
	}
}

// Post handles POST /ledger/transactions
//
// @Summary      Post a transaction
// @Description  Record a transfer, deposit or withdrawal and update the cached balances of the accounts it touches. Amount may be a decimal string or a JSON number.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replays within the key's lifetime are rejected with 409"
// @Param        request body ledgerapp.PostTransactionRequest true "Transaction"
// @Success      201 {object} dto.Response{data=ledgerapp.PostTransactionResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions [post]
func (h *TransactionHandler) Post(c *gin.Context) {
	var req ledgerapp.PostTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.ledgerService.PostTransaction(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List handles GET /ledger/transactions
//
// @Summary      List transactions
// @Description  Newest first, filtered and paginated
// @Tags         transactions
// @Produce      json
// @Param        date_from query string false "Start date (YYYY-MM-DD)"
// @Param        date_to query string false "End date (YYYY-MM-DD)"
// @Param        account_id query string false "Source or destination account" format(uuid)
// @Param        category_id query string false "Category ID" format(uuid)
// @Param        is_reconciled query bool false "Reconciliation state"
// @Param        search query string false "Matches description, notes or reference" maxlength(100)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]ledgerapp.TransactionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	page, err := h.ledgerService.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// Export handles GET /ledger/transactions/export and streams the matching
// transactions as a csv or xlsx attachment
//
// @Summary      Export transactions
// @Description  Download the matching transactions as a csv or xlsx attachment
// @Tags         transactions
// @Produce      text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        format query string false "File format" Enums(csv, xlsx) default(csv)
// @Param        date_from query string false "Start date (YYYY-MM-DD)"
// @Param        date_to query string false "End date (YYYY-MM-DD)"
// @Param        account_id query string false "Source or destination account" format(uuid)
// @Param        category_id query string false "Category ID" format(uuid)
// @Param        is_reconciled query bool false "Reconciliation state"
// @Param        search query string false "Matches description, notes or reference" maxlength(100)
// @Success      200 {file} file "Exported transactions"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/export [get]
func (h *TransactionHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	renderer, err := export.NewRenderer(format)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	rows, err := h.ledgerService.ExportTransactions(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, rows); err != nil {
		h.HandleError(c, shared.NewStorageError("render export", err))
		return
	}
	h.metrics.RowsExported(c.Request.Context(), string(format), len(rows))

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(format, h.now())+`"`)
	c.Data(http.StatusOK, renderer.ContentType(), buf.Bytes())
}

// Get handles GET /ledger/transactions/:id
//
// @Summary      Get transaction
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.TransactionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	txn, err := h.ledgerService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txn)
}

// ToggleReconciliation handles POST /ledger/transactions/:id/reconciliation
//
// @Summary      Toggle reconciliation
// @Description  Flip the reconciled flag of a transaction
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.TransactionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/{id}/reconciliation [post]
func (h *TransactionHandler) ToggleReconciliation(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	txn, err := h.ledgerService.ToggleReconciliation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txn)
}

// Delete handles DELETE /ledger/transactions/:id
//
// @Summary      Delete transaction
// @Description  Remove a transaction and reverse its effect on the cached balances
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.ledgerService.DeleteTransaction(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *TransactionHandler) bindFilter(c *gin.Context) (ledger.TransactionFilter, bool) {
	var query ledgerapp.TransactionListQuery
	if !h.BindQuery(c, &query) {
		return ledger.TransactionFilter{}, false
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.HandleError(c, err)
		return ledger.TransactionFilter{}, false
	}
	return filter, true
}
