package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/application/maintenance"
	"github.com/ledgerbook/backend/internal/domain/shared"
)

// AuditUseCase lists audit log entries
type AuditUseCase interface {
	ListAudit(ctx context.Context, q ledgerapp.AuditListQuery) (shared.Paginated[ledgerapp.AuditEntryResponse], error)
}

// BalanceMaintenanceUseCase compares and repairs cached account balances
type BalanceMaintenanceUseCase interface {
	VerifyBalances(ctx context.Context) ([]ledgerapp.BalanceDriftResponse, error)
	RefreshBalances(ctx context.Context) ([]ledgerapp.BalanceDriftResponse, error)
}

// BackupUseCase runs database backups
type BackupUseCase interface {
	Run(ctx context.Context, upload bool) (*maintenance.BackupResult, error)
}

// BackupRequest represents the optional body of POST /admin/backups
type BackupRequest struct {
	Upload bool `json:"upload" form:"upload"`
}

// BalanceCheckResponse lists the accounts whose cached balance drifted
type BalanceCheckResponse struct {
	Drifted  int                              `json:"drifted"`
	Accounts []ledgerapp.BalanceDriftResponse `json:"accounts"`
}

// AdminHandler handles administrative endpoints
type AdminHandler struct {
	BaseHandler
	audit    AuditUseCase
	balances BalanceMaintenanceUseCase
	backups  BackupUseCase
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(audit AuditUseCase, balances BalanceMaintenanceUseCase, backups BackupUseCase) *AdminHandler {
	return &AdminHandler{audit: audit, balances: balances, backups: backups}
}

// ListAudit handles GET /admin/audit
//
// @Summary      List audit log
// @Tags         admin
// @Produce      json
// @Param        user_id query string false "User ID" format(uuid)
// @Param        action query string false "Action, e.g. CREATE or LOGIN"
// @Param        table query string false "Table name"
// @Param        record_id query string false "Record ID"
// @Param        date_from query string false "Start date (YYYY-MM-DD)"
// @Param        date_to query string false "End date (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]ledgerapp.AuditEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/audit [get]
func (h *AdminHandler) ListAudit(c *gin.Context) {
	var query ledgerapp.AuditListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	page, err := h.audit.ListAudit(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// RunBackup handles POST /admin/backups. The upload flag may be passed as a
// query parameter or in a JSON body.
//
// @Summary      Run database backup
// @Description  Dump the database and optionally upload the archive to object storage
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        upload query bool false "Upload to object storage"
// @Param        request body BackupRequest false "Backup options"
// @Success      201 {object} dto.Response{data=maintenance.BackupResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/backups [post]
func (h *AdminHandler) RunBackup(c *gin.Context) {
	var req BackupRequest
	if !h.BindQuery(c, &req) {
		return
	}
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	result, err := h.backups.Run(c.Request.Context(), req.Upload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// VerifyBalances handles GET /admin/balances/verify
//
// @Summary      Verify cached balances
// @Description  Compare every cached balance with the balance computed from transactions
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response{data=BalanceCheckResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/balances/verify [get]
func (h *AdminHandler) VerifyBalances(c *gin.Context) {
	drift, err := h.balances.VerifyBalances(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newBalanceCheckResponse(drift))
}

// RefreshBalances handles POST /admin/balances/refresh
//
// @Summary      Refresh cached balances
// @Description  Overwrite drifted cached balances with the computed ones
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response{data=BalanceCheckResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/balances/refresh [post]
func (h *AdminHandler) RefreshBalances(c *gin.Context) {
	drift, err := h.balances.RefreshBalances(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newBalanceCheckResponse(drift))
}

func newBalanceCheckResponse(drift []ledgerapp.BalanceDriftResponse) BalanceCheckResponse {
	if drift == nil {
		drift = []ledgerapp.BalanceDriftResponse{}
	}
	return BalanceCheckResponse{Drifted: len(drift), Accounts: drift}
}
