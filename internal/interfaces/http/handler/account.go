package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/domain/ledger"
)

// BalanceUseCase computes account balances on demand
type BalanceUseCase interface {
	GetAccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (*ledgerapp.BalanceResponse, error)
}

// AccountListQuery filters the account listing
type AccountListQuery struct {
	HolderID   string `form:"holder_id" binding:"omitempty,uuid"`
	CurrencyID string `form:"currency_id" binding:"omitempty,uuid"`
	Type       string `form:"type" binding:"omitempty,oneof=checking savings credit_card cash investment other"`
	ActiveOnly bool   `form:"active_only"`
}

// ToFilter converts the query into a domain filter
func (q AccountListQuery) ToFilter() ledger.AccountFilter {
	filter := ledger.AccountFilter{ActiveOnly: q.ActiveOnly}
	if id, err := uuid.Parse(q.HolderID); err == nil {
		filter.HolderID = &id
	}
	if id, err := uuid.Parse(q.CurrencyID); err == nil {
		filter.CurrencyID = &id
	}
	if q.Type != "" {
		t := ledger.AccountType(q.Type)
		filter.Type = &t
	}
	return filter
}

// BalanceQuery selects the cut-off day of a balance
type BalanceQuery struct {
	AsOf string `form:"as_of" binding:"omitempty,date_only"`
}

// AccountHandler handles account endpoints
type AccountHandler struct {
	BaseHandler
	masterData MasterDataUseCase
	balances   BalanceUseCase
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(masterData MasterDataUseCase, balances BalanceUseCase) *AccountHandler {
	return &AccountHandler{masterData: masterData, balances: balances}
}

// List handles GET /ledger/accounts and includes each account's cached balance
//
// @Summary      List accounts
// @Description  Accounts with their cached balance
// @Tags         accounts
// @Produce      json
// @Param        holder_id query string false "Holder ID" format(uuid)
// @Param        currency_id query string false "Currency ID" format(uuid)
// @Param        type query string false "Account type" Enums(checking, savings, credit_card, cash, investment, other)
// @Param        active_only query bool false "Only active accounts"
// @Success      200 {object} dto.Response{data=[]ledgerapp.AccountWithBalanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	var query AccountListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	accounts, err := h.masterData.ListAccounts(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// Create handles POST /ledger/accounts
//
// @Summary      Create account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateAccountRequest true "Account"
// @Success      201 {object} dto.Response{data=ledgerapp.AccountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	account, err := h.masterData.CreateAccount(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// Get handles GET /ledger/accounts/:id
//
// @Summary      Get account
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.AccountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	account, err := h.masterData.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Balance handles GET /ledger/accounts/:id/balance. The balance is recomputed
// from the starting balance and every transaction dated on or before as_of.
//
// @Summary      Get account balance
// @Description  Balance recomputed from the starting balance and every transaction dated on or before as_of
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        as_of query string false "Date (YYYY-MM-DD), defaults to today"
// @Success      200 {object} dto.Response{data=ledgerapp.BalanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/accounts/{id}/balance [get]
func (h *AccountHandler) Balance(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var query BalanceQuery
	if !h.BindQuery(c, &query) {
		return
	}

	var asOf *time.Time
	if query.AsOf != "" {
		day, err := ledger.ParseDate(query.AsOf)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		asOf = &day
	}

	balance, err := h.balances.GetAccountBalance(c.Request.Context(), id, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// SetStatus handles PATCH /ledger/accounts/:id/status
//
// @Summary      Activate or deactivate account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body ledgerapp.SetStatusRequest true "Status"
// @Success      200 {object} dto.Response{data=ledgerapp.AccountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/accounts/{id}/status [patch]
func (h *AccountHandler) SetStatus(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req ledgerapp.SetStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	account, err := h.masterData.SetAccountActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Delete handles DELETE /ledger/accounts/:id. Accounts referenced by
// transactions cannot be deleted.
//
// @Summary      Delete account
// @Description  Accounts referenced by transactions cannot be deleted
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.masterData.DeleteAccount(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
