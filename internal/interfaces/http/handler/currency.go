package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
)

// CurrencyListQuery filters the currency listing
type CurrencyListQuery struct {
	ActiveOnly bool `form:"active_only"`
}

// CurrencyHandler handles currency endpoints
type CurrencyHandler struct {
	BaseHandler
	masterData MasterDataUseCase
}

// NewCurrencyHandler creates a new CurrencyHandler
func NewCurrencyHandler(masterData MasterDataUseCase) *CurrencyHandler {
	return &CurrencyHandler{masterData: masterData}
}

// List handles GET /ledger/currencies
//
// @Summary      List currencies
// @Tags         currencies
// @Produce      json
// @Param        active_only query bool false "Only active currencies"
// @Success      200 {object} dto.Response{data=[]ledgerapp.CurrencyResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/currencies [get]
func (h *CurrencyHandler) List(c *gin.Context) {
	var query CurrencyListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	currencies, err := h.masterData.ListCurrencies(c.Request.Context(), query.ActiveOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, currencies)
}

// Create handles POST /ledger/currencies
//
// @Summary      Create currency
// @Tags         currencies
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateCurrencyRequest true "Currency"
// @Success      201 {object} dto.Response{data=ledgerapp.CurrencyResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/currencies [post]
func (h *CurrencyHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateCurrencyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	currency, err := h.masterData.CreateCurrency(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, currency)
}

// SetBase handles POST /ledger/currencies/:id/base. The previous base currency
// loses the flag in the same transaction.
//
// @Summary      Set base currency
// @Description  The previous base currency loses the flag in the same transaction
// @Tags         currencies
// @Produce      json
// @Param        id path string true "Currency ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.CurrencyResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/currencies/{id}/base [post]
func (h *CurrencyHandler) SetBase(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	currency, err := h.masterData.SetBaseCurrency(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, currency)
}

// Delete handles DELETE /ledger/currencies/:id
//
// @Summary      Delete currency
// @Description  Currencies used by accounts cannot be deleted
// @Tags         currencies
// @Produce      json
// @Param        id path string true "Currency ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/currencies/{id} [delete]
func (h *CurrencyHandler) Delete(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.masterData.DeleteCurrency(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
