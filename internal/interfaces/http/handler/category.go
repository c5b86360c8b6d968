package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
)

// CategoryTotalUseCase sums a category's transactions over a date range
type CategoryTotalUseCase interface {
	CategoryTotal(ctx context.Context, categoryID uuid.UUID, q ledgerapp.DateRangeQuery) (*ledgerapp.CategoryTotalResponse, error)
}

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	BaseHandler
	masterData MasterDataUseCase
	totals     CategoryTotalUseCase
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(masterData MasterDataUseCase, totals CategoryTotalUseCase) *CategoryHandler {
	return &CategoryHandler{masterData: masterData, totals: totals}
}

// List handles GET /ledger/categories
//
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Param        type query string false "Category type" Enums(credit, debit)
// @Param        active_only query bool false "Only active categories"
// @Success      200 {object} dto.Response{data=[]ledgerapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	var query ledgerapp.CategoryListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	categories, err := h.masterData.ListCategories(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categories)
}

// Create handles POST /ledger/categories
//
// @Summary      Create category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateCategoryRequest true "Category"
// @Success      201 {object} dto.Response{data=ledgerapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	category, err := h.masterData.CreateCategory(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, category)
}

// SetStatus handles PATCH /ledger/categories/:id/status
//
// @Summary      Activate or deactivate category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        request body ledgerapp.SetStatusRequest true "Status"
// @Success      200 {object} dto.Response{data=ledgerapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/categories/{id}/status [patch]
func (h *CategoryHandler) SetStatus(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req ledgerapp.SetStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	category, err := h.masterData.SetCategoryActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Delete handles DELETE /ledger/categories/:id
//
// @Summary      Delete category
// @Description  Categories referenced by transactions cannot be deleted
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.masterData.DeleteCategory(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Total handles GET /ledger/categories/:id/total
//
// @Summary      Category total
// @Description  Sum of the category's transactions over a date range
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        date_from query string false "Start date (YYYY-MM-DD)"
// @Param        date_to query string false "End date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=ledgerapp.CategoryTotalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/categories/{id}/total [get]
func (h *CategoryHandler) Total(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var query ledgerapp.DateRangeQuery
	if !h.BindQuery(c, &query) {
		return
	}
	total, err := h.totals.CategoryTotal(c.Request.Context(), id, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, total)
}
