package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
)

// HolderHandler handles account holder endpoints
type HolderHandler struct {
	BaseHandler
	masterData MasterDataUseCase
}

// NewHolderHandler creates a new HolderHandler
func NewHolderHandler(masterData MasterDataUseCase) *HolderHandler {
	return &HolderHandler{masterData: masterData}
}

// List handles GET /ledger/holders
//
// @Summary      List holders
// @Tags         holders
// @Produce      json
// @Success      200 {object} dto.Response{data=[]ledgerapp.HolderResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/holders [get]
func (h *HolderHandler) List(c *gin.Context) {
	holders, err := h.masterData.ListHolders(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, holders)
}

// Create handles POST /ledger/holders
//
// @Summary      Create holder
// @Tags         holders
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateHolderRequest true "Holder"
// @Success      201 {object} dto.Response{data=ledgerapp.HolderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/holders [post]
func (h *HolderHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateHolderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	holder, err := h.masterData.CreateHolder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, holder)
}

// Delete handles DELETE /ledger/holders/:id
//
// @Summary      Delete holder
// @Description  Holders that still own accounts cannot be deleted
// @Tags         holders
// @Produce      json
// @Param        id path string true "Holder ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/holders/{id} [delete]
func (h *HolderHandler) Delete(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.masterData.DeleteHolder(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
