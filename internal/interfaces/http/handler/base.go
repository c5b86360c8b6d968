package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/logger"
	"github.com/ledgerbook/backend/internal/interfaces/http/dto"
	"github.com/ledgerbook/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler writes the response envelope; handlers embed it
type BaseHandler struct{}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes a page of items with its meta
func Paginated[T any](c *gin.Context, page shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// Error writes an error envelope and records code for the access log and span
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, middleware.RequestIDOf(c)))
}

func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

func (h *BaseHandler) InternalError(c *gin.Context) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Internal server error")
}

// BindJSON and BindQuery answer 400 themselves and report false on failure
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	return h.bind(c, obj, binding.JSON)
}

func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	return h.bind(c, obj, binding.Query)
}

func (h *BaseHandler) bind(c *gin.Context, obj any, b binding.Binding) bool {
	if err := c.ShouldBindWith(obj, b); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// ParamUUID parses the named path parameter, answering 400 when malformed
func (h *BaseHandler) ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// HandleError maps domain errors to their status and public code. Storage
// failures and unknown errors are logged with their cause and answered with
// a generic 500 so internals never reach the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) && de.Kind != shared.KindStorage {
		h.Error(c, dto.StatusForKind(de.Kind), de.PublicCode(), de.Message)
		return
	}
	logger.L(c.Request.Context()).Error("Request failed", zap.String("route", c.FullPath()), zap.Error(err))
	h.InternalError(c)
}
