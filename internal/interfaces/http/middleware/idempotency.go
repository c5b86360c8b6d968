package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader is the client-supplied key identifying a retried mutation
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the stored key size
const maxIdempotencyKeyLength = 128

// Idempotency rejects a repeated Idempotency-Key with 409 DUPLICATE_REQUEST.
// Keys are scoped to the authenticated user and remembered for ttl. A request
// that ends with an error status releases its key so the client can retry.
// Requests without the header pass through. When the store fails the request proceeds.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyTTL
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Idempotency-Key is too long")
			return
		}

		scope := "anonymous"
		if actor, ok := shared.ActorFromContext(c.Request.Context()); ok {
			scope = actor.UserID.String()
		}
		storeKey := "idem:" + scope + ":" + c.FullPath() + ":" + key

		first, err := store.MarkProcessed(c.Request.Context(), storeKey, ttl)
		if err != nil {
			if logger != nil {
				logger.Error("Idempotency store unavailable", zap.Error(err))
			}
			c.Next()
			return
		}
		if !first {
			abortWithError(c, http.StatusConflict, dto.ErrCodeDuplicateRequest,
				"A request with this Idempotency-Key was already processed")
			return
		}
		c.Next()

		if c.Writer.Status() < http.StatusBadRequest {
			return
		}
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), time.Second)
		defer cancel()
		if err := store.Forget(ctx, storeKey); err != nil && logger != nil {
			logger.Warn("Failed to release idempotency key", zap.Int("status", c.Writer.Status()), zap.Error(err))
		}
	}
}
