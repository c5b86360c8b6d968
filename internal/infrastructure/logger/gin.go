package logger

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ginRequestIDKey is the gin context key set by the RequestID middleware
const ginRequestIDKey = "request_id"

// AccessLog stores a request-scoped logger in the request context and writes
// one entry per request after the handlers ran: info below 400, warn for
// client errors, error for server errors. Requests to skipPaths get the
// logger but no entry.
func AccessLog(base *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		l := base.With(zap.String("method", req.Method), zap.String("path", req.URL.Path))
		ctx := req.Context()
		if id := c.GetString(ginRequestIDKey); id != "" {
			ctx, l = WithRequestID(ctx, l, id)
		} else {
			ctx = WithContext(ctx, l)
		}
		c.Request = req.WithContext(ctx)

		c.Next()

		if slices.Contains(skipPaths, req.URL.Path) {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", max(c.Writer.Size(), 0)),
		}
		if route := c.FullPath(); route != "" && route != req.URL.Path {
			fields = append(fields, zap.String("route", route))
		}
		if req.URL.RawQuery != "" {
			fields = append(fields, zap.String("query", req.URL.RawQuery))
		}
		if actor, ok := shared.ActorFromContext(c.Request.Context()); ok {
			fields = append(fields, zap.String("user", actor.Username))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			l.Error("HTTP Request", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("HTTP Request", fields...)
		default:
			l.Info("HTTP Request", fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 with the API error envelope
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		base.Error("Panic recovered",
			zap.String("request_id", c.GetString(ginRequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.StackSkip("stacktrace", 2),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   gin.H{"code": "INTERNAL_ERROR", "message": "Internal server error"},
		})
	})
}
