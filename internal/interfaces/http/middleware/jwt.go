package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/auth"
	"github.com/ledgerbook/backend/internal/infrastructure/logger"
	"github.com/ledgerbook/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Gin context keys set on an authenticated request
const (
	JWTClaimsKey = "jwt_claims"
	JWTUserIDKey = "jwt_user_id"
)

const (
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// RevocationChecker reports whether a token ID has been revoked
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTMiddlewareConfig configures JWTAuthMiddlewareWithConfig. Only JWTService
// is required. The middleware guards the routes it is attached to; public
// routes are registered without it.
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// Revocations rejects logged-out tokens. A failing store lets the token through.
	Revocations RevocationChecker
	Logger      *zap.Logger
}

// JWTAuthMiddleware authenticates with jwtService alone, without revocation checks
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{JWTService: jwtService})
}

// JWTAuthMiddlewareWithConfig requires a valid bearer access token. The
// request context then carries the shared.Actor the services attribute their
// writes to, and the request logger is tagged with the user.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(AuthHeaderKey))
		if !ok {
			rejectToken(c, log, auth.ErrInvalidToken)
			return
		}
		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			rejectToken(c, log, err)
			return
		}
		userID, err := claims.GetUserUUID()
		if err != nil {
			rejectToken(c, log, auth.ErrMissingUserID)
			return
		}
		if cfg.Revocations != nil {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims.ID)
			switch {
			case err != nil:
				log.Error("Failed to check token revocation", zap.String("jti", claims.ID), zap.Error(err))
			case revoked:
				rejectToken(c, log, auth.ErrTokenBlacklisted)
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)

		ctx := shared.WithActor(c.Request.Context(), shared.Actor{
			UserID:    userID,
			Username:  claims.Username,
			IsAdmin:   claims.IsAdmin,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(
			zap.String("user_id", claims.UserID),
			zap.String("username", claims.Username),
		))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, strings.TrimSpace(BearerPrefix)) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// tokenRejections maps token failures to the API error; unlisted errors are
// answered as a plain authentication failure
var tokenRejections = []struct {
	err     error
	code    string
	message string
}{
	{auth.ErrExpiredToken, dto.ErrCodeTokenExpired, "Token has expired"},
	{auth.ErrTokenBlacklisted, dto.ErrCodeTokenRevoked, "Token has been revoked"},
	{auth.ErrTokenNotYetValid, dto.ErrCodeTokenInvalid, "Token is not yet valid"},
	{auth.ErrInvalidToken, dto.ErrCodeTokenInvalid, "Invalid token"},
	{auth.ErrInvalidTokenType, dto.ErrCodeTokenInvalid, "Invalid token"},
	{auth.ErrInvalidClaims, dto.ErrCodeTokenInvalid, "Invalid token"},
	{auth.ErrMissingUserID, dto.ErrCodeTokenInvalid, "Invalid token"},
}

func rejectToken(c *gin.Context, log *zap.Logger, err error) {
	log.Debug("JWT authentication failed", zap.Error(err), zap.String("path", c.FullPath()))

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	for _, r := range tokenRejections {
		if errors.Is(err, r.err) {
			code, message = r.code, r.message
			break
		}
	}
	abortWithError(c, http.StatusUnauthorized, code, message)
}

// AdminOnly rejects requests whose actor is not an administrator.
// It must run after the JWT middleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := shared.ActorFromContext(c.Request.Context())
		switch {
		case !ok:
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
		case !actor.IsAdmin:
			abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Administrator access required")
		default:
			c.Next()
		}
	}
}

// GetJWTClaims returns the claims of an authenticated request, or nil
func GetJWTClaims(c *gin.Context) *auth.Claims {
	value, _ := c.Get(JWTClaimsKey)
	claims, _ := value.(*auth.Claims)
	return claims
}
