package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/ledgerbook/backend/internal/application/identity"
	"github.com/ledgerbook/backend/internal/domain/identity"
	"github.com/ledgerbook/backend/internal/infrastructure/auth"
	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/ledgerbook/backend/internal/interfaces/http/dto"
	"github.com/ledgerbook/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	})
}

func TestAuthHandler_Login(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)

	svc.On("Login", mock.Anything, mock.MatchedBy(func(in appidentity.LoginInput) bool {
		return in.Username == "alice" && in.Password == "Password123" && in.IP != ""
	})).Return(&appidentity.LoginResult{
		TokenPair: auth.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"},
		User:      appidentity.UserInfo{ID: uuid.New(), Username: "alice"},
	}, nil)

	w := performRequest(http.MethodPost, "/auth/login", "/auth/login",
		map[string]string{"username": "alice", "password": "Password123"}, h.Login)

	require.Equal(t, http.StatusOK, w.Code)
	var result appidentity.LoginResult
	decodeResponse(t, w, &result)
	assert.Equal(t, "access", result.AccessToken)
	assert.Equal(t, "alice", result.User.Username)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, identity.ErrInvalidCredentials)

	w := performRequest(http.MethodPost, "/auth/login", "/auth/login",
		map[string]string{"username": "alice", "password": "wrong-password"}, h.Login)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeResponse(t, w, nil).Error.Code)
}

func TestAuthHandler_Login_Validation(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)

	w := performRequest(http.MethodPost, "/auth/login", "/auth/login", map[string]string{"username": "alice"}, h.Login)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w, nil).Error.Code)
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)
	svc.On("RefreshToken", mock.Anything, appidentity.RefreshTokenInput{RefreshToken: "old"}).
		Return(&appidentity.RefreshTokenResult{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil)
	svc.On("RefreshToken", mock.Anything, appidentity.RefreshTokenInput{RefreshToken: "revoked"}).
		Return(nil, identity.ErrTokenRevoked)

	w := performRequest(http.MethodPost, "/auth/refresh", "/auth/refresh", map[string]string{"refresh_token": "old"}, h.RefreshToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(http.MethodPost, "/auth/refresh", "/auth/refresh", map[string]string{"refresh_token": "revoked"}, h.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REVOKED", decodeResponse(t, w, nil).Error.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	jwtService := testJWTService()
	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{UserID: uuid.New(), Username: "alice"})
	require.NoError(t, err)
	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	svc := new(MockAuthService)
	h := NewAuthHandler(svc)
	svc.On("Logout", mock.Anything, mock.MatchedBy(func(in appidentity.LogoutInput) bool {
		return in.TokenJTI == claims.ID && in.RemainingTTL > 0 && in.RemainingTTL <= 15*time.Minute
	})).Return(nil)

	router := gin.New()
	router.POST("/auth/logout", middleware.JWTAuthMiddleware(jwtService), h.Logout)
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Logout_NoClaims(t *testing.T) {
	h := NewAuthHandler(new(MockAuthService))
	w := performRequest(http.MethodPost, "/auth/logout", "/auth/logout", nil, h.Logout)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)
	svc.On("GetCurrentUser", mock.Anything).Return(&appidentity.UserInfo{Username: "alice", IsAdmin: true}, nil)

	w := performRequest(http.MethodGet, "/auth/me", "/auth/me", nil, h.GetCurrentUser)

	require.Equal(t, http.StatusOK, w.Code)
	var info appidentity.UserInfo
	decodeResponse(t, w, &info)
	assert.True(t, info.IsAdmin)
}
