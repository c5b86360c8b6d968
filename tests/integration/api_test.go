//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	identityapp "github.com/ledgerbook/backend/internal/application/identity"
	app "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/infrastructure/auth"
	"github.com/ledgerbook/backend/internal/infrastructure/cache"
	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/ledgerbook/backend/internal/interfaces/http/dto"
	"github.com/ledgerbook/backend/internal/interfaces/http/handler"
	"github.com/ledgerbook/backend/internal/interfaces/http/middleware"
	"github.com/ledgerbook/backend/internal/interfaces/http/router"
	"github.com/ledgerbook/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// apiServer is the HTTP API wired like cmd/server, minus Redis and telemetry
type apiServer struct {
	*testutil.LedgerFixture
	Engine *gin.Engine
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	tdb := NewTestDB(t)
	f := testutil.SeedLedgerFixture(t, tdb.DB)
	log := zap.NewNop()

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "integration-secret-key-32-chars-long!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "ledger-test",
		MaxRefreshCount:        5,
	})
	authService := identityapp.NewAuthService(f.Users, f.Repos.Audit, jwtService,
		auth.NewInMemoryTokenBlacklist(), identityapp.DefaultAuthServiceConfig(), log)
	ledgerService := app.NewLedgerService(app.LedgerServiceConfig{UnitOfWork: f.UoW, Repositories: f.Repos, Logger: log})
	masterData := app.NewMasterDataService(f.UoW, f.Repos, log)
	reports := app.NewReportService(f.Reports, f.Repos.Audit)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.SetupAPI(engine, router.Handlers{
		System:       handler.NewSystemHandler("ledger-test", "test", map[string]handler.HealthChecker{}),
		Auth:         handler.NewAuthHandler(authService),
		Transactions: handler.NewTransactionHandler(ledgerService, nil),
		Accounts:     handler.NewAccountHandler(masterData, ledgerService),
		Categories:   handler.NewCategoryHandler(masterData, reports),
		Holders:      handler.NewHolderHandler(masterData),
		Currencies:   handler.NewCurrencyHandler(masterData),
		Reports:      handler.NewReportHandler(reports),
		Admin:        handler.NewAdminHandler(reports, ledgerService, nil),
	}, router.Guards{
		Authenticate: middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:  jwtService,
			Revocations: authService,
		}),
		AdminOnly:   middleware.AdminOnly(),
		Idempotency: middleware.Idempotency(cache.NewInMemoryIdempotencyStore(), time.Minute, log),
	})

	return &apiServer{LedgerFixture: f, Engine: engine}
}

func (s *apiServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)
	return w
}

func (s *apiServer) login(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data identityapp.LoginResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.AccessToken)
	return resp.Data.AccessToken
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func TestAPI_RequiresAuthentication(t *testing.T) {
	s := newAPIServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/ledger/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_PostTransactionFlow(t *testing.T) {
	s := newAPIServer(t)
	token := s.login(t)
	account := s.Account(t, "Checking", 100)

	body := map[string]any{
		"source_account_id": account.ID,
		"category_id":       s.Expense.ID,
		"date":              "2024-05-10",
		"amount":            "25.40",
		"description":       "Groceries",
	}
	w := s.do(t, http.MethodPost, "/api/v1/ledger/transactions", token, body, middleware.IdempotencyKeyHeader, "post-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// the same key is rejected instead of posting twice
	w = s.do(t, http.MethodPost, "/api/v1/ledger/transactions", token, body, middleware.IdempotencyKeyHeader, "post-1")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/ledger/accounts/"+account.ID.String()+"/balance", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var balance struct {
		Data app.BalanceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &balance))
	assert.True(t, decimal.RequireFromString("74.60").Equal(balance.Data.Balance), balance.Data.Balance.String())

	w = s.do(t, http.MethodGet, "/api/v1/ledger/transactions/export?format=csv", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transactions_export_")
	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2, "header and one transaction")
}

func TestAPI_ValidationErrorsKeepTheirCodes(t *testing.T) {
	s := newAPIServer(t)
	token := s.login(t)
	account := s.Account(t, "Checking", 0)

	w := s.do(t, http.MethodPost, "/api/v1/ledger/transactions", token, map[string]any{
		"source_account_id": account.ID,
		"dest_account_id":   account.ID,
		"category_id":       s.Expense.ID,
		"amount":            "10",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SAME_ACCOUNT", decodeError(t, w).Code)
}

func TestAPI_MasterDataWritesNeedAdmin(t *testing.T) {
	s := newAPIServer(t)
	token := s.login(t)

	w := s.do(t, http.MethodPost, "/api/v1/ledger/holders", token, map[string]any{
		"name": "Bob", "type": "personal",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	s.User.GrantAdmin()
	require.NoError(t, s.Users.Update(context.Background(), s.User))
	adminToken := s.login(t)

	w = s.do(t, http.MethodPost, "/api/v1/ledger/holders", adminToken, map[string]any{
		"name": "Bob", "type": "personal",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestAPI_LogoutRevokesToken(t *testing.T) {
	s := newAPIServer(t)
	token := s.login(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
