package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ledgerbook/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMount_NestedGroups(t *testing.T) {
	engine := gin.New()

	group := NewDomainGroup("test", "/test").
		GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	group.Group("nested", "/nested").
		DELETE("/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
	table := Mount(engine, "/api/v2", group)

	w := serve(engine, http.MethodGet, "/api/v2/test/ping", nil)
	assert.Equal(t, "pong", w.Body.String())

	w = serve(engine, http.MethodDelete, "/api/v2/test/nested/42", nil)
	assert.Equal(t, "42", w.Body.String())

	assert.Equal(t, []Route{
		{Group: "test", Method: http.MethodGet, Path: "/api/v2/test/ping"},
		{Group: "nested", Method: http.MethodDelete, Path: "/api/v2/test/nested/:id"},
	}, table)
}

func TestDomainGroup_MiddlewareOrderAndNilGuards(t *testing.T) {
	engine := gin.New()
	var order []string
	mark := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			order = append(order, name)
			c.Next()
		}
	}

	group := NewDomainGroup("test", "/test").
		Use(mark("group"), nil).
		POST("/items", nil, mark("route"), func(c *gin.Context) { c.Status(http.StatusCreated) })
	group.Group("sub", "/sub").
		Use(mark("sub")).
		GET("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	Mount(engine, APIBasePath, group)

	w := serve(engine, http.MethodPost, "/api/v1/test/items", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"group", "route"}, order)

	order = nil
	w = serve(engine, http.MethodGet, "/api/v1/test/sub", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"group", "sub"}, order)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/api/v1", joinPath("/api/v1", ""))
	assert.Equal(t, "/api/v1/ledger", joinPath("/api/v1", "/ledger"))
	assert.Equal(t, "/api/v1/ledger/", joinPath("/api/v1", "/ledger/"))
}

// testGuards abort with distinct status codes so a test can tell which guard
// stopped a request
func testGuards() Guards {
	return Guards{
		Authenticate: func(c *gin.Context) {
			if c.GetHeader("X-Test-User") == "" {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.Next()
		},
		AdminOnly: func(c *gin.Context) {
			if c.GetHeader("X-Test-Admin") != "1" {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
		},
		AuthRateLimit: func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) },
		Idempotency:   func(c *gin.Context) { c.AbortWithStatus(http.StatusConflict) },
	}
}

func testHandlers() Handlers {
	return Handlers{
		System:       handler.NewSystemHandler("ledgerbook", "test", nil),
		Auth:         handler.NewAuthHandler(nil),
		Transactions: handler.NewTransactionHandler(nil, nil),
		Accounts:     handler.NewAccountHandler(nil, nil),
		Categories:   handler.NewCategoryHandler(nil, nil),
		Holders:      handler.NewHolderHandler(nil),
		Currencies:   handler.NewCurrencyHandler(nil),
		Reports:      handler.NewReportHandler(nil),
		Admin:        handler.NewAdminHandler(nil, nil, nil),
	}
}

func TestSetupAPI_Guards(t *testing.T) {
	engine := gin.New()
	SetupAPI(engine, testHandlers(), testGuards())

	user := map[string]string{"X-Test-User": "alice"}
	tests := []struct {
		name    string
		method  string
		path    string
		headers map[string]string
		want    int
	}{
		{"root health is public", http.MethodGet, "/health", nil, http.StatusOK},
		{"api health is public", http.MethodGet, "/api/v1/health", nil, http.StatusOK},
		{"login is rate limited, not authenticated", http.MethodPost, "/api/v1/auth/login", nil, http.StatusTooManyRequests},
		{"refresh is rate limited", http.MethodPost, "/api/v1/auth/refresh", nil, http.StatusTooManyRequests},
		{"me needs a token", http.MethodGet, "/api/v1/auth/me", nil, http.StatusUnauthorized},
		{"transactions need a token", http.MethodGet, "/api/v1/ledger/transactions", nil, http.StatusUnauthorized},
		{"posting goes through idempotency", http.MethodPost, "/api/v1/ledger/transactions", user, http.StatusConflict},
		{"account create is admin only", http.MethodPost, "/api/v1/ledger/accounts", user, http.StatusForbidden},
		{"account status is admin only", http.MethodPatch, "/api/v1/ledger/accounts/x/status", user, http.StatusForbidden},
		{"currency base is admin only", http.MethodPost, "/api/v1/ledger/currencies/x/base", user, http.StatusForbidden},
		{"holder delete is admin only", http.MethodDelete, "/api/v1/ledger/holders/x", user, http.StatusForbidden},
		{"category delete is admin only", http.MethodDelete, "/api/v1/ledger/categories/x", user, http.StatusForbidden},
		{"reports need a token", http.MethodGet, "/api/v1/reports/dashboard", nil, http.StatusUnauthorized},
		{"audit is admin only", http.MethodGet, "/api/v1/admin/audit", user, http.StatusForbidden},
		{"backups are admin only", http.MethodPost, "/api/v1/admin/backups", user, http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/nope", nil, http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/v1/ledger/transactions", user, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path, tt.headers)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSetupAPI_RouteTable(t *testing.T) {
	engine := gin.New()
	table := SetupAPI(engine, testHandlers(), testGuards())

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	// the returned table matches what gin serves, minus the root health check
	require.Len(t, table, len(engine.Routes())-1)
	for _, route := range table {
		assert.True(t, registered[route.Method+" "+route.Path], "%s %s not served", route.Method, route.Path)
	}

	expected := []string{
		"GET /health",
		"GET /api/v1/health",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/refresh",
		"POST /api/v1/auth/logout",
		"GET /api/v1/auth/me",
		"POST /api/v1/ledger/transactions",
		"GET /api/v1/ledger/transactions",
		"GET /api/v1/ledger/transactions/export",
		"GET /api/v1/ledger/transactions/:id",
		"POST /api/v1/ledger/transactions/:id/reconciliation",
		"DELETE /api/v1/ledger/transactions/:id",
		"GET /api/v1/ledger/accounts",
		"POST /api/v1/ledger/accounts",
		"GET /api/v1/ledger/accounts/:id",
		"GET /api/v1/ledger/accounts/:id/balance",
		"PATCH /api/v1/ledger/accounts/:id/status",
		"DELETE /api/v1/ledger/accounts/:id",
		"GET /api/v1/ledger/categories",
		"POST /api/v1/ledger/categories",
		"PATCH /api/v1/ledger/categories/:id/status",
		"DELETE /api/v1/ledger/categories/:id",
		"GET /api/v1/ledger/categories/:id/total",
		"GET /api/v1/ledger/holders",
		"POST /api/v1/ledger/holders",
		"DELETE /api/v1/ledger/holders/:id",
		"GET /api/v1/ledger/currencies",
		"POST /api/v1/ledger/currencies",
		"POST /api/v1/ledger/currencies/:id/base",
		"DELETE /api/v1/ledger/currencies/:id",
		"GET /api/v1/reports/income-expense",
		"GET /api/v1/reports/cash-flow",
		"GET /api/v1/reports/dashboard",
		"GET /api/v1/admin/audit",
		"POST /api/v1/admin/backups",
		"GET /api/v1/admin/balances/verify",
		"POST /api/v1/admin/balances/refresh",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "missing route %s", route)
	}
	require.Len(t, engine.Routes(), len(expected))
}

func serve(engine *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
