package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgerbook/backend/internal/interfaces/http/dto"
	"github.com/ledgerbook/backend/internal/interfaces/http/handler"
)

// Handlers bundles the HTTP handlers of the ledger API
type Handlers struct {
	System       *handler.SystemHandler
	Auth         *handler.AuthHandler
	Transactions *handler.TransactionHandler
	Accounts     *handler.AccountHandler
	Categories   *handler.CategoryHandler
	Holders      *handler.HolderHandler
	Currencies   *handler.CurrencyHandler
	Reports      *handler.ReportHandler
	Admin        *handler.AdminHandler
}

// Guards are the route-level middleware of the ledger API. A nil guard is skipped.
type Guards struct {
	Authenticate  gin.HandlerFunc // bearer token check, sets the request actor
	AdminOnly     gin.HandlerFunc
	AuthRateLimit gin.HandlerFunc // login and refresh only
	Idempotency   gin.HandlerFunc // transaction posting only
}

// SetupAPI mounts the ledger API on engine under APIBasePath, exposes the
// health check at /health as well, and returns the versioned route table
func SetupAPI(engine *gin.Engine, h Handlers, g Guards) []Route {
	engine.GET("/health", h.System.Health)
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeNotFound, "Route not found"))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponse(dto.ErrCodeMethodNotAllowed, "Method not allowed"))
	})

	return Mount(engine, APIBasePath,
		NewDomainGroup("system", "").GET("/health", h.System.Health),
		authRoutes(h, g),
		ledgerRoutes(h, g),
		NewDomainGroup("reports", "/reports").
			Use(g.Authenticate).
			GET("/income-expense", h.Reports.IncomeExpense).
			GET("/cash-flow", h.Reports.CashFlow).
			GET("/dashboard", h.Reports.Dashboard),
		NewDomainGroup("admin", "/admin").
			Use(g.Authenticate, g.AdminOnly).
			GET("/audit", h.Admin.ListAudit).
			POST("/backups", h.Admin.RunBackup).
			GET("/balances/verify", h.Admin.VerifyBalances).
			POST("/balances/refresh", h.Admin.RefreshBalances),
	)
}

func authRoutes(h Handlers, g Guards) *DomainGroup {
	return NewDomainGroup("auth", "/auth").
		POST("/login", g.AuthRateLimit, h.Auth.Login).
		POST("/refresh", g.AuthRateLimit, h.Auth.RefreshToken).
		POST("/logout", g.Authenticate, h.Auth.Logout).
		GET("/me", g.Authenticate, h.Auth.GetCurrentUser)
}

// ledgerRoutes serves transactions to every authenticated user. Reference
// data is readable by everyone and writable by administrators only.
func ledgerRoutes(h Handlers, g Guards) *DomainGroup {
	ledgerGroup := NewDomainGroup("ledger", "/ledger").Use(g.Authenticate)

	ledgerGroup.Group("transactions", "/transactions").
		POST("", g.Idempotency, h.Transactions.Post).
		GET("", h.Transactions.List).
		GET("/export", h.Transactions.Export).
		GET("/:id", h.Transactions.Get).
		POST("/:id/reconciliation", h.Transactions.ToggleReconciliation).
		DELETE("/:id", h.Transactions.Delete)

	ledgerGroup.Group("accounts", "/accounts").
		GET("", h.Accounts.List).
		POST("", g.AdminOnly, h.Accounts.Create).
		GET("/:id", h.Accounts.Get).
		GET("/:id/balance", h.Accounts.Balance).
		PATCH("/:id/status", g.AdminOnly, h.Accounts.SetStatus).
		DELETE("/:id", g.AdminOnly, h.Accounts.Delete)

	ledgerGroup.Group("categories", "/categories").
		GET("", h.Categories.List).
		POST("", g.AdminOnly, h.Categories.Create).
		PATCH("/:id/status", g.AdminOnly, h.Categories.SetStatus).
		DELETE("/:id", g.AdminOnly, h.Categories.Delete).
		GET("/:id/total", h.Categories.Total)

	ledgerGroup.Group("holders", "/holders").
		GET("", h.Holders.List).
		POST("", g.AdminOnly, h.Holders.Create).
		DELETE("/:id", g.AdminOnly, h.Holders.Delete)

	ledgerGroup.Group("currencies", "/currencies").
		GET("", h.Currencies.List).
		POST("", g.AdminOnly, h.Currencies.Create).
		POST("/:id/base", g.AdminOnly, h.Currencies.SetBase).
		DELETE("/:id", g.AdminOnly, h.Currencies.Delete)

	return ledgerGroup
}
