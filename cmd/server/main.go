package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	identityapp "github.com/ledgerbook/backend/internal/application/identity"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/application/maintenance"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/infrastructure/auth"
	"github.com/ledgerbook/backend/internal/infrastructure/backup"
	"github.com/ledgerbook/backend/internal/infrastructure/cache"
	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/ledgerbook/backend/internal/infrastructure/logger"
	"github.com/ledgerbook/backend/internal/infrastructure/messaging"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence"
	"github.com/ledgerbook/backend/internal/infrastructure/scheduler"
	"github.com/ledgerbook/backend/internal/infrastructure/storage"
	"github.com/ledgerbook/backend/internal/infrastructure/telemetry"
	"github.com/ledgerbook/backend/internal/interfaces/http/handler"
	"github.com/ledgerbook/backend/internal/interfaces/http/middleware"
	"github.com/ledgerbook/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Ledgerbook API
//	@version		1.0
//	@description	Bookkeeping ledger service: accounts, categories, transactions, balances and reports.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//go:generate swag init --dir ../.. -g cmd/server/main.go -o ../../docs --outputTypes go,json --parseInternal --overridesFile ../../.swaggo

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// the database may come up after the server in compose deployments
const (
	dbConnectAttempts = 10
	dbConnectDelay    = 3 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = baseLog.Sync() }()

	ctx := context.Background()

	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := provider.BridgeLogger(baseLog, zapcore.InfoLevel)

	profiler, err := telemetry.NewProfiler(cfg.Telemetry.Profiling, cfg.Telemetry.ServiceName, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.Profiling.SpanProfiles {
		provider.EnableSpanProfiles(profiler)
	}

	log.Info("Starting ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.Bool("telemetry", provider.IsEnabled()),
		zap.Bool("profiling", profiler.IsEnabled()),
	)

	// Database
	var gormOpts []logger.GormLoggerOption
	if cfg.Telemetry.DBSlowQueryThreshold > 0 {
		gormOpts = append(gormOpts, logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThreshold))
	}
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), gormOpts...)
	db, err := persistence.Open(ctx, &cfg.Database,
		persistence.WithGormLogger(gormLogger),
		persistence.WithConnectRetry(dbConnectAttempts, dbConnectDelay),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracing(cfg.Telemetry, cfg.Database.DBName, log).Register(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	// Redis backed stores, in memory when Redis is absent
	stores := cache.NewFactory(cfg.Redis, cache.WithLogger(log), cache.WithInMemoryFallback(true))
	if err := stores.Connect(ctx); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() { _ = stores.Close() }()

	publisher := newPublisher(cfg, log)
	defer func() { _ = publisher.Close() }()

	metrics, err := telemetry.NewLedgerMetrics(provider.Meter("ledgerbook"))
	if err != nil {
		log.Warn("Failed to create ledger metrics", zap.Error(err))
		metrics = nil
	}

	// Repositories
	repos := persistence.NewLedgerRepositories(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	reportRepo := persistence.NewGormReportRepository(db.DB)

	// Services
	jwtService := auth.NewJWTService(cfg.JWT)
	ledgerService := ledgerapp.NewLedgerService(ledgerapp.LedgerServiceConfig{
		UnitOfWork:   uow,
		Repositories: repos,
		References:   ledger.NewReferenceGenerator(cfg.Ledger.ReferencePrefix),
		Publisher:    publisher,
		Metrics:      metrics,
		Logger:       log.Named("ledger"),
	})
	masterDataService := ledgerapp.NewMasterDataService(uow, repos, log.Named("master_data"))
	reportService := ledgerapp.NewReportService(reportRepo, repos.Audit)
	authService := identityapp.NewAuthService(
		userRepo,
		repos.Audit,
		jwtService,
		stores.TokenBlacklist(),
		identityapp.AuthServiceConfig{
			MaxLoginAttempts: cfg.Ledger.MaxLoginAttempts,
			LockDuration:     cfg.Ledger.LoginLockDuration,
		},
		log.Named("auth"),
	)
	backupService := maintenance.NewBackupService(
		backup.NewPgDumper(cfg.Backup, cfg.Database, log),
		newUploader(ctx, cfg, log),
		repos.Audit,
		metrics,
		log.Named("backup"),
	)

	jobs := newMaintenanceScheduler(ctx, cfg, maintenance.NewJobRunner(ledgerService, backupService, log.Named("jobs")), log)

	// Handlers
	checks := map[string]handler.HealthChecker{"database": db}
	if stores.UsesRedis() {
		checks["cache"] = stores
	}
	handlers := router.Handlers{
		System:       handler.NewSystemHandler(cfg.App.Name, version, checks),
		Auth:         handler.NewAuthHandler(authService),
		Transactions: handler.NewTransactionHandler(ledgerService, metrics),
		Accounts:     handler.NewAccountHandler(masterDataService, ledgerService),
		Categories:   handler.NewCategoryHandler(masterDataService, reportService),
		Holders:      handler.NewHolderHandler(masterDataService),
		Currencies:   handler.NewCurrencyHandler(masterDataService),
		Reports:      handler.NewReportHandler(reportService),
		Admin:        handler.NewAdminHandler(reportService, ledgerService, backupService),
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order: request id, recovery, access log,
	// tracing, metrics, profiling labels, security headers, CORS, body limit,
	// timeout, rate limit
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.AccessLog(log, "/health"))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
	engine.Use(middleware.SpanAnnotator())
	engine.Use(middleware.HTTPMetrics(provider.Meter("ledgerbook.http")))
	engine.Use(middleware.ProfilingLabels(profiler.IsEnabled(), "/health"))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.WriteTimeout > 0 {
		engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))
	}

	var limiters []*middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		limiters = append(limiters, rateLimiter)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
	limiters = append(limiters, authLimiter)

	routes := router.SetupAPI(engine, handlers, router.Guards{
		Authenticate: middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:  jwtService,
			Revocations: authService,
			Logger:      log,
		}),
		AdminOnly:     middleware.AdminOnly(),
		AuthRateLimit: middleware.AuthRateLimit(authLimiter),
		Idempotency:   middleware.Idempotency(stores.IdempotencyStore(), cfg.Ledger.IdempotencyTTL, log),
	})
	if cfg.HTTP.SwaggerEnabled {
		routes = append(routes, router.MountSwagger(engine))
	}
	for _, r := range routes {
		log.Debug("Route registered", zap.String("group", r.Group), zap.String("method", r.Method), zap.String("path", r.Path))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	for _, l := range limiters {
		l.Stop()
	}
	jobs.Stop(shutdownCtx)
	if err := profiler.Stop(); err != nil {
		log.Error("Failed to stop profiler", zap.Error(err))
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Failed to flush telemetry", zap.Error(err))
	}

	baseLog.Info("Server exited gracefully")
}

// publisherCloser is an event publisher that may hold a broker connection
type publisherCloser interface {
	ledger.EventPublisher
	Close() error
}

type nopCloser struct{ ledger.NopPublisher }

func (nopCloser) Close() error { return nil }

func newPublisher(cfg *config.Config, log *zap.Logger) publisherCloser {
	if cfg.Messaging.URL == "" {
		log.Info("Messaging not configured, ledger events are not published")
		return nopCloser{}
	}
	p, err := messaging.NewAMQPPublisher(cfg.Messaging, log.Named("messaging"))
	if err != nil {
		log.Warn("Failed to connect to message broker, ledger events are not published", zap.Error(err))
		return nopCloser{}
	}
	return p
}

// newUploader returns nil when object storage is disabled or unreachable,
// which keeps backups local only.
func newUploader(ctx context.Context, cfg *config.Config, log *zap.Logger) maintenance.Uploader {
	if !cfg.Storage.Enabled {
		return nil
	}
	bucket, err := storage.NewBackupBucket(&cfg.Storage,
		storage.WithLogger(log.Named("storage")),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err != nil {
		log.Warn("Failed to create object storage client, backups stay local", zap.Error(err))
		return nil
	}
	if err := bucket.EnsureBucket(ctx); err != nil {
		log.Warn("Backup bucket unavailable, backups stay local", zap.Error(err))
		return nil
	}
	return bucket
}

// maintenanceJobs owns the worker pool and the daily trigger feeding it
type maintenanceJobs struct {
	scheduler *scheduler.Scheduler
	trigger   *scheduler.DailyTrigger
	log       *zap.Logger
}

// newMaintenanceScheduler starts the nightly maintenance jobs. It returns a
// value whose Stop is a no-op when scheduling is disabled or misconfigured.
func newMaintenanceScheduler(ctx context.Context, cfg *config.Config, runner *maintenance.JobRunner, log *zap.Logger) *maintenanceJobs {
	m := &maintenanceJobs{log: log}
	if !cfg.Scheduler.Enabled {
		return m
	}

	jobTypes, err := scheduler.ParseJobTypes(cfg.Scheduler.Jobs)
	if err != nil {
		log.Error("Invalid scheduler.jobs, maintenance scheduling disabled", zap.Error(err))
		return m
	}

	sched := scheduler.NewScheduler(scheduler.Config{
		Workers:       cfg.Scheduler.Workers,
		JobTimeout:    cfg.Scheduler.JobTimeout,
		RetryAttempts: cfg.Scheduler.RetryAttempts,
		RetryDelay:    cfg.Scheduler.RetryDelay,
	}, runner, log.Named("scheduler"))
	trigger, err := scheduler.NewDailyTrigger(cfg.Scheduler.DailySchedule, jobTypes, sched, log.Named("scheduler"))
	if err != nil {
		log.Error("Invalid scheduler.daily_schedule, maintenance scheduling disabled", zap.Error(err))
		return m
	}

	if err := sched.Start(ctx); err != nil {
		log.Error("Failed to start maintenance scheduler", zap.Error(err))
		return m
	}
	if err := trigger.Start(ctx); err != nil {
		log.Error("Failed to start maintenance trigger", zap.Error(err))
	}
	m.scheduler, m.trigger = sched, trigger
	return m
}

func (m *maintenanceJobs) Stop(ctx context.Context) {
	if m.trigger != nil {
		if err := m.trigger.Stop(ctx); err != nil {
			m.log.Warn("Maintenance trigger stop timed out", zap.Error(err))
		}
	}
	if m.scheduler != nil {
		if err := m.scheduler.Stop(ctx); err != nil {
			m.log.Warn("Maintenance scheduler stop timed out", zap.Error(err))
		}
	}
}
