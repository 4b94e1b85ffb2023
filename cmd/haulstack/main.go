package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/haulstack/haulstack/internal/app"
	"github.com/haulstack/haulstack/internal/audit"
	audithttp "github.com/haulstack/haulstack/internal/audit/http"
	"github.com/haulstack/haulstack/internal/auth"
	"github.com/haulstack/haulstack/internal/customroles"
	"github.com/haulstack/haulstack/internal/observability"
	"github.com/haulstack/haulstack/internal/platform/cache"
	"github.com/haulstack/haulstack/internal/platform/db"
	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/shared"
	"github.com/haulstack/haulstack/internal/users"
	"github.com/haulstack/haulstack/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "haulstack_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	catalog, err := rbac.NewCatalog()
	if err != nil {
		logger.Error("build role catalog", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	auditClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := auditClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, catalog, auditClient, logger, metrics.AuditEnqueueFailures())

	authService := auth.NewService(usersRepo)
	authMiddleware := auth.Middleware{Service: authService, Catalog: catalog, Logger: logger}
	authHandler := auth.NewHandler(logger, authService, sessionManager, authMiddleware)

	usersHandler := users.NewHandler(logger, usersService, authMiddleware.RequireAny, metrics.CountRoleChange)

	customRolesService := customroles.NewService(catalog, customroles.NewRepository(pool))
	customRolesHandler := customroles.NewHandler(logger, customRolesService, authMiddleware.RequireAny)

	auditService := audit.NewService(audit.NewRepository(pool))
	auditHandler := audithttp.NewHandler(logger, auditService)

	catalogHandler := rbac.NewHandler(catalog)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Pool:               pool,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		CatalogHandler:     catalogHandler,
		UsersHandler:       usersHandler,
		CustomRolesHandler: customRolesHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
