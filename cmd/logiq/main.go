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

	"github.com/logiq-bot/logiq/internal/app"
	"github.com/logiq-bot/logiq/internal/audit"
	"github.com/logiq-bot/logiq/internal/authz"
	"github.com/logiq-bot/logiq/internal/capability"
	"github.com/logiq-bot/logiq/internal/moderation"
	"github.com/logiq-bot/logiq/internal/observability"
	"github.com/logiq-bot/logiq/internal/override"
	"github.com/logiq-bot/logiq/internal/platform/cache"
	"github.com/logiq-bot/logiq/internal/platform/db"
	"github.com/logiq-bot/logiq/internal/sanction"
	"github.com/logiq-bot/logiq/internal/security"
	"github.com/logiq-bot/logiq/jobs"
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

	registry := capability.NewRegistry()

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo, logger)
	auditHandler := audit.NewHandler(logger, auditService)

	overrideRepo := override.NewRepository(pool)
	overrideService := override.NewService(overrideRepo, registry, auditService, logger)
	overrideHandler := override.NewHandler(logger, overrideService)

	if err := registry.ValidateStored(ctx, overrideRepo, logger); err != nil {
		logger.Warn("validate stored capability keys", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()

	engine := authz.NewEngine(overrideService, logger)
	engine.OnDecision = func(key capability.Key, verdict authz.Verdict) {
		metrics.ObserveDecision(string(key), verdict.Allowed, string(verdict.Reason))
	}
	engine.Denials = authz.NewDenialNotifier(redisClient, logger, cfg.DenialLogWindow)
	authzHandler := authz.NewHandler(logger, engine, registry)

	securityRepo := security.NewRepository(pool)
	securityService := security.NewService(securityRepo, redisClient, cfg.SecurityCacheTTL, logger)
	securityHandler := security.NewHandler(logger, securityService)

	sanctionRepo := sanction.NewRepository(pool)
	sanctionService := sanction.NewService(sanctionRepo, cfg.SanctionDurations, cfg.SanctionHistoryLimit, logger)

	restrictor := &moderation.GatewayRestrictor{
		BaseURL: cfg.GatewayURL,
		Token:   cfg.GatewayToken,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
	sanctionHandler := moderation.NewHandler(logger, engine, registry, sanctionService, securityService, restrictor)
	sanctionHandler.OnSanction = metrics.ObserveSanction

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthzHandler:    authzHandler,
		OverrideHandler: overrideHandler,
		AuditHandler:    auditHandler,
		SanctionHandler: sanctionHandler,
		SecurityHandler: securityHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
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
