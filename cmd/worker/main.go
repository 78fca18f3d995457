package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logiq-bot/logiq/internal/app"
	"github.com/logiq-bot/logiq/internal/audit"
	"github.com/logiq-bot/logiq/internal/sanction"
	"github.com/logiq-bot/logiq/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	retention := &jobs.Retention{
		Audits:    audit.NewRepository(pool),
		Sanctions: sanction.NewRepository(pool),
		Logger:    logger,
	}

	auditTask, err := jobs.NewAuditPruneTask(jobs.RetentionPayload{OlderThan: cfg.AuditRetention.String()})
	if err != nil {
		logger.Error("build audit prune task", slog.Any("error", err))
		os.Exit(1)
	}
	sanctionTask, err := jobs.NewSanctionPruneTask(jobs.RetentionPayload{OlderThan: cfg.SanctionRetention.String()})
	if err != nil {
		logger.Error("build sanction prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Retention: retention,
		Cron: []jobs.CronRegistration{
			{Spec: "45 3 * * *", Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 4 * * *", Task: sanctionTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
