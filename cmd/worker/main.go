package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/schooldesk/schooldesk/internal/app"
	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/platform/cache"
	jobmetrics "github.com/schooldesk/schooldesk/internal/jobs"
	"github.com/schooldesk/schooldesk/internal/listing"
	"github.com/schooldesk/schooldesk/internal/session"
	"github.com/schooldesk/schooldesk/internal/settings"
	"github.com/schooldesk/schooldesk/internal/storage"
	"github.com/schooldesk/schooldesk/jobs"
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

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	provider := storage.NewRedisProvider(redisClient, cfg.ClientTTL)
	api := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	sessionService := session.NewService(session.Config{
		DefaultTokenTTL:  cfg.DefaultTokenTTL,
		RedirectOnExpiry: cfg.RedirectOnExpiry,
	}, api, settings.NewService(api, logger), nil, logger)

	// Editors live in the server process; the worker only resets persisted state.
	filters := listing.NewFilterStore(provider)
	gate := session.NewGate(sessionService, provider,
		session.AppStoreFunc(func(id string) session.AppStore { return filters.ForClient(id) }),
	)

	sweepJob := jobs.NewSessionSweepJob(gate, logger, jobmetrics.NewMetrics(nil))
	sweepTask, err := jobs.NewSessionSweepTask(time.Time{})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.QueueRedis(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
