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

	"github.com/schooldesk/schooldesk/cmd/schooldesk/cli"
	"github.com/schooldesk/schooldesk/internal/app"
	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/platform/cache"
	"github.com/schooldesk/schooldesk/internal/listing"
	"github.com/schooldesk/schooldesk/internal/observability"
	"github.com/schooldesk/schooldesk/internal/session"
	"github.com/schooldesk/schooldesk/internal/settings"
	"github.com/schooldesk/schooldesk/internal/shared"
	"github.com/schooldesk/schooldesk/internal/storage"
	"github.com/schooldesk/schooldesk/internal/timetable"
	"github.com/schooldesk/schooldesk/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI, err := cli.NewJobsCLI(cfg.QueueRedis())
		if err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			os.Exit(1)
		}
		code := cli.Run(ctx, jobsCLI, os.Args[2:], os.Stdout, os.Stderr)
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
		stop()
		os.Exit(code)
	}

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
	clientManager := shared.NewClientManager(cfg.ClientCookie, cfg.ClientTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	api := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	settingsService := settings.NewService(api, logger)

	sessionService := session.NewService(session.Config{
		RestrictedRoles:    []string{"student", "parent"},
		RestrictedRedirect: cfg.RestrictedRedirectURL,
		DefaultTokenTTL:    cfg.DefaultTokenTTL,
		RedirectOnExpiry:   cfg.RedirectOnExpiry,
	}, api, settingsService, metrics, logger)

	palette, err := timetable.DefaultPalette()
	if err != nil {
		logger.Error("load palette", slog.Any("error", err))
		os.Exit(1)
	}
	registry := timetable.NewRegistry(cfg.EditorTTL)
	go registry.Run(ctx, time.Minute, logger)
	metrics.RegisterGauge("schooldesk_timetable_editors_open", "Timetable editors currently open.", func() float64 {
		return float64(registry.Len())
	})
	timetableService := timetable.NewService(api, settingsService, palette, registry, metrics, logger)

	filters := listing.NewFilterStore(provider)

	gate := session.NewGate(sessionService, provider,
		session.AppStoreFunc(func(id string) session.AppStore { return filters.ForClient(id) }),
		session.AppStoreFunc(func(id string) session.AppStore { return registry.ForClient(id) }),
	)

	inspector := asynq.NewInspector(cfg.QueueRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ClientManager:    clientManager,
		CSRFManager:      csrfManager,
		SessionHandler:   session.NewHandler(logger, gate, csrfManager),
		TimetableHandler: timetable.NewHandler(logger, timetableService, provider, gate),
		ListingHandler:   listing.NewHandler(logger, api, filters, gate, cfg.ListPageSize),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
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
