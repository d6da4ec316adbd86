package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"villaledger/internal/amqp"
	"villaledger/internal/auth"
	"villaledger/internal/cache"
	"villaledger/internal/cli"
	apphttp "villaledger/internal/http"
	applog "villaledger/internal/log"
	"villaledger/internal/metrics"
	"villaledger/internal/report"
	"villaledger/internal/services"
	"villaledger/internal/snapshot"
	"villaledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err.Error())
		}
	}()

	m := metrics.New()
	facade := report.New(snapshot.NewLoader(store.Store, logger), cli.ReportOptions(cfg, m, logger))

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(facade.SummaryCache())
	cacheManager.StartCleanup(10 * time.Minute)

	// The first load may fail when the source is down; the server starts
	// anyway and /readyz reports 503 until a reload succeeds.
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := facade.Reload(startCtx); err != nil {
		logger.Warn("Initial snapshot load failed", applog.FieldError, err.Error(), applog.FieldOperation, applog.OpStartup)
	}
	startCancel()

	// AMQP is optional: without it writes reload in-process and only the
	// periodic refresh picks up edits made directly in the store.
	var (
		publisher amqp.Publisher
		consumer  worker.Consumer
	)
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, falling back to in-process reloads", applog.FieldError, err.Error())
		} else {
			defer amqpClient.Close()
			publisher, consumer = amqpClient, amqpClient
		}
	}

	ledgerService := services.NewLedgerService(store.Store, publisher, facade, logger)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Facade:             facade,
		Ledger:             ledgerService,
		Tokens:             auth.NewJWTManager(cfg.SessionSecret, cfg.SessionTTL),
		Metrics:            m,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		cacheManager.Stop()
	})

	reloadWorker := worker.NewReloadWorker(facade, consumer, cfg.ReloadInterval, logger)
	go func() {
		if err := reloadWorker.Run(ctx); err != nil {
			logger.Error("Reload worker stopped", applog.FieldError, err.Error())
		}
	}()

	logger.Info("Starting villaledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", publisher != nil,
		"reload_interval", cfg.ReloadInterval.String(),
		"legacy_month_matching", cfg.LegacyMonthMatching)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
