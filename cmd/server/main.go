package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/station-climate-etl/internal/adapter/http"
	"github.com/couchcryptid/station-climate-etl/internal/aggregate"
	"github.com/couchcryptid/station-climate-etl/internal/config"
	"github.com/couchcryptid/station-climate-etl/internal/observability"
	"github.com/couchcryptid/station-climate-etl/internal/scheduler"
	"github.com/couchcryptid/station-climate-etl/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	st, err := store.Open(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", cfg.SQLitePath)
		os.Exit(1)
	}

	aggregator := aggregate.New(st, logger, metrics, nil)
	sched := scheduler.New(aggregator, cfg.StatsInterval, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, st, st, logger, cfg.PageSizeDefault, cfg.PageSizeMax)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := st.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
