// Command stats recomputes annual statistics from stored observations.
//
// Usage:
//
//	go run ./cmd/stats [-station USC00110072] [-year 2014]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/station-climate-etl/internal/adapter/kafka"
	"github.com/couchcryptid/station-climate-etl/internal/aggregate"
	"github.com/couchcryptid/station-climate-etl/internal/config"
	"github.com/couchcryptid/station-climate-etl/internal/observability"
	"github.com/couchcryptid/station-climate-etl/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("stats calculation failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	station := flag.String("station", "", "limit to one station (default: all)")
	year := flag.Int("year", 0, "limit to one year (default: all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	st, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck // process exits next

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	aggregator := aggregate.New(st, logger, metrics, nil)
	summary, err := aggregator.Run(ctx, *station, *year)
	if err != nil {
		return err
	}

	fmt.Printf("stations processed: %d\n", summary.StationsProcessed)
	fmt.Printf("years processed:    %d\n", summary.YearsProcessed)
	fmt.Printf("groups computed:    %d\n", summary.GroupsComputed)

	if cfg.KafkaEnabled {
		notifier := kafka.NewNotifier(cfg, logger)
		defer notifier.Close() //nolint:errcheck // process exits next
		if err := notifier.PublishSummary(ctx, kafka.RunStats, summary); err != nil {
			logger.Warn("publish stats summary failed", "error", err)
		}
	}
	return nil
}
