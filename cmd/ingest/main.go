// Command ingest loads station observation files into the store and prints
// an ingestion summary. Re-running over the same files is idempotent.
//
// Usage:
//
//	go run ./cmd/ingest -data-dir wx_data [-stats]
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
	"github.com/couchcryptid/station-climate-etl/internal/ingest"
	"github.com/couchcryptid/station-climate-etl/internal/observability"
	"github.com/couchcryptid/station-climate-etl/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	dataDir := flag.String("data-dir", "", "directory containing station files (defaults to DATA_DIR)")
	withStats := flag.Bool("stats", false, "recompute annual stats after ingestion")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	dir := *dataDir
	if dir == "" {
		dir = cfg.DataDir
	}

	st, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck // process exits next

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifier *kafka.Notifier
	if cfg.KafkaEnabled {
		notifier = kafka.NewNotifier(cfg, logger)
		defer notifier.Close() //nolint:errcheck // process exits next
	}

	loader := ingest.NewLoader(st, logger, metrics)
	summary, err := loader.IngestDirectory(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Printf("files processed:    %d\n", summary.FilesProcessed)
	fmt.Printf("inserted:           %d\n", summary.Inserted)
	fmt.Printf("skipped duplicates: %d\n", summary.SkippedDuplicate)
	fmt.Printf("skipped invalid:    %d\n", summary.SkippedInvalid)
	fmt.Printf("stations:           %d\n", len(summary.Stations))

	if notifier != nil {
		if err := notifier.PublishSummary(ctx, kafka.RunIngest, summary); err != nil {
			logger.Warn("publish ingest summary failed", "error", err)
		}
	}

	if !*withStats {
		return nil
	}

	aggregator := aggregate.New(st, logger, metrics, nil)
	statsSummary, err := aggregator.Run(ctx, "", 0)
	if err != nil {
		return err
	}
	fmt.Printf("stats groups:       %d\n", statsSummary.GroupsComputed)

	if notifier != nil {
		if err := notifier.PublishSummary(ctx, kafka.RunStats, statsSummary); err != nil {
			logger.Warn("publish stats summary failed", "error", err)
		}
	}
	return nil
}
