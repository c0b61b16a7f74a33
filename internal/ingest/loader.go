package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
	"github.com/couchcryptid/station-climate-etl/internal/observability"
	"github.com/couchcryptid/station-climate-etl/internal/store"
)

// ErrSourceUnavailable marks a source directory or file that could not be
// opened or read. Unlike per-line parse failures, it aborts the run.
var ErrSourceUnavailable = errors.New("source unavailable")

// Summary is the immutable result of one ingestion run. Re-ingesting the
// same files is idempotent: the second run reports Inserted=0 and every
// observation under SkippedDuplicate.
type Summary struct {
	FilesProcessed   int      `json:"files_processed"`
	Inserted         int      `json:"inserted"`
	SkippedDuplicate int      `json:"skipped_duplicate"`
	SkippedInvalid   int      `json:"skipped_invalid"`
	Stations         []string `json:"stations"`
}

// Loader parses station files and persists each observation exactly once,
// using the store's (station, date) key to detect duplicates.
type Loader struct {
	store   store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader with the given store and observability.
func NewLoader(st store.Store, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		store:   st,
		logger:  logger,
		metrics: metrics,
	}
}

// IngestDirectory ingests every station file (*.txt, *.dly) in dir. The
// station identifier is the file name without its extension. A missing or
// unreadable directory or file aborts the run; malformed lines are counted
// and skipped.
func (l *Loader) IngestDirectory(ctx context.Context, dir string) (Summary, error) {
	start := time.Now()
	l.metrics.IngestRunning.Set(1)
	defer l.metrics.IngestRunning.Set(0)

	files, err := stationFiles(dir)
	if err != nil {
		return Summary{}, err
	}
	l.logger.Info("ingestion started", "dir", dir, "files", len(files))

	summary := Summary{}
	stations := make(map[string]struct{})
	for _, path := range files {
		if err := l.ingestFile(ctx, path, &summary, stations); err != nil {
			return Summary{}, err
		}
		summary.FilesProcessed++
		l.metrics.FilesProcessed.Inc()
	}

	summary.Stations = sortedKeys(stations)
	l.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	l.logger.Info("ingestion completed",
		"duration", time.Since(start),
		"files", summary.FilesProcessed,
		"inserted", summary.Inserted,
		"skipped_duplicate", summary.SkippedDuplicate,
		"skipped_invalid", summary.SkippedInvalid,
	)
	return summary, nil
}

// IngestFile ingests a single station file.
func (l *Loader) IngestFile(ctx context.Context, path string) (Summary, error) {
	summary := Summary{}
	stations := make(map[string]struct{})
	if err := l.ingestFile(ctx, path, &summary, stations); err != nil {
		return Summary{}, err
	}
	summary.FilesProcessed = 1
	summary.Stations = sortedKeys(stations)
	l.metrics.FilesProcessed.Inc()
	return summary, nil
}

func (l *Loader) ingestFile(ctx context.Context, path string, summary *Summary, stations map[string]struct{}) error {
	stationID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	l.logger.Info("processing station file", "path", path, "station", stationID)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		obs, err := domain.ParseLine(line, stationID)
		if err != nil {
			l.logger.Warn("skipping malformed line", "station", stationID, "error", err)
			l.metrics.InvalidLinesSkipped.Inc()
			summary.SkippedInvalid++
			continue
		}

		inserted, err := l.persist(ctx, obs)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		if inserted {
			summary.Inserted++
			l.metrics.ObservationsInserted.Inc()
		} else {
			summary.SkippedDuplicate++
			l.metrics.DuplicatesSkipped.Inc()
		}
		stations[stationID] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, path, err)
	}
	return nil
}

// persist writes the observation unless its (station, date) key already
// exists. The existing row is never modified. Returns true when a new row
// was inserted.
func (l *Loader) persist(ctx context.Context, obs domain.Observation) (bool, error) {
	_, err := l.store.GetObservation(ctx, obs.StationID, obs.Date)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, store.ErrNotFound):
		if err := l.store.PutObservation(ctx, obs); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}

func stationFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: directory %s: %v", ErrSourceUnavailable, dir, err)
	}

	var files []string
	for _, pattern := range []string{"*.txt", "*.dly"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("%w: glob %s: %v", ErrSourceUnavailable, pattern, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
