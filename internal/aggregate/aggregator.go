package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
	"github.com/couchcryptid/station-climate-etl/internal/observability"
	"github.com/couchcryptid/station-climate-etl/internal/store"
)

// Summary is the immutable result of one aggregation run.
type Summary struct {
	StationsProcessed int `json:"stations_processed"`
	YearsProcessed    int `json:"years_processed"`
	GroupsComputed    int `json:"groups_computed"`
}

// Aggregator recomputes annual statistics from stored observations. Each
// (station, year) group is derived from scratch and written as a full
// overwrite, so partial or repeated runs are safe.
type Aggregator struct {
	store   store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// New creates an Aggregator. Pass a nil clock to use real time.
func New(st store.Store, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Aggregator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Aggregator{
		store:   st,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
	}
}

// Run recomputes stats for every (station, year) group matching the filter.
// An empty stationID means all stations; a zero year means all years. Groups
// whose observations are all sentinel-valued are still written, with nil
// averages and a zero precipitation total, so data gaps stay visible.
func (a *Aggregator) Run(ctx context.Context, stationID string, year int) (Summary, error) {
	start := time.Now()
	a.logger.Info("aggregation started", "station", orAll(stationID), "year", year)

	groups, err := a.store.StationYears(ctx, stationID, year)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate: %w", err)
	}

	stations := make(map[string]struct{})
	years := make(map[int]struct{})
	summary := Summary{}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if err := a.computeGroup(ctx, g); err != nil {
			return Summary{}, err
		}
		stations[g.StationID] = struct{}{}
		years[g.Year] = struct{}{}
		summary.GroupsComputed++
		a.metrics.StatsGroupsComputed.Inc()
	}

	summary.StationsProcessed = len(stations)
	summary.YearsProcessed = len(years)

	a.metrics.StatsRunDuration.Observe(time.Since(start).Seconds())
	a.logger.Info("aggregation completed",
		"duration", time.Since(start),
		"stations", summary.StationsProcessed,
		"years", summary.YearsProcessed,
		"groups", summary.GroupsComputed,
	)
	return summary, nil
}

func (a *Aggregator) computeGroup(ctx context.Context, g store.StationYear) error {
	obs, err := a.store.ScanObservations(ctx, store.ObservationFilter{
		StationID: g.StationID,
		Year:      g.Year,
	})
	if err != nil {
		return fmt.Errorf("aggregate %s/%d: %w", g.StationID, g.Year, err)
	}

	stats := domain.ComputeAnnualStats(g.StationID, g.Year, obs)
	now := a.clock.Now().UTC()
	stats.CreatedAt = now
	stats.UpdatedAt = now

	if err := a.store.UpsertStats(ctx, stats); err != nil {
		return fmt.Errorf("aggregate %s/%d: %w", g.StationID, g.Year, err)
	}
	return nil
}

func orAll(stationID string) string {
	if stationID == "" {
		return "all"
	}
	return stationID
}
