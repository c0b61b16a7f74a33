package aggregate_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-climate-etl/internal/aggregate"
	"github.com/couchcryptid/station-climate-etl/internal/domain"
	"github.com/couchcryptid/station-climate-etl/internal/observability"
	"github.com/couchcryptid/station-climate-etl/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

var frozenTime = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.SQLite {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := store.New(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newAggregator(t *testing.T, s *store.SQLite) *aggregate.Aggregator {
	t.Helper()
	return aggregate.New(s, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting(), clockwork.NewFakeClockAt(frozenTime))
}

func seed(t *testing.T, s *store.SQLite, station string, date time.Time, maxT, minT, precip int) {
	t.Helper()
	require.NoError(t, s.PutObservation(context.Background(), domain.Observation{
		StationID:     station,
		Date:          date,
		MaxTemp:       maxT,
		MinTemp:       minT,
		Precipitation: precip,
		CreatedAt:     frozenTime,
	}))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func statsFor(t *testing.T, s *store.SQLite, station string, year int) domain.AnnualStats {
	t.Helper()
	rows, _, err := s.GetStats(context.Background(), store.StatsFilter{StationID: station, Year: year}, store.Page{Number: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func TestRun_AveragesExcludeSentinels(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "USC00110072", day(2014, time.January, 1), 100, -20, 100)
	seed(t, s, "USC00110072", day(2014, time.January, 2), -9999, -10, -9999)
	seed(t, s, "USC00110072", day(2014, time.January, 3), 200, -9999, 150)

	summary, err := newAggregator(t, s).Run(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.StationsProcessed)
	assert.Equal(t, 1, summary.YearsProcessed)
	assert.Equal(t, 1, summary.GroupsComputed)

	stats := statsFor(t, s, "USC00110072", 2014)
	require.NotNil(t, stats.AvgMaxTemp)
	assert.Equal(t, 15.0, *stats.AvgMaxTemp) // (10.0 + 20.0) / 2, not / 3
	require.NotNil(t, stats.AvgMinTemp)
	assert.Equal(t, -1.5, *stats.AvgMinTemp)
	assert.Equal(t, 2.5, stats.TotalPrecipitation)
	assert.Equal(t, frozenTime, stats.UpdatedAt)
}

func TestRun_AllMissingGroupIsWritten(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "X", day(2014, time.June, 1), -9999, -9999, -9999)

	summary, err := newAggregator(t, s).Run(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.GroupsComputed)

	stats := statsFor(t, s, "X", 2014)
	assert.Nil(t, stats.AvgMaxTemp)
	assert.Nil(t, stats.AvgMinTemp)
	assert.Equal(t, 0.0, stats.TotalPrecipitation)
}

func TestRun_RecomputesFromScratch(t *testing.T) {
	s := newTestStore(t)
	agg := newAggregator(t, s)
	ctx := context.Background()

	seed(t, s, "A", day(2014, time.January, 1), 100, 0, 0)
	_, err := agg.Run(ctx, "", 0)
	require.NoError(t, err)
	first := statsFor(t, s, "A", 2014)
	require.NotNil(t, first.AvgMaxTemp)
	assert.Equal(t, 10.0, *first.AvgMaxTemp)

	// New data arrives; a rerun fully overwrites, it does not accumulate.
	seed(t, s, "A", day(2014, time.January, 2), 300, 0, 0)
	_, err = agg.Run(ctx, "", 0)
	require.NoError(t, err)
	second := statsFor(t, s, "A", 2014)
	require.NotNil(t, second.AvgMaxTemp)
	assert.Equal(t, 20.0, *second.AvgMaxTemp)
	assert.Equal(t, 2, second.MaxTempSamples)

	// Re-running over unchanged data is a no-op on the values.
	_, err = agg.Run(ctx, "", 0)
	require.NoError(t, err)
	third := statsFor(t, s, "A", 2014)
	assert.Equal(t, *second.AvgMaxTemp, *third.AvgMaxTemp)
}

func TestRun_StationAndYearFilters(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "A", day(2013, time.July, 1), 100, 0, 0)
	seed(t, s, "A", day(2014, time.July, 1), 100, 0, 0)
	seed(t, s, "B", day(2014, time.July, 1), 100, 0, 0)
	agg := newAggregator(t, s)
	ctx := context.Background()

	summary, err := agg.Run(ctx, "A", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GroupsComputed)
	assert.Equal(t, 1, summary.StationsProcessed)
	assert.Equal(t, 2, summary.YearsProcessed)

	_, total, err := s.GetStats(ctx, store.StatsFilter{}, store.Page{Number: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	summary, err = agg.Run(ctx, "", 2014)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GroupsComputed)
	assert.Equal(t, 2, summary.StationsProcessed)
	assert.Equal(t, 1, summary.YearsProcessed)
}

func TestRun_EmptyStore(t *testing.T) {
	s := newTestStore(t)

	summary, err := newAggregator(t, s).Run(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Zero(t, summary.GroupsComputed)
}
