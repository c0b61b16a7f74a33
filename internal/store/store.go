package store

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("not found")

// StationYear identifies one aggregation group.
type StationYear struct {
	StationID string
	Year      int
}

// ObservationFilter narrows observation queries. Zero values mean "no
// constraint". From/To bound the observation date inclusively.
type ObservationFilter struct {
	StationID string
	Year      int
	Date      time.Time
	From      time.Time
	To        time.Time
}

// StatsFilter narrows annual-stats queries. Zero values mean "no constraint".
type StatsFilter struct {
	StationID string
	Year      int
}

// Page selects a slice of a result set. Number is 1-based.
type Page struct {
	Number  int
	PerPage int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.PerPage
}

// Store is the durable keyed storage consumed by the loader, the aggregator,
// and the read API. The (station, date) key is unique for observations and
// (station, year) for stats; implementations enforce both.
type Store interface {
	// GetObservation returns the observation for the exact (station, date)
	// key, or ErrNotFound.
	GetObservation(ctx context.Context, stationID string, date time.Time) (domain.Observation, error)

	// PutObservation inserts a new observation. Inserting an existing
	// (station, date) key is an error; callers check existence first.
	PutObservation(ctx context.Context, obs domain.Observation) error

	// ScanObservations returns all observations matching the filter,
	// ordered by station then date.
	ScanObservations(ctx context.Context, f ObservationFilter) ([]domain.Observation, error)

	// StationYears returns the distinct (station, year) groups present in
	// the observation set, optionally narrowed by station and/or year.
	StationYears(ctx context.Context, stationID string, year int) ([]StationYear, error)

	// ListObservations returns one page of observations plus the total
	// match count.
	ListObservations(ctx context.Context, f ObservationFilter, p Page) ([]domain.Observation, int, error)

	// UpsertStats writes the stats row for its (station, year) key,
	// overwriting any previous row.
	UpsertStats(ctx context.Context, stats domain.AnnualStats) error

	// GetStats returns one page of annual stats plus the total match count.
	GetStats(ctx context.Context, f StatsFilter, p Page) ([]domain.AnnualStats, int, error)
}
