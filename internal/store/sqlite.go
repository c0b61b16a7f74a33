package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/station-climate-etl/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

const dateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS observations (
  station_id    TEXT    NOT NULL,
  date          TEXT    NOT NULL,
  max_temp      INTEGER NOT NULL,
  min_temp      INTEGER NOT NULL,
  precipitation INTEGER NOT NULL,
  created_at    TEXT    NOT NULL,
  PRIMARY KEY (station_id, date)
);
CREATE INDEX IF NOT EXISTS idx_observations_date ON observations(date);

CREATE TABLE IF NOT EXISTS annual_stats (
  station_id       TEXT    NOT NULL,
  year             INTEGER NOT NULL,
  avg_max_temp     REAL,
  avg_min_temp     REAL,
  total_precip_cm  REAL    NOT NULL,
  max_temp_samples INTEGER NOT NULL,
  min_temp_samples INTEGER NOT NULL,
  precip_samples   INTEGER NOT NULL,
  created_at       TEXT    NOT NULL,
  updated_at       TEXT    NOT NULL,
  PRIMARY KEY (station_id, year)
);
CREATE INDEX IF NOT EXISTS idx_annual_stats_year ON annual_stats(year);
`

// SQLite implements Store on a sqlite database.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) a file-backed sqlite database with WAL
// journaling and a busy timeout, applies the schema, and returns the store.
func Open(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	dsn := fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&"))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// SQLite serializes writers; a single connection avoids lock churn in
	// the batch workloads this service runs.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle. Callers own the handle's lifetime.
func New(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Migrate applies the schema. Safe to call on every startup.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CheckReadiness reports whether the database answers a ping.
func (s *SQLite) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) GetObservation(ctx context.Context, stationID string, date time.Time) (domain.Observation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT station_id, date, max_temp, min_temp, precipitation, created_at
		 FROM observations WHERE station_id = ? AND date = ?`,
		stationID, date.UTC().Format(dateLayout),
	)
	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Observation{}, ErrNotFound
	}
	if err != nil {
		return domain.Observation{}, fmt.Errorf("get observation %s/%s: %w", stationID, date.Format(dateLayout), err)
	}
	return obs, nil
}

func (s *SQLite) PutObservation(ctx context.Context, obs domain.Observation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations (station_id, date, max_temp, min_temp, precipitation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		obs.StationID,
		obs.Date.UTC().Format(dateLayout),
		obs.MaxTemp,
		obs.MinTemp,
		obs.Precipitation,
		obs.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert observation %s/%s: %w", obs.StationID, obs.Date.Format(dateLayout), err)
	}
	return nil
}

func (s *SQLite) ScanObservations(ctx context.Context, f ObservationFilter) ([]domain.Observation, error) {
	where, args := observationWhere(f)
	query := `SELECT station_id, date, max_temp, min_temp, precipitation, created_at
		 FROM observations` + where + ` ORDER BY station_id, date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan observations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	return collectObservations(rows)
}

func (s *SQLite) StationYears(ctx context.Context, stationID string, year int) ([]StationYear, error) {
	where, args := observationWhere(ObservationFilter{StationID: stationID, Year: year})
	query := `SELECT DISTINCT station_id, CAST(substr(date, 1, 4) AS INTEGER) AS yr
		 FROM observations` + where + ` ORDER BY station_id, yr`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan station years: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []StationYear
	for rows.Next() {
		var sy StationYear
		if err := rows.Scan(&sy.StationID, &sy.Year); err != nil {
			return nil, fmt.Errorf("scan station year row: %w", err)
		}
		out = append(out, sy)
	}
	return out, rows.Err()
}

func (s *SQLite) ListObservations(ctx context.Context, f ObservationFilter, p Page) ([]domain.Observation, int, error) {
	where, args := observationWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count observations: %w", err)
	}

	query := `SELECT station_id, date, max_temp, min_temp, precipitation, created_at
		 FROM observations` + where + ` ORDER BY date DESC, station_id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	obs, err := collectObservations(rows)
	if err != nil {
		return nil, 0, err
	}
	return obs, total, nil
}

func (s *SQLite) UpsertStats(ctx context.Context, stats domain.AnnualStats) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO annual_stats
		   (station_id, year, avg_max_temp, avg_min_temp, total_precip_cm,
		    max_temp_samples, min_temp_samples, precip_samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(station_id, year) DO UPDATE SET
		   avg_max_temp = excluded.avg_max_temp,
		   avg_min_temp = excluded.avg_min_temp,
		   total_precip_cm = excluded.total_precip_cm,
		   max_temp_samples = excluded.max_temp_samples,
		   min_temp_samples = excluded.min_temp_samples,
		   precip_samples = excluded.precip_samples,
		   updated_at = excluded.updated_at`,
		stats.StationID,
		stats.Year,
		nullableFloat(stats.AvgMaxTemp),
		nullableFloat(stats.AvgMinTemp),
		stats.TotalPrecipitation,
		stats.MaxTempSamples,
		stats.MinTempSamples,
		stats.PrecipSamples,
		stats.CreatedAt.UTC().Format(time.RFC3339),
		stats.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert stats %s/%d: %w", stats.StationID, stats.Year, err)
	}
	return nil
}

func (s *SQLite) GetStats(ctx context.Context, f StatsFilter, p Page) ([]domain.AnnualStats, int, error) {
	var conds []string
	var args []any
	if f.StationID != "" {
		conds = append(conds, "station_id = ?")
		args = append(args, f.StationID)
	}
	if f.Year != 0 {
		conds = append(conds, "year = ?")
		args = append(args, f.Year)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM annual_stats`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stats: %w", err)
	}

	query := `SELECT station_id, year, avg_max_temp, avg_min_temp, total_precip_cm,
	            max_temp_samples, min_temp_samples, precip_samples, created_at, updated_at
		 FROM annual_stats` + where + ` ORDER BY year DESC, station_id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stats: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []domain.AnnualStats
	for rows.Next() {
		var st domain.AnnualStats
		var avgMax, avgMin sql.NullFloat64
		var created, updated string
		if err := rows.Scan(&st.StationID, &st.Year, &avgMax, &avgMin, &st.TotalPrecipitation,
			&st.MaxTempSamples, &st.MinTempSamples, &st.PrecipSamples, &created, &updated); err != nil {
			return nil, 0, fmt.Errorf("scan stats row: %w", err)
		}
		if avgMax.Valid {
			st.AvgMaxTemp = &avgMax.Float64
		}
		if avgMin.Valid {
			st.AvgMinTemp = &avgMin.Float64
		}
		st.CreatedAt, _ = time.Parse(time.RFC3339, created)
		st.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// observationWhere builds the WHERE clause for observation filters. Year
// filters become a date range so the primary key index stays usable.
func observationWhere(f ObservationFilter) (string, []any) {
	var conds []string
	var args []any

	if f.StationID != "" {
		conds = append(conds, "station_id = ?")
		args = append(args, f.StationID)
	}
	if f.Year != 0 {
		conds = append(conds, "date BETWEEN ? AND ?")
		args = append(args, fmt.Sprintf("%04d-01-01", f.Year), fmt.Sprintf("%04d-12-31", f.Year))
	}
	if !f.Date.IsZero() {
		conds = append(conds, "date = ?")
		args = append(args, f.Date.UTC().Format(dateLayout))
	}
	if !f.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, f.From.UTC().Format(dateLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, f.To.UTC().Format(dateLayout))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(r rowScanner) (domain.Observation, error) {
	var obs domain.Observation
	var date, created string
	if err := r.Scan(&obs.StationID, &date, &obs.MaxTemp, &obs.MinTemp, &obs.Precipitation, &created); err != nil {
		return domain.Observation{}, err
	}
	d, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	obs.Date = d
	obs.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return obs, nil
}

func collectObservations(rows *sql.Rows) ([]domain.Observation, error) {
	var out []domain.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
