package ingest_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-climate-etl/internal/ingest"
	"github.com/couchcryptid/station-climate-etl/internal/observability"
	"github.com/couchcryptid/station-climate-etl/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

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

func newLoader(t *testing.T, s *store.SQLite) *ingest.Loader {
	t.Helper()
	return ingest.NewLoader(s, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIngestDirectory(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "USC00110072.txt", "20140101\t100\t-20\t0\n20140102\t150\t-10\t25\n")
	writeFile(t, dir, "USC00257715.dly", "20140101 289 117 -9999\n")

	summary, err := newLoader(t, s).IngestDirectory(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.FilesProcessed)
	assert.Equal(t, 3, summary.Inserted)
	assert.Zero(t, summary.SkippedDuplicate)
	assert.Zero(t, summary.SkippedInvalid)
	assert.Equal(t, []string{"USC00110072", "USC00257715"}, summary.Stations)

	got, err := s.GetObservation(context.Background(), "USC00257715", time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 289, got.MaxTemp)
}

func TestIngestDirectory_Idempotent(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "USC00110072.txt", "20140101\t100\t-20\t0\n20140102\t150\t-10\t25\n20140103\t-9999\t-9999\t-9999\n")
	loader := newLoader(t, s)

	first, err := loader.IngestDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, err := loader.IngestDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 3, second.SkippedDuplicate)
	assert.Equal(t, []string{"USC00110072"}, second.Stations)

	// Store content matches a single run.
	_, total, err := s.ListObservations(context.Background(), store.ObservationFilter{}, store.Page{Number: 1, PerPage: 100})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestIngestFile_DuplicateDateWithinFile(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "USC00110072.dly", "20140101 100 -20 0\n20140101 150 -10 5\n")

	summary, err := newLoader(t, s).IngestFile(context.Background(), filepath.Join(dir, "USC00110072.dly"))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.SkippedDuplicate)

	// Exactly one observation exists for the key, holding the first line's values.
	got, err := s.GetObservation(context.Background(), "USC00110072", time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 100, got.MaxTemp)
	assert.Equal(t, -20, got.MinTemp)
}

func TestIngestDirectory_InvalidLinesSkipped(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "USC00110072.txt",
		"20140101\t100\t-20\t0\n"+
			"not a record\n"+
			"20141301\t100\t-20\t0\n"+
			"\n"+
			"20140102\t150\t-10\t25\n")

	summary, err := newLoader(t, s).IngestDirectory(context.Background(), dir)
	require.NoError(t, err)

	// Bad lines are tallied, the batch keeps going, blanks are ignored.
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 2, summary.SkippedInvalid)
	assert.Zero(t, summary.SkippedDuplicate)
}

func TestIngestDirectory_MissingDir(t *testing.T) {
	s := newTestStore(t)

	_, err := newLoader(t, s).IngestDirectory(context.Background(), "/no/such/dir")
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrSourceUnavailable)
}

func TestIngestDirectory_EmptyDir(t *testing.T) {
	s := newTestStore(t)

	summary, err := newLoader(t, s).IngestDirectory(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, summary.FilesProcessed)
	assert.Empty(t, summary.Stations)
}

func TestIngestDirectory_ContextCancelled(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "USC00110072.txt", "20140101\t100\t-20\t0\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newLoader(t, s).IngestDirectory(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}
