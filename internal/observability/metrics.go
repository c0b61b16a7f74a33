package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion and aggregation batch jobs.
type Metrics struct {
	ObservationsInserted prometheus.Counter
	DuplicatesSkipped    prometheus.Counter
	InvalidLinesSkipped  prometheus.Counter
	FilesProcessed       prometheus.Counter
	IngestRunning        prometheus.Gauge
	IngestDuration       prometheus.Histogram

	StatsGroupsComputed prometheus.Counter
	StatsRunDuration    prometheus.Histogram
}

// NewMetrics creates and registers all job metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "observations_inserted_total",
			Help:      "Total observations written to the store.",
		}),
		DuplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "duplicates_skipped_total",
			Help:      "Total observations skipped because the (station, date) key already existed.",
		}),
		InvalidLinesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "invalid_lines_skipped_total",
			Help:      "Total source lines that failed to parse.",
		}),
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "files_processed_total",
			Help:      "Total station files ingested to completion.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_etl",
			Name:      "ingest_running",
			Help:      "1 while an ingestion run is in progress.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_etl",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete ingestion run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		StatsGroupsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "stats_groups_computed_total",
			Help:      "Total (station, year) groups recomputed.",
		}),
		StatsRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_etl",
			Name:      "stats_run_duration_seconds",
			Help:      "Duration of a complete aggregation run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
	}

	prometheus.MustRegister(
		m.ObservationsInserted,
		m.DuplicatesSkipped,
		m.InvalidLinesSkipped,
		m.FilesProcessed,
		m.IngestRunning,
		m.IngestDuration,
		m.StatsGroupsComputed,
		m.StatsRunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry
// to avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsInserted: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "observations_inserted_total"}),
		DuplicatesSkipped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "duplicates_skipped_total"}),
		InvalidLinesSkipped:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "invalid_lines_skipped_total"}),
		FilesProcessed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "files_processed_total"}),
		IngestRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_etl", Name: "ingest_running"}),
		IngestDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_etl", Name: "ingest_duration_seconds"}),
		StatsGroupsComputed:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "stats_groups_computed_total"}),
		StatsRunDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_etl", Name: "stats_run_duration_seconds"}),
	}
}
