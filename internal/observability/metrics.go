package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// consolidation pipeline.
type Metrics struct {
	FilesValidated    *prometheus.CounterVec // labels: region, outcome
	ReshapeWarnings   prometheus.Counter
	ReshapeFailures   prometheus.Counter
	ConflictsResolved *prometheus.CounterVec // labels: region
	RegionsMerged     prometheus.Counter
	PipelineRunning   prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage={validate,reshape,consolidate,merge}

	// Final matrix shape, set once per completed run.
	MatrixDates    prometheus.Gauge
	MatrixStations prometheus.Gauge

	AuditEntries    prometheus.Counter
	AuditSinkErrors prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gw_etl",
			Name:      "files_validated_total",
			Help:      "Raw files inspected, by region and verdict outcome.",
		}, []string{"region", "outcome"}),
		ReshapeWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_etl",
			Name:      "reshape_warnings_total",
			Help:      "Row-level anomalies (duplicates, bad dates, bad levels) in accepted files.",
		}),
		ReshapeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_etl",
			Name:      "reshape_failures_total",
			Help:      "Accepted files that failed pivoting and were skipped.",
		}),
		ConflictsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gw_etl",
			Name:      "conflicts_resolved_total",
			Help:      "Overlapping (date, station) cells resolved by the conflict policy.",
		}, []string{"region"}),
		RegionsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_etl",
			Name:      "regions_merged_total",
			Help:      "Region tables folded into the national matrix.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gw_etl",
			Name:      "pipeline_running",
			Help:      "1 while a consolidation run is active, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gw_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		MatrixDates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gw_etl",
			Name:      "matrix_dates",
			Help:      "Rows (dates) in the completed national matrix.",
		}),
		MatrixStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gw_etl",
			Name:      "matrix_stations",
			Help:      "Columns (stations) in the completed national matrix.",
		}),
		AuditEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_etl",
			Name:      "audit_entries_total",
			Help:      "Verdicts recorded to the audit trail.",
		}),
		AuditSinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_etl",
			Name:      "audit_sink_errors_total",
			Help:      "Failed writes to an audit sink.",
		}),
	}

	prometheus.MustRegister(
		m.FilesValidated,
		m.ReshapeWarnings,
		m.ReshapeFailures,
		m.ConflictsResolved,
		m.RegionsMerged,
		m.PipelineRunning,
		m.StageDuration,
		m.MatrixDates,
		m.MatrixStations,
		m.AuditEntries,
		m.AuditSinkErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesValidated:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "gw_etl", Name: "files_validated_total"}, []string{"region", "outcome"}),
		ReshapeWarnings:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gw_etl", Name: "reshape_warnings_total"}),
		ReshapeFailures:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gw_etl", Name: "reshape_failures_total"}),
		ConflictsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "gw_etl", Name: "conflicts_resolved_total"}, []string{"region"}),
		RegionsMerged:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gw_etl", Name: "regions_merged_total"}),
		PipelineRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "gw_etl", Name: "pipeline_running"}),
		StageDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "gw_etl", Name: "stage_duration_seconds"}, []string{"stage"}),
		MatrixDates:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "gw_etl", Name: "matrix_dates"}),
		MatrixStations:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "gw_etl", Name: "matrix_stations"}),
		AuditEntries:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gw_etl", Name: "audit_entries_total"}),
		AuditSinkErrors:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gw_etl", Name: "audit_sink_errors_total"}),
	}
}
