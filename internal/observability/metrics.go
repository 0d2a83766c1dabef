package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics collects per-run seeding statistics. A nil *RunMetrics is valid
// and records nothing.
type RunMetrics struct {
	registry *prometheus.Registry

	rowsInserted  *prometheus.GaugeVec
	tablesCleared *prometheus.GaugeVec
	duration      prometheus.Gauge
	success       prometheus.Gauge
	lastRun       prometheus.Gauge
}

// NewRunMetrics creates metrics on a private registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		rowsInserted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bloom_seed_rows_inserted",
			Help: "Rows inserted per table during the last seed run",
		}, []string{"table"}),
		tablesCleared: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bloom_seed_table_cleared",
			Help: "1 if the table was cleared during the last seed run",
		}, []string{"table"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bloom_seed_duration_seconds",
			Help: "Wall time of the last seed run",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bloom_seed_success",
			Help: "1 if the last seed run completed without error",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bloom_seed_last_run_timestamp_seconds",
			Help: "Unix time the last seed run finished",
		}),
	}
	m.registry.MustRegister(m.rowsInserted, m.tablesCleared, m.duration, m.success, m.lastRun)
	return m
}

// ObserveCleared marks table as cleared.
func (m *RunMetrics) ObserveCleared(table string) {
	if m == nil {
		return
	}
	m.tablesCleared.WithLabelValues(table).Set(1)
}

// ObserveInserted records the number of rows inserted into table.
func (m *RunMetrics) ObserveInserted(table string, rows int) {
	if m == nil {
		return
	}
	m.rowsInserted.WithLabelValues(table).Set(float64(rows))
}

// RowsInserted returns the gauge holding the inserted row count for table.
func (m *RunMetrics) RowsInserted(table string) prometheus.Gauge {
	return m.rowsInserted.WithLabelValues(table)
}

// Finish records the outcome of a run.
func (m *RunMetrics) Finish(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.Set(elapsed.Seconds())
	if err == nil {
		m.success.Set(1)
	} else {
		m.success.Set(0)
	}
	m.lastRun.SetToCurrentTime()
}

// WriteFile writes the metrics in the Prometheus text format, suitable for
// the node_exporter textfile collector.
func (m *RunMetrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
