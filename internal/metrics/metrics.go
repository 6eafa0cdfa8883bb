// Package metrics collects parser counters on a private registry and
// writes them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/ctxrestore/internal/dump"
)

// Metrics holds the collectors of one ctxrestore invocation.
type Metrics struct {
	registry *prometheus.Registry

	bytesRead        prometheus.Counter
	rowsWritten      *prometheus.CounterVec
	insertStatements prometheus.Counter
	updateTasks      prometheus.Counter
	lastPoolID       prometheus.Gauge
	parseDuration    prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "ctxrestore_bytes_read_total",
			Help: "Uncompressed dump bytes scanned",
		}),
		rowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ctxrestore_rows_written_total",
			Help: "Rows copied to temp files, by database",
		}, []string{"database"}),
		insertStatements: factory.NewCounter(prometheus.CounterOpts{
			Name: "ctxrestore_insert_statements_total",
			Help: "INSERT statements inspected",
		}),
		updateTasks: factory.NewCounter(prometheus.CounterOpts{
			Name: "ctxrestore_update_tasks_total",
			Help: "updateTask rows extracted for the context",
		}),
		lastPoolID: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ctxrestore_last_run_pool_id",
			Help: "Pool id resolved by the last parse, -1 if unresolved",
		}),
		parseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ctxrestore_parse_duration_seconds",
			Help:    "Time spent parsing one dump file",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	m.lastPoolID.Set(-1)
	return m
}

// Observe records one parsed file.
func (m *Metrics) Observe(res *dump.Result, elapsed time.Duration) {
	m.bytesRead.Add(float64(res.Stats.BytesRead))
	m.insertStatements.Add(float64(res.Stats.InsertStatements))
	m.updateTasks.Add(float64(len(res.UpdateTasks)))
	for _, t := range res.Tables {
		if t.RowsWritten > 0 {
			m.rowsWritten.WithLabelValues(t.Database).Add(float64(t.RowsWritten))
		}
	}
	if res.PoolID != -1 {
		m.lastPoolID.Set(float64(res.PoolID))
	}
	m.parseDuration.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
