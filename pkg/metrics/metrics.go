package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchRequestsTotal counts HTTP attempts against the API by outcome
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "useretl_fetch_requests_total",
			Help: "Total number of HTTP requests sent to the random user API",
		},
		[]string{"outcome"},
	)

	// FetchDuration tracks API request latency
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "useretl_fetch_duration_seconds",
			Help:    "Random user API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// IndicesTotal counts processed batch indices by result
	IndicesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "useretl_indices_total",
			Help: "Total number of batch indices processed",
		},
		[]string{"result"},
	)

	// RowsInserted counts rows committed to random_users
	RowsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "useretl_rows_inserted_total",
			Help: "Total number of rows inserted into random_users",
		},
	)

	// CheckpointIndex tracks the last written checkpoint
	CheckpointIndex = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "useretl_checkpoint_index",
			Help: "Index of the last successfully processed row",
		},
	)

	// RunDuration tracks the wall time of the last run
	RunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "useretl_run_duration_seconds",
			Help: "Duration of the last ingestion run in seconds",
		},
	)

	// LastRunSuccess is 1 when the last run finished without a fatal error
	LastRunSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "useretl_last_run_success",
			Help: "Whether the last ingestion run completed without a fatal error",
		},
	)
)

// Index results
const (
	ResultInserted = "inserted"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

// WriteTextfile writes every registered metric to path in the text exposition
// format, for pickup by the node exporter textfile collector
func WriteTextfile(path string) error {
	return WriteTextfileFrom(path, prometheus.DefaultGatherer)
}

// WriteTextfileFrom writes the metrics gathered from g to path
func WriteTextfileFrom(path string, g prometheus.Gatherer) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
