// Package metrics provides Prometheus metrics for ingestion and export.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultDeclined = "declined"
	ResultError    = "error"
)

var (
	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickers_ingestions_total",
			Help: "Spreadsheet uploads by outcome",
		},
		[]string{"format", "result"},
	)

	RowsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stickers_rows_ingested_total",
			Help: "Inventory rows accepted from uploads",
		},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickers_exports_total",
			Help: "PDF exports by outcome",
		},
		[]string{"result"},
	)

	PagesExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stickers_pages_exported_total",
			Help: "Sticker pages rasterized into PDFs",
		},
	)

	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stickers_export_duration_seconds",
			Help:    "Time taken to export a full document",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Recorder records session events. The zero value is ready to use; a nil
// *Recorder records nothing.
type Recorder struct{}

// NewRecorder returns a recorder writing to the package metrics.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordIngestion records one ingestion attempt.
func (m *Recorder) RecordIngestion(format, result string, rows int) {
	if m == nil {
		return
	}
	IngestionsTotal.WithLabelValues(format, result).Inc()
	if result == ResultOK {
		RowsIngested.Add(float64(rows))
	}
}

// RecordPage records one page added to a document.
func (m *Recorder) RecordPage() {
	if m == nil {
		return
	}
	PagesExported.Inc()
}

// RecordExport records a finished export.
func (m *Recorder) RecordExport(result string, duration time.Duration) {
	if m == nil {
		return
	}
	ExportsTotal.WithLabelValues(result).Inc()
	ExportDuration.Observe(duration.Seconds())
}

// WriteTextfile dumps the default registry in the node exporter textfile
// format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// Timer is a helper for measuring duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
