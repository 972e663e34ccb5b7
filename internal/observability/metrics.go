package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for an ingest run.
type Metrics struct {
	FilesDiscovered prometheus.Counter
	FilesProcessed  *prometheus.CounterVec // labels: outcome={written,skipped,failed}
	PointsKept      prometheus.Counter
	PointsDropped   prometheus.Counter
	CleanupErrors   prometheus.Counter
	PipelineRunning prometheus.Gauge

	FileProcessingDuration prometheus.Histogram

	// Extraction metrics.
	PartsExtracted     prometheus.Counter
	BytesDownloaded    prometheus.Counter
	ExtractionDuration prometheus.Histogram
}

// NewMetrics creates and registers all ingest metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adsb_ingest",
			Name:      "files_discovered_total",
			Help:      "Trace files found in the extracted archive.",
		}),
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adsb_ingest",
			Name:      "files_processed_total",
			Help:      "Trace files processed by outcome.",
		}, []string{"outcome"}),
		PointsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adsb_ingest",
			Name:      "points_kept_total",
			Help:      "Position samples inside the boundary.",
		}),
		PointsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adsb_ingest",
			Name:      "points_dropped_total",
			Help:      "Position samples outside the boundary.",
		}),
		CleanupErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adsb_ingest",
			Name:      "cleanup_errors_total",
			Help:      "Source files that could not be deleted after processing.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "adsb_ingest",
			Name:      "pipeline_running",
			Help:      "1 while the worker pool is active, 0 otherwise.",
		}),
		FileProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adsb_ingest",
			Name:      "file_processing_duration_seconds",
			Help:      "Time to parse, filter, write, and delete one trace file.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		PartsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adsb_ingest",
			Name:      "parts_extracted_total",
			Help:      "Archive parts streamed into the extraction sink.",
		}),
		BytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adsb_ingest",
			Name:      "bytes_downloaded_total",
			Help:      "Archive bytes streamed into the extraction sink.",
		}),
		ExtractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adsb_ingest",
			Name:      "extraction_duration_seconds",
			Help:      "Duration of a complete download-and-extract of one day's parts.",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 2400},
		}),
	}

	prometheus.MustRegister(
		m.FilesDiscovered,
		m.FilesProcessed,
		m.PointsKept,
		m.PointsDropped,
		m.CleanupErrors,
		m.PipelineRunning,
		m.FileProcessingDuration,
		m.PartsExtracted,
		m.BytesDownloaded,
		m.ExtractionDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesDiscovered:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "adsb_ingest", Name: "files_discovered_total"}),
		FilesProcessed:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "adsb_ingest", Name: "files_processed_total"}, []string{"outcome"}),
		PointsKept:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "adsb_ingest", Name: "points_kept_total"}),
		PointsDropped:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "adsb_ingest", Name: "points_dropped_total"}),
		CleanupErrors:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "adsb_ingest", Name: "cleanup_errors_total"}),
		PipelineRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "adsb_ingest", Name: "pipeline_running"}),
		FileProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "adsb_ingest", Name: "file_processing_duration_seconds"}),
		PartsExtracted:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "adsb_ingest", Name: "parts_extracted_total"}),
		BytesDownloaded:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "adsb_ingest", Name: "bytes_downloaded_total"}),
		ExtractionDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "adsb_ingest", Name: "extraction_duration_seconds"}),
	}
}
