package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status label values for vmf_ingest_files_total.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics holds the Prometheus collectors updated by ingestion.
type Metrics struct {
	Files        *prometheus.CounterVec
	Errors       *prometheus.CounterVec
	ParseSeconds prometheus.Histogram
}

// NewMetrics creates the ingest collectors and registers them with reg.
//
// Precondition: reg must be non-nil and must not already hold these collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vmf_ingest_files_total",
			Help: "Map files processed, by outcome.",
		}, []string{"status"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vmf_ingest_errors_total",
			Help: "Failed map files, by error kind.",
		}, []string{"kind"}),
		ParseSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vmf_ingest_parse_seconds",
			Help:    "Time spent parsing one map file.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	reg.MustRegister(m.Files, m.Errors, m.ParseSeconds)
	return m
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	// Files that could not be read were never parsed.
	if r.ErrorKind() != KindIO {
		m.ParseSeconds.Observe(r.Duration.Seconds())
	}
	if r.Err == nil {
		m.Files.WithLabelValues(StatusOK).Inc()
		return
	}
	m.Files.WithLabelValues(StatusFailed).Inc()
	m.Errors.WithLabelValues(r.ErrorKind()).Inc()
}
