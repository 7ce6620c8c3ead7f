package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks checkpoint commit activity.
type Metrics struct {
	checkpoints   prometheus.Counter
	batchStreams  prometheus.Histogram
	commitSeconds prometheus.Histogram
	streams       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		checkpoints: f.NewCounter(prometheus.CounterOpts{
			Name: "sparse_checkpoints_total",
			Help: "Checkpoints committed since boot.",
		}),
		batchStreams: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sparse_checkpoint_streams",
			Help:    "Streams touched per checkpoint.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		commitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sparse_commit_duration_seconds",
			Help:    "Wall time per checkpoint commit.",
			Buckets: prometheus.DefBuckets,
		}),
		streams: f.NewGauge(prometheus.GaugeOpts{
			Name: "sparse_streams",
			Help: "Distinct streams in the commitment tree.",
		}),
	}
}
