// Package metrics exposes transcoding counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"icstable/internal/transcode"
)

var (
	documentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "icstable_documents_total",
		Help: "Calendar documents transcoded, by result",
	}, []string{"result"})

	transcodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "icstable_transcodes_total",
		Help: "Transcoding calls, by origin (cli, http, watch)",
	}, []string{"origin"})

	transcodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "icstable_transcode_duration_seconds",
		Help:    "Time spent parsing and encoding one input",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})
)

// Observe records the outcome of one transcoding call.
func Observe(origin string, s transcode.Summary, elapsed time.Duration) {
	transcodesTotal.WithLabelValues(origin).Inc()
	documentsTotal.WithLabelValues("ok").Add(float64(s.Documents - s.Failed))
	documentsTotal.WithLabelValues("error").Add(float64(s.Failed))
	transcodeDuration.Observe(elapsed.Seconds())
}
