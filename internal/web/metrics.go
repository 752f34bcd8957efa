package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the gateway's Prometheus instruments.
type metrics struct {
	uploadsTotal    *prometheus.CounterVec
	uploadBytes     prometheus.Histogram
	convertDuration prometheus.Histogram
	feedClients     prometheus.Gauge
}

// newMetrics registers the gateway metrics with the given registry.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slidegate",
			Name:      "uploads_total",
			Help:      "Upload attempts by final status",
		}, []string{"status"}),

		uploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slidegate",
			Name:      "upload_bytes",
			Help:      "Accepted upload sizes in bytes",
			// 1KB to 512MB
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),

		convertDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slidegate",
			Name:      "convert_duration_seconds",
			Help:      "Round-trip time to the conversion backend",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),

		feedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "slidegate",
			Name:      "event_feed_clients",
			Help:      "Connected event feed WebSocket clients",
		}),
	}
}
