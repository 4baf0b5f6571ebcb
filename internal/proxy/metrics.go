package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	prometheus.MustRegister(redemptionsMetric, upstreamDurationMetric, upstreamInflightMetric, generatedMetric)
}

// Redemption outcomes
const (
	outcomeRelayed     = "relayed"
	outcomeMalformed   = "malformed"
	outcomeInvalid     = "invalid"
	outcomeExpired     = "expired"
	outcomeUnavailable = "unavailable"
	outcomeCanceled    = "canceled"
)

var (
	redemptionsMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tokenproxy",
		Name:      "redemptions_total",
		Help:      "Total redemption requests by outcome",
	}, []string{"outcome"})

	upstreamDurationMetric = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tokenproxy",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Time until upstream response headers were received",
		Buckets:   prometheus.DefBuckets,
	}, []string{"code"})

	upstreamInflightMetric = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tokenproxy",
		Subsystem: "upstream",
		Name:      "inflight",
		Help:      "Upstream fetches in progress",
	})

	generatedMetric = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tokenproxy",
		Name:      "links_generated_total",
		Help:      "Total links generated by the generate endpoint",
	})
)
