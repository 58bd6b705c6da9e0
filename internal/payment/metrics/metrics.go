package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	VerificationsTotal *prometheus.CounterVec
	GatewayDuration    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portalpay_payment_verifications_total",
			Help: "Total verification calls by outcome",
		}, []string{"outcome"}),
		GatewayDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "portalpay_payment_gateway_duration_seconds",
			Help:    "Latency of gateway verification calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordVerification(outcome string) {
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGatewayCall(start time.Time) {
	m.GatewayDuration.Observe(time.Since(start).Seconds())
}
