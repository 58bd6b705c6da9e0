package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal     *prometheus.CounterVec
	ViolationsTotal *prometheus.CounterVec
	FailOpenTotal   prometheus.Counter
	CacheEvictions  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portalpay_ratelimit_checks_total",
			Help: "Total rate limit checks by outcome",
		}, []string{"outcome"}),
		ViolationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portalpay_ratelimit_violations_total",
			Help: "Total rate limit violations by reason",
		}, []string{"reason"}),
		FailOpenTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portalpay_ratelimit_fail_open_total",
			Help: "Total checks allowed due to internal limiter errors",
		}),
		CacheEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portalpay_ratelimit_cache_evictions_total",
			Help: "Total capacity evictions from the in-process record cache",
		}),
	}
}

func (m *Metrics) RecordCheck(outcome string) {
	m.ChecksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordViolation(reason string) {
	m.ViolationsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordFailOpen() {
	m.FailOpenTotal.Inc()
}
