package depot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the engine's diagnostic channel: store reads that were
// degraded to zero, balances clamped from a negative raw value, and the
// cost of each reconstruction. A nil *Metrics records nothing.
type Metrics struct {
	readFailures *prometheus.CounterVec
	clamped      *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		readFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crate_ledger",
			Name:      "store_read_failures_total",
			Help:      "Store reads that failed and were counted as zero.",
		}, []string{"table"}),
		clamped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crate_ledger",
			Name:      "clamped_balances_total",
			Help:      "Balances whose raw value was negative and floored to zero.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crate_ledger",
			Name:      "balance_computation_seconds",
			Help:      "Time spent reconstructing one balance.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.readFailures, m.clamped, m.duration)
	}
	return m
}

const (
	kindDepot    = "depot"
	kindCustomer = "customer"
)

func (m *Metrics) readFailed(table Table) {
	if m == nil {
		return
	}
	m.readFailures.WithLabelValues(string(table)).Inc()
}

func (m *Metrics) clampedBalance(kind string) {
	if m == nil {
		return
	}
	m.clamped.WithLabelValues(kind).Inc()
}

func (m *Metrics) observe(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// ReadFailures returns the collector for tests and admin views.
func (m *Metrics) ReadFailures() *prometheus.CounterVec { return m.readFailures }

// Clamped returns the clamped-balance collector.
func (m *Metrics) Clamped() *prometheus.CounterVec { return m.clamped }
