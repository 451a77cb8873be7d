package ethcall

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the tracker's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	outcomes      *prometheus.CounterVec
	receiptWait   prometheus.Histogram
	confirmations prometheus.Counter
	retries       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Help:      "Number of tracked transactions by terminal state",
				Name:      "tracker_outcomes_total",
				Namespace: "ethcall",
			},
			[]string{"outcome"},
		),
		receiptWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Help:      "Time from broadcast to the first receipt",
				Name:      "receipt_wait_seconds",
				Namespace: "ethcall",
				Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120, 300, 600},
			},
		),
		confirmations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Help:      "Number of confirmation events delivered",
				Name:      "confirmations_total",
				Namespace: "ethcall",
			},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Help:      "Number of retried polling requests by RPC method",
				Name:      "polling_retries_total",
				Namespace: "ethcall",
			},
			[]string{"method"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.receiptWait, m.confirmations, m.retries)
	}
	return m
}

func (m *Metrics) outcome(s TrackerState) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) receiptAfter(d time.Duration) {
	if m == nil {
		return
	}
	m.receiptWait.Observe(d.Seconds())
}

func (m *Metrics) confirmation() {
	if m == nil {
		return
	}
	m.confirmations.Inc()
}

func (m *Metrics) retry(method string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(method).Inc()
}
