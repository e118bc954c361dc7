package owm

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects poll cycle statistics. A nil *Metrics records nothing.
type Metrics struct {
	cyclesTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	droppedTotal    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "owm_poller",
				Name:      "cycles_total",
				Help:      "Total number of poll cycles by outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "owm_poller",
				Name:      "request_duration_seconds",
				Help:      "Duration of weather endpoint requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		),
		droppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "owm_poller",
				Name:      "dropped_updates_total",
				Help:      "Updates discarded because the consumer buffer was full.",
			},
		),
	}

	reg.MustRegister(m.cyclesTotal, m.requestDuration, m.droppedTotal)
	return m
}

// RecordCycle records the outcome and duration of one request.
func (m *Metrics) RecordCycle(ep Endpoint, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.requestDuration.WithLabelValues(ep.String(), status).Observe(time.Since(start).Seconds())
	m.cyclesTotal.WithLabelValues(ep.String(), outcome(err)).Inc()
}

// RecordDrop counts one discarded update.
func (m *Metrics) RecordDrop() {
	if m == nil {
		return
	}
	m.droppedTotal.Inc()
}

func outcome(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	default:
		return "transport"
	}
}
