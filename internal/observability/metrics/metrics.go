// Package metrics holds the prometheus collectors.  Every method is
// safe on a nil receiver so components can run without metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "detailing"

// BookingMetrics tracks the booking transaction and its enrichment
// steps.
type BookingMetrics struct {
	created    *prometheus.CounterVec
	enrichment *prometheus.CounterVec
	duration   prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "create_total",
			Help:      "Booking create attempts by outcome",
		}, []string{"outcome"}),
		enrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "enrichment_total",
			Help:      "Post-booking steps (account, rewards, email) by result",
		}, []string{"step", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "transaction_seconds",
			Help:      "Time spent in the booking database transaction",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.created, m.enrichment, m.duration)
	return m
}

// ObserveCreate counts one attempt; outcome is created, invalid,
// unavailable, not_found, db_unavailable or error.
func (m *BookingMetrics) ObserveCreate(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(outcome).Inc()
	if outcome == "created" {
		m.duration.Observe(seconds)
	}
}

func (m *BookingMetrics) ObserveEnrichment(step string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.enrichment.WithLabelValues(step, result).Inc()
}

// ScheduleMetrics tracks admin schedule mutations.
type ScheduleMetrics struct {
	mutations *prometheus.CounterVec
}

func NewScheduleMetrics(reg prometheus.Registerer) *ScheduleMetrics {
	m := &ScheduleMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "mutation_total",
			Help:      "Schedule mutations by action and status",
		}, []string{"action", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.mutations)
	return m
}

func (m *ScheduleMetrics) ObserveMutation(action string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.mutations.WithLabelValues(action, status).Inc()
}
