package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilReceiversAreSafe(t *testing.T) {
	var b *BookingMetrics
	var s *ScheduleMetrics
	assert.NotPanics(t, func() {
		b.ObserveCreate("created", 0.1)
		b.ObserveEnrichment("email", errors.New("x"))
		s.ObserveMutation("add_slot", nil)
	})
}

func TestBookingMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveCreate("created", 0.02)
	m.ObserveCreate("created", 0.03)
	m.ObserveCreate("unavailable", 0)
	m.ObserveEnrichment("rewards", nil)
	m.ObserveEnrichment("email", errors.New("smtp down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.created.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.created.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrichment.WithLabelValues("email", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrichment.WithLabelValues("rewards", "ok")))
}

func TestScheduleMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScheduleMetrics(reg)
	m.ObserveMutation("toggle_working_day", nil)
	m.ObserveMutation("delete_slot", errors.New("conflict"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("delete_slot", "error")))
}
