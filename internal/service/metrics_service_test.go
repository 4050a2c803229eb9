package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-booking-api/internal/models"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordAppointmentBooked()
	m.RecordAppointmentTransition(models.AppointmentApproved)
	m.RecordAppointmentTransition(models.AppointmentApproved)
	m.RecordMessageSent()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.appointmentsBooked))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.appointmentTransition.WithLabelValues("approved")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.messagesSent))
}

func TestCacheHitRatio(t *testing.T) {
	m := NewMetricsService()
	assert.Zero(t, m.CacheHitRatio())
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	assert.InDelta(t, 0.5, m.CacheHitRatio(), 0.0001)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *MetricsService
	m.RecordMessageSent()
	m.RecordAppointmentBooked()
	m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	assert.Nil(t, m.Registry())
}

func TestCacheServiceDisabledIsMiss(t *testing.T) {
	svc := NewCacheService(newMemCache(), nil, 0, nil, false)
	var dest []string
	assert.False(t, svc.Get(context.Background(), "k", &dest))
	svc.Set(context.Background(), "k", []string{"v"}, 0)
	assert.False(t, svc.Get(context.Background(), "k", &dest))
}
