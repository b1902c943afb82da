package metrics

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"loudstalker/internal/domain"
	"loudstalker/internal/logging"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors for the bridge. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	NotificationsTotal prometheus.Counter
	DispatchesTotal    *prometheus.CounterVec
	SuppressedTotal    *prometheus.CounterVec
	DispatchDuration   *prometheus.HistogramVec
	Muted              prometheus.Gauge
	Volume             prometheus.Gauge

	registry *prometheus.Registry
	pusher   *push.Pusher
}

// NewMetrics creates the collectors on a private registry. The pusher is only
// configured when pushgatewayURL is set.
func NewMetrics(pushgatewayURL, jobName string) *Metrics {
	m := &Metrics{
		NotificationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loudstalker_notifications_total",
			Help: "Total number of volume notifications delivered by the audio endpoint",
		}),
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loudstalker_dispatches_total",
			Help: "Trigger calls issued, by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		SuppressedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loudstalker_suppressed_total",
			Help: "Notifications that did not change the last dispatched value, by trigger",
		}, []string{"trigger"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loudstalker_dispatch_duration_seconds",
			Help:    "Duration of trigger calls in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"trigger"}),
		Muted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loudstalker_muted",
			Help: "Last dispatched mute flag (1 = muted)",
		}),
		Volume: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loudstalker_volume_percent",
			Help: "Last dispatched volume percentage",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.NotificationsTotal,
		m.DispatchesTotal,
		m.SuppressedTotal,
		m.DispatchDuration,
		m.Muted,
		m.Volume,
	)

	if pushgatewayURL != "" {
		if jobName == "" {
			jobName = "loudstalker"
		}
		m.pusher = push.New(pushgatewayURL, jobName).Gatherer(m.registry)
		if hostname, err := os.Hostname(); err == nil && hostname != "" {
			m.pusher = m.pusher.Grouping("instance", hostname)
		}
	}

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CanPush reports whether a Pushgateway was configured.
func (m *Metrics) CanPush() bool {
	return m != nil && m.pusher != nil
}

// RecordNotification counts a notification delivered by the endpoint.
func (m *Metrics) RecordNotification() {
	if m == nil {
		return
	}
	m.NotificationsTotal.Inc()
}

// RecordSuppressed counts a notification that left a dimension unchanged.
func (m *Metrics) RecordSuppressed(kind domain.TriggerKind) {
	if m == nil {
		return
	}
	m.SuppressedTotal.WithLabelValues(string(kind)).Inc()
}

// RecordDispatch counts one trigger call and observes its duration.
func (m *Metrics) RecordDispatch(kind domain.TriggerKind, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.DispatchesTotal.WithLabelValues(string(kind), outcome).Inc()
	m.DispatchDuration.WithLabelValues(string(kind)).Observe(seconds)
}

// RecordState mirrors the last dispatched state into gauges.
func (m *Metrics) RecordState(s domain.Snapshot) {
	if m == nil {
		return
	}
	muted := 0.0
	if s.Muted {
		muted = 1
	}
	m.Muted.Set(muted)
	m.Volume.Set(float64(s.Volume))
}

// Push pushes all metrics to the Pushgateway.
func (m *Metrics) Push(ctx context.Context) error {
	if !m.CanPush() {
		return nil
	}
	if err := m.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	logging.Tracef("metrics: pushed to Pushgateway")
	return nil
}
