package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics prometheus collectors for the stock watch pipeline. Each
// instance carries its own registry so embedding applications (and
// tests) can create collectors without global registration conflicts.
type Metrics struct {
	Registry *prometheus.Registry

	feedChangesTotal      *prometheus.CounterVec
	classifyFailuresTotal *prometheus.CounterVec
	eventsDispatchedTotal *prometheus.CounterVec
	callbackFailuresTotal *prometheus.CounterVec
	alertsTriggeredTotal  *prometheus.CounterVec
	alertCheckDuration    *prometheus.HistogramVec
	activeSubscriptions   prometheus.Gauge
}

// NewMetrics creates the metric collectors
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		feedChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_feed_changes_total",
				Help: "Total number of raw changes received from the feed",
			},
			[]string{"table", "kind"},
		),

		classifyFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_classify_failures_total",
				Help: "Total number of raw changes that could not be classified",
			},
			[]string{"table"},
		),

		eventsDispatchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_events_dispatched_total",
				Help: "Total number of events dispatched to subscription callbacks",
			},
			[]string{"subscription", "event_type"},
		),

		callbackFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_callback_failures_total",
				Help: "Total number of callback panics recovered during dispatch",
			},
			[]string{"subscription"},
		),

		alertsTriggeredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_alerts_triggered_total",
				Help: "Total number of threshold alerts raised",
			},
			[]string{"type", "severity"},
		),

		alertCheckDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockwatch_alert_check_duration_seconds",
				Help:    "Duration of async alert checks including the snapshot lookup",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),

		activeSubscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockwatch_active_subscriptions",
				Help: "Number of live subscriptions in the registry",
			},
		),
	}
}

// RecordFeedChange counts a raw change received from the feed
func (m *Metrics) RecordFeedChange(table, kind string) {
	m.feedChangesTotal.WithLabelValues(table, kind).Inc()
}

// RecordClassifyFailure counts a change that could not be classified
func (m *Metrics) RecordClassifyFailure(table string) {
	m.classifyFailuresTotal.WithLabelValues(table).Inc()
}

// RecordDispatch counts an event delivered to one callback
func (m *Metrics) RecordDispatch(subscription, eventType string) {
	m.eventsDispatchedTotal.WithLabelValues(subscription, eventType).Inc()
}

// RecordCallbackFailure counts a recovered callback panic
func (m *Metrics) RecordCallbackFailure(subscription string) {
	m.callbackFailuresTotal.WithLabelValues(subscription).Inc()
}

// RecordAlert counts a raised alert
func (m *Metrics) RecordAlert(alertType, severity string) {
	m.alertsTriggeredTotal.WithLabelValues(alertType, severity).Inc()
}

// ObserveAlertCheck records the duration of one async alert check
func (m *Metrics) ObserveAlertCheck(d time.Duration, status string) {
	m.alertCheckDuration.WithLabelValues(status).Observe(d.Seconds())
}

// SetActiveSubscriptions updates the live subscription gauge
func (m *Metrics) SetActiveSubscriptions(n int) {
	m.activeSubscriptions.Set(float64(n))
}
