package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for verification and account lifecycle.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Accepted document submissions
	Submissions prometheus.Counter

	// Decisions by resulting verification status
	Decisions *prometheus.CounterVec

	// Account status overrides by new status
	AccountStatusChanges *prometheus.CounterVec

	// Role changes by source
	RoleChanges *prometheus.CounterVec

	// Notification deliveries that failed, by event type
	NotificationFailures *prometheus.CounterVec

	// End-to-end decision latency
	DecisionLatency prometheus.Histogram
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Submissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "hostelhub_verification_submissions_total",
			Help: "Total accepted identity document submissions",
		}),

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelhub_verification_decisions_total",
			Help: "Total reviewer decisions by resulting status",
		}, []string{"status"}),

		AccountStatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelhub_account_status_changes_total",
			Help: "Total account status overrides by new status",
		}, []string{"status"}),

		RoleChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelhub_role_changes_total",
			Help: "Total role changes by source",
		}, []string{"source"}),

		NotificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hostelhub_notification_failures_total",
			Help: "Total notification deliveries that failed",
		}, []string{"type"}),

		DecisionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostelhub_verification_decision_duration_seconds",
			Help:    "Duration of a reviewer decision including the record write",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncrementSubmission() {
	if m != nil {
		m.Submissions.Inc()
	}
}

// IncrementDecision records a decision by the status it produced.
func (m *Metrics) IncrementDecision(status string) {
	if m != nil {
		m.Decisions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementAccountStatusChange(status string) {
	if m != nil {
		m.AccountStatusChanges.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementRoleChange(source string) {
	if m != nil {
		m.RoleChanges.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) IncrementNotificationFailure(eventType string) {
	if m != nil {
		m.NotificationFailures.WithLabelValues(eventType).Inc()
	}
}

// ObserveDecisionLatency records the total decision duration.
func (m *Metrics) ObserveDecisionLatency(d time.Duration) {
	if m != nil {
		m.DecisionLatency.Observe(d.Seconds())
	}
}
