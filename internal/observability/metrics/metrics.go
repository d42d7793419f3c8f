package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for the intake pipeline.
type LeadMetrics struct {
	submissionsTotal   *prometheus.CounterVec
	qualifierTotal     *prometheus.CounterVec
	qualifierLatency   prometheus.Histogram
	notificationsTotal *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisorhq",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Total lead submissions by outcome",
		}, []string{"outcome"}),
		qualifierTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisorhq",
			Subsystem: "leads",
			Name:      "qualifier_total",
			Help:      "Total qualifier invocations by outcome",
		}, []string{"outcome"}),
		qualifierLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "advisorhq",
			Subsystem: "leads",
			Name:      "qualifier_latency_seconds",
			Help:      "Latency of the text-generation backend call",
			Buckets:   prometheus.DefBuckets,
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisorhq",
			Subsystem: "leads",
			Name:      "hot_notifications_total",
			Help:      "Total hot-lead notification attempts by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.qualifierTotal, m.qualifierLatency, m.notificationsTotal)
	return m
}

// ObserveSubmission records a terminal pipeline outcome:
// created, fraud_rejected or storage_error.
func (m *LeadMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveQualifier records a qualifier invocation (ok or fallback) and
// the backend latency.
func (m *LeadMetrics) ObserveQualifier(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.qualifierTotal.WithLabelValues(outcome).Inc()
	m.qualifierLatency.Observe(seconds)
}

// ObserveNotification records a dispatch attempt: sent, failed or skipped.
func (m *LeadMetrics) ObserveNotification(status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}
