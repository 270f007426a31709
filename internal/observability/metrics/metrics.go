package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for lead submission flows.
type LeadMetrics struct {
	submissionsTotal    *prometheus.CounterVec
	providerResults     *prometheus.CounterVec
	providerLatency     *prometheus.HistogramVec
	retriesTotal        *prometheus.CounterVec
	backgroundTaskTotal *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadsync",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Total lead submissions by aggregate outcome",
		}, []string{"outcome"}),
		providerResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadsync",
			Subsystem: "providers",
			Name:      "results_total",
			Help:      "Total provider adapter invocations by result",
		}, []string{"provider", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadsync",
			Subsystem: "providers",
			Name:      "latency_seconds",
			Help:      "Latency of provider adapter invocations, retries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadsync",
			Subsystem: "http",
			Name:      "retries_total",
			Help:      "Total outbound HTTP retries by host",
		}, []string{"host"}),
		backgroundTaskTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadsync",
			Subsystem: "tasks",
			Name:      "background_total",
			Help:      "Total fire-and-forget tasks by name and status",
		}, []string{"task", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.providerResults, m.providerLatency, m.retriesTotal, m.backgroundTaskTotal)
	return m
}

func (m *LeadMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveProvider(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.providerResults.WithLabelValues(provider, status).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *LeadMetrics) ObserveRetry(host string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(host).Inc()
}

func (m *LeadMetrics) ObserveBackgroundTask(task, status string) {
	if m == nil {
		return
	}
	m.backgroundTaskTotal.WithLabelValues(task, status).Inc()
}
