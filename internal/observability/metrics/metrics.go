package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for the lead pipeline.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	attachmentsTotal *prometheus.CounterVec
	sendsTotal       *prometheus.CounterVec
	sendLatency      *prometheus.HistogramVec
	backupTotal      *prometheus.CounterVec
	vinLookupsTotal  *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appraisal",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Total lead submissions by entry point and outcome",
		}, []string{"source", "outcome"}),
		attachmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appraisal",
			Subsystem: "leads",
			Name:      "attachments_total",
			Help:      "Attachments admitted or omitted per entry point",
		}, []string{"source", "status"}),
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appraisal",
			Subsystem: "email",
			Name:      "sends_total",
			Help:      "Total email sends by provider",
		}, []string{"provider", "status"}),
		sendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "appraisal",
			Subsystem: "email",
			Name:      "send_latency_seconds",
			Help:      "Latency of email provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		backupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appraisal",
			Subsystem: "backup",
			Name:      "webhook_total",
			Help:      "Backup webhook deliveries",
		}, []string{"status"}),
		vinLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appraisal",
			Subsystem: "vin",
			Name:      "lookups_total",
			Help:      "VIN decode lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.attachmentsTotal, m.sendsTotal, m.sendLatency, m.backupTotal, m.vinLookupsTotal)
	return m
}

// ObserveSubmission counts a finished request. outcome is e.g. "sent",
// "honeypot", "invalid", "send_failed".
func (m *LeadMetrics) ObserveSubmission(source, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(source, outcome).Inc()
}

func (m *LeadMetrics) ObserveAttachments(source string, admitted, omitted int) {
	if m == nil {
		return
	}
	if admitted > 0 {
		m.attachmentsTotal.WithLabelValues(source, "admitted").Add(float64(admitted))
	}
	if omitted > 0 {
		m.attachmentsTotal.WithLabelValues(source, "omitted").Add(float64(omitted))
	}
}

func (m *LeadMetrics) ObserveSend(provider string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	m.sendsTotal.WithLabelValues(provider, status(ok)).Inc()
	m.sendLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *LeadMetrics) ObserveBackup(ok bool) {
	if m == nil {
		return
	}
	m.backupTotal.WithLabelValues(status(ok)).Inc()
}

// ObserveVINLookup counts decodes; result is "hit", "miss", "invalid" or "error".
func (m *LeadMetrics) ObserveVINLookup(result string) {
	if m == nil {
		return
	}
	m.vinLookupsTotal.WithLabelValues(result).Inc()
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
