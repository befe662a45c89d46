package metrics

import "github.com/prometheus/client_golang/prometheus"

// RouterMetrics exposes counters/histograms for the message routing flow.
type RouterMetrics struct {
	inboundTotal   *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	decisionsTotal *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
	webhookLatency *prometheus.HistogramVec
}

func NewRouterMetrics(reg prometheus.Registerer) *RouterMetrics {
	m := &RouterMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "router",
			Name:      "inbound_total",
			Help:      "Total inbound platform messages",
		}, []string{"platform"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "router",
			Name:      "dropped_total",
			Help:      "Messages dropped before routing",
		}, []string{"platform", "reason"}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "router",
			Name:      "decisions_total",
			Help:      "Routing decisions by path",
		}, []string{"path"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "router",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM classify/generate calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "router",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.droppedTotal, m.decisionsTotal, m.llmLatency, m.webhookLatency)
	return m
}

func (m *RouterMetrics) ObserveInbound(platform string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(platform).Inc()
}

func (m *RouterMetrics) ObserveDropped(platform, reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(platform, reason).Inc()
}

func (m *RouterMetrics) ObserveDecision(path string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(path).Inc()
}

func (m *RouterMetrics) ObserveLLMLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *RouterMetrics) ObserveWebhookLatency(platform string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(platform).Observe(seconds)
}
