package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRouterMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRouterMetrics(reg)

	m.ObserveInbound("whatsapp")
	m.ObserveInbound("whatsapp")
	m.ObserveDropped("whatsapp", "duplicate")
	m.ObserveDecision("direct")
	m.ObserveLLMLatency("classify", 0.42)
	m.ObserveWebhookLatency("whatsapp", 0.01)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.inboundTotal.WithLabelValues("whatsapp")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.droppedTotal.WithLabelValues("whatsapp", "duplicate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.decisionsTotal.WithLabelValues("direct")))
}

func TestRouterMetrics_NilSafe(t *testing.T) {
	var m *RouterMetrics
	assert.NotPanics(t, func() {
		m.ObserveInbound("whatsapp")
		m.ObserveDropped("whatsapp", "rate_limited")
		m.ObserveDecision("escalate")
		m.ObserveLLMLatency("generate", 1.5)
		m.ObserveWebhookLatency("tiktok", 0.02)
	})
}
