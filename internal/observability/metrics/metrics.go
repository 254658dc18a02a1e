package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the conversation pipeline.
type PipelineMetrics struct {
	inboundTotal  *prometheus.CounterVec
	outboundTotal *prometheus.CounterVec
	nluLatency    *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "pipeline",
			Name:      "inbound_events_total",
			Help:      "Total inbound Messenger webhook events",
		}, []string{"kind", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "pipeline",
			Name:      "outbound_sends_total",
			Help:      "Total outbound Send API calls",
		}, []string{"kind", "status"}),
		nluLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatbot",
			Subsystem: "pipeline",
			Name:      "nlu_latency_seconds",
			Help:      "Latency of Dialogflow detectIntent calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.nluLatency)
	return m
}

func (m *PipelineMetrics) ObserveInbound(kind, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *PipelineMetrics) ObserveOutbound(kind, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *PipelineMetrics) ObserveNLULatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.nluLatency.WithLabelValues(status).Observe(seconds)
}
