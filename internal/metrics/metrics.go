package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 设备运行指标。所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
type Metrics struct {
	registry      *prometheus.Registry
	fetches       *prometheus.CounterVec
	relayAttempts *prometheus.CounterVec
	relayOutcomes *prometheus.CounterVec
	transitions   *prometheus.CounterVec
}

// New 创建独立的 registry 并注册所有指标。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jokebox",
			Name:      "fetch_total",
			Help:      "Joke fetches by category and result.",
		}, []string{"category", "result"}),
		relayAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jokebox",
			Name:      "relay_attempts_total",
			Help:      "Individual relay attempts by mode and result.",
		}, []string{"mode", "result"}),
		relayOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jokebox",
			Name:      "relay_outcomes_total",
			Help:      "Completed relay calls by mode and result.",
		}, []string{"mode", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jokebox",
			Name:      "transitions_total",
			Help:      "Session state transitions.",
		}, []string{"from", "to"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fetches,
		m.relayAttempts,
		m.relayOutcomes,
		m.transitions,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch 记录一次内容获取。
func (m *Metrics) ObserveFetch(category, result string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(category, result).Inc()
}

// ObserveRelayAttempt 记录单次 relay 尝试。
func (m *Metrics) ObserveRelayAttempt(mode, result string) {
	if m == nil {
		return
	}
	m.relayAttempts.WithLabelValues(mode, result).Inc()
}

// ObserveRelayOutcome 记录一次完整的 relay 调用。
func (m *Metrics) ObserveRelayOutcome(mode string, succeeded bool) {
	if m == nil {
		return
	}
	result := "failed"
	if succeeded {
		result = "succeeded"
	}
	m.relayOutcomes.WithLabelValues(mode, result).Inc()
}

// ObserveTransition 记录状态迁移。
func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}
