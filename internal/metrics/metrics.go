package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 所有方法都允许在 nil 接收者上调用，测试里可以直接传 nil
type Metrics struct {
	upstreamTotal *prometheus.CounterVec
	fetchTotal    *prometheus.CounterVec
	interestTotal *prometheus.CounterVec
	cachedEvents  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New 使用独立 registry，避免多次构造时重复注册 panic
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{gatherer: reg}

	m.upstreamTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guild_events",
		Name:      "upstream_requests_total",
		Help:      "Upstream scheduled-events requests by result",
	}, []string{"result"})
	m.fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guild_events",
		Name:      "fetch_total",
		Help:      "Event list fetches by data source (fresh, cached, stale, mock, failed)",
	}, []string{"source"})
	m.interestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guild_events",
		Name:      "interest_total",
		Help:      "Interest actions recorded",
	}, []string{"action"})
	m.cachedEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "guild_events",
		Name:      "cached_events",
		Help:      "Number of events in the cache slot",
	})

	reg.MustRegister(
		m.upstreamTotal, m.fetchTotal, m.interestTotal, m.cachedEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Upstream(result string) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Fetch(source string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) Interest(action string) {
	if m == nil {
		return
	}
	m.interestTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) CachedEvents(n int) {
	if m == nil {
		return
	}
	m.cachedEvents.Set(float64(n))
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
