package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/park285/transfer-gateway/internal/upstream"
)

const namespace = "transfer_gateway"

// Metrics: 게이트웨이 전용 레지스트리와 수집기
type Metrics struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	backendOnline    prometheus.Gauge
	cacheLookups     *prometheus.CounterVec
}

var _ upstream.Observer = (*Metrics)(nil)

// New: 전용 레지스트리에 수집기를 등록합니다. 테스트마다 새로 만들 수 있다.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Handled HTTP requests by route and status.",
		}, []string{"route", "method", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Backend call latency by method and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "outcome"}),
		backendOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_online",
			Help:      "1 when the backend is considered online.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Public read cache lookups by result.",
		}, []string{"result"}),
	}
	m.backendOnline.Set(1)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.upstreamDuration,
		m.backendOnline,
		m.cacheLookups,
	)
	return m
}

// Registry: 테스트용 레지스트리 접근
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler: /metrics 핸들러
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware: 라우트 템플릿 기준으로 요청 수를 센다. 미등록 경로는 "unmatched".
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// ObserveUpstream: 백엔드 호출 지연을 기록합니다.
func (m *Metrics) ObserveUpstream(o upstream.Outcome) {
	outcome := "ok"
	switch {
	case o.Err != nil:
		outcome = "error"
	case o.StatusCode >= 500:
		outcome = "5xx"
	case o.StatusCode >= 400:
		outcome = "4xx"
	}
	m.upstreamDuration.WithLabelValues(o.Method, outcome).Observe(o.Duration.Seconds())
}

// SetBackendOnline: 백엔드 상태 게이지 갱신
func (m *Metrics) SetBackendOnline(online bool) {
	if online {
		m.backendOnline.Set(1)
		return
	}
	m.backendOnline.Set(0)
}

// CacheLookup: 캐시 조회 결과 기록 (hit, miss, error)
func (m *Metrics) CacheLookup(result string) {
	m.cacheLookups.WithLabelValues(result).Inc()
}
