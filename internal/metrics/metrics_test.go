package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/park285/transfer-gateway/internal/upstream"
)

func TestAPIKeyAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		expected string
		header   string
		value    string
		want     int
	}{
		{name: "unprotected", expected: "", want: http.StatusOK},
		{name: "missing", expected: "secret", want: http.StatusUnauthorized},
		{name: "wrong", expected: "secret", header: "X-API-Key", value: "nope", want: http.StatusUnauthorized},
		{name: "x-api-key", expected: "secret", header: "X-API-Key", value: "secret", want: http.StatusOK},
		{name: "bearer", expected: "secret", header: "Authorization", value: "Bearer secret", want: http.StatusOK},
		{name: "basic", expected: "secret", header: "Authorization", value: "Basic secret", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/metrics", APIKeyAuth(tt.expected), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/transfers/:slug", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/transfers/a", "/api/transfers/b", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/api/transfers/:slug", "GET", "200")); got != 2 {
		t.Fatalf("unexpected route count: %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Fatalf("unexpected unmatched count: %v", got)
	}
}

func TestObserveUpstreamAndHandler(t *testing.T) {
	m := New()
	m.ObserveUpstream(upstream.Outcome{Method: "GET", StatusCode: 200, Duration: 20 * time.Millisecond})
	m.ObserveUpstream(upstream.Outcome{Method: "GET", StatusCode: 503, Duration: time.Second})
	m.SetBackendOnline(false)
	m.CacheLookup("hit")

	if got := testutil.ToFloat64(m.backendOnline); got != 0 {
		t.Fatalf("unexpected gauge: %v", got)
	}

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	for _, want := range []string{
		`transfer_gateway_upstream_request_duration_seconds_count{method="GET",outcome="5xx"} 1`,
		`transfer_gateway_cache_lookups_total{result="hit"} 1`,
		`transfer_gateway_backend_online 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
