package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/park285/transfer-gateway/internal/config"
	"github.com/park285/transfer-gateway/internal/i18n"
	"github.com/park285/transfer-gateway/internal/logging"
	"github.com/park285/transfer-gateway/internal/metrics"
	"github.com/park285/transfer-gateway/internal/proxy"
	"github.com/park285/transfer-gateway/internal/status"
	"github.com/park285/transfer-gateway/internal/upstream"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                    "0",
		Environment:             "test",
		AllowedOrigins:          []string{"http://localhost:3000"},
		SupportedLocales:        []string{"en", "es", "fr", "it"},
		DefaultLocale:           "en",
		SecureCookies:           true,
		ContentMinWords:         100,
		ContentMinChars:         500,
		NewsletterRatePerMinute: 5,
		NewsletterBurst:         3,
	}
}

type fixture struct {
	server  *Server
	tracker *status.Tracker
}

func newFixture(t *testing.T, mutate func(*config.Config, *Deps)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	logger := logging.Discard()
	catalog, err := i18n.NewCatalog(cfg.SupportedLocales, cfg.DefaultLocale)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	tracker := status.NewTracker(3, logger)
	deps := Deps{
		Config:    cfg,
		Logger:    logger,
		Catalog:   catalog,
		Collector: status.NewCollector(tracker, "test"),
		Metrics:   metrics.New(),
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}
	return &fixture{server: New(deps), tracker: tracker}
}

func (f *fixture) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func (f *fixture) failBackend(n int) {
	for range n {
		f.tracker.ObserveUpstream(upstream.Outcome{Method: http.MethodGet, Path: "/health", Err: errors.New("dial tcp: refused")})
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"ok"}` {
		t.Fatalf("unexpected health response: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" || w.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("security headers missing: %v", w.Header())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("request id header missing")
	}
}

func TestReadyReflectsBackendAndChecks(t *testing.T) {
	cacheErr := errors.New("valkey: connection refused")
	var failing bool
	f := newFixture(t, func(_ *config.Config, d *Deps) {
		d.Checks = []ReadyCheck{{Name: "cache", Check: func(context.Context) error {
			if failing {
				return cacheErr
			}
			return nil
		}}}
	})

	if w := f.do(http.MethodGet, "/health/ready", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	failing = true
	w := f.do(http.MethodGet, "/health/ready", "", nil)
	var resp ReadyResponse
	decode(t, w, &resp)
	if w.Code != http.StatusServiceUnavailable || resp.Checks["cache"] != cacheErr.Error() || resp.Checks["backend"] != "ok" {
		t.Fatalf("unexpected ready response: %d %s", w.Code, w.Body.String())
	}

	failing = false
	f.failBackend(3)
	w = f.do(http.MethodGet, "/health/ready", "", nil)
	decode(t, w, &resp)
	if w.Code != http.StatusServiceUnavailable || resp.Checks["backend"] != "offline" {
		t.Fatalf("unexpected ready response: %d %s", w.Code, w.Body.String())
	}
}

func TestDictionaryRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/i18n/es", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var env struct {
		Success bool                      `json:"success"`
		Data    map[string]map[string]any `json:"data"`
	}
	decode(t, w, &env)
	if !env.Success || env.Data["nav"]["home"] != "Inicio" {
		t.Fatalf("unexpected dictionary: %s", w.Body.String())
	}
	if w.Header().Get("Content-Language") != "es" || w.Header().Get("ETag") == "" {
		t.Fatalf("expected Content-Language and ETag, got %v", w.Header())
	}

	etag := w.Header().Get("ETag")
	if w := f.do(http.MethodGet, "/api/i18n/es", "", map[string]string{"If-None-Match": etag}); w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	w = f.do(http.MethodGet, "/api/i18n/de", "", nil)
	var nf envelope
	decode(t, w, &nf)
	if w.Code != http.StatusNotFound || nf.Success {
		t.Fatalf("expected 404 envelope, got %d %s", w.Code, w.Body.String())
	}

	cases := []struct {
		query string
		value string
		found bool
	}{
		{"key=transfer.published&date=1%20July", "Publicado el 1 July", true},
		{"key=nav.transfers", "Fichajes", true},
		{"key=nav.missing", "nav.missing", false},
	}
	for _, tc := range cases {
		w := f.do(http.MethodGet, "/api/i18n/es/lookup?"+tc.query, "", nil)
		var lookup struct {
			Data LookupResponse `json:"data"`
		}
		decode(t, w, &lookup)
		if lookup.Data.Value != tc.value || lookup.Data.Found != tc.found {
			t.Fatalf("%s: unexpected lookup %+v", tc.query, lookup.Data)
		}
	}
	if w := f.do(http.MethodGet, "/api/i18n/es/lookup", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", w.Code)
	}
}

func TestLocaleRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/locale", "", map[string]string{"Accept-Language": "fr-CA,fr;q=0.9,en;q=0.5"})
	var env struct {
		Data i18n.Resolution `json:"data"`
	}
	decode(t, w, &env)
	if env.Data.Locale != "fr" || env.Data.Source != i18n.SourceHeader {
		t.Fatalf("unexpected resolution: %+v", env.Data)
	}

	w = f.do(http.MethodPost, "/api/locale", `{"locale":"it"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	cookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "locale=it") || !strings.Contains(cookie, "Max-Age=31536000") || !strings.Contains(cookie, "SameSite=Lax") {
		t.Fatalf("unexpected cookie: %s", cookie)
	}

	w = f.do(http.MethodGet, "/api/locale", "", map[string]string{"Cookie": "locale=it", "Accept-Language": "fr"})
	decode(t, w, &env)
	if env.Data.Locale != "it" || env.Data.Source != i18n.SourceCookie {
		t.Fatalf("cookie must win over header: %+v", env.Data)
	}

	for _, body := range []string{`{"locale":"de"}`, `{}`, `nope`} {
		if w := f.do(http.MethodPost, "/api/locale", body, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestThemeRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/preferences/theme", "", nil)
	if !strings.Contains(w.Body.String(), `"theme":"system"`) {
		t.Fatalf("expected default system theme, got %s", w.Body.String())
	}

	w = f.do(http.MethodPut, "/api/preferences/theme", `{"theme":"dark"}`, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Set-Cookie"), "theme=dark") {
		t.Fatalf("unexpected response: %d %v", w.Code, w.Header())
	}

	w = f.do(http.MethodGet, "/api/preferences/theme", "", map[string]string{"Cookie": "theme=dark"})
	if !strings.Contains(w.Body.String(), `"theme":"dark"`) {
		t.Fatalf("expected dark theme, got %s", w.Body.String())
	}

	if w := f.do(http.MethodPut, "/api/preferences/theme", `{"theme":"blue"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestValidateContent(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/content/validate", `{"content":"<p>Deal agreed</p>","min_words":2,"min_chars":5}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var env struct {
		Data struct {
			WordCount int      `json:"word_count"`
			CharCount int      `json:"char_count"`
			IsValid   bool     `json:"is_valid"`
			Issues    []string `json:"issues"`
		} `json:"data"`
	}
	decode(t, w, &env)
	if env.Data.WordCount != 2 || env.Data.CharCount != 11 || !env.Data.IsValid {
		t.Fatalf("unexpected result: %s", w.Body.String())
	}

	w = f.do(http.MethodPost, "/api/content/validate", `{"content":"short text"}`, nil)
	decode(t, w, &env)
	if env.Data.IsValid || len(env.Data.Issues) != 2 {
		t.Fatalf("default thresholds must apply: %s", w.Body.String())
	}

	for _, body := range []string{`{}`, `{"content":"x","min_words":-1}`} {
		if w := f.do(http.MethodPost, "/api/content/validate", body, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestCORSSplitBetweenSiteAndProxyRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodOptions, "/api/locale", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for site preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" || w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("unexpected site CORS headers: %v", w.Header())
	}

	w = f.do(http.MethodOptions, "/api/admin/articles/1", "", map[string]string{
		"Origin":                        "https://elsewhere.example",
		"Access-Control-Request-Method": "DELETE",
	})
	if w.Code != http.StatusOK || w.Body.Len() != 0 || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected proxy preflight: %d %v", w.Code, w.Header())
	}
}

func TestNoRouteAndRecovery(t *testing.T) {
	f := newFixture(t, nil)
	f.server.engine.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := f.do(http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound || w.Body.String() != `{"success":false,"error":"Not found"}` {
		t.Fatalf("unexpected 404: %d %s", w.Code, w.Body.String())
	}

	w = f.do(http.MethodGet, "/boom", "", nil)
	if w.Code != http.StatusInternalServerError || w.Body.String() != `{"success":false,"error":"Internal server error"}` {
		t.Fatalf("unexpected panic response: %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsRequiresAPIKey(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *Deps) { cfg.MetricsAPIKey = "scrape-key" })

	if w := f.do(http.MethodGet, "/metrics", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	f.do(http.MethodGet, "/health", "", nil)
	w := f.do(http.MethodGet, "/metrics", "", map[string]string{"X-API-Key": "scrape-key"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "transfer_gateway_http_requests_total") {
		t.Fatalf("unexpected metrics response: %d", w.Code)
	}
}

func TestBackendStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.failBackend(3)

	w := f.do(http.MethodGet, "/api/backend-status", "", nil)
	var env struct {
		Data status.Report `json:"data"`
	}
	decode(t, w, &env)
	if w.Code != http.StatusOK || env.Data.Backend.Online || env.Data.Backend.ConsecutiveFailures != 3 || env.Data.Version != "test" {
		t.Fatalf("unexpected report: %s", w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("status must not be cached")
	}
}

func TestBackendStatusStream(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.server.Handler())
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/backend-status/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	if resp.Body != nil {
		_ = resp.Body.Close()
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap status.Snapshot
	if err := conn.ReadJSON(&snap); err != nil || !snap.Online {
		t.Fatalf("expected initial online snapshot, got %+v (%v)", snap, err)
	}

	f.failBackend(3)
	if err := conn.ReadJSON(&snap); err != nil || snap.Online || snap.ConsecutiveFailures != 3 {
		t.Fatalf("expected offline snapshot, got %+v (%v)", snap, err)
	}
}

func TestSubscribeIsRateLimited(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"data":{}}`)
	}))
	t.Cleanup(backend.Close)

	f := newFixture(t, func(cfg *config.Config, d *Deps) {
		cfg.NewsletterRatePerMinute = 1
		cfg.NewsletterBurst = 2
		client, err := upstream.New(upstream.Config{BaseURL: backend.URL}, d.Logger)
		if err != nil {
			t.Fatalf("upstream.New: %v", err)
		}
		d.Proxy = proxy.New(proxy.Options{Client: client, Catalog: d.Catalog, Logger: d.Logger})
	})

	body := `{"email":"fan@example.com"}`
	forwarded := func(i int) map[string]string {
		return map[string]string{"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1)}
	}
	for i := range 2 {
		if w := f.do(http.MethodPost, "/api/newsletter/subscribe", body, forwarded(i)); w.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d (%s)", i+1, w.Code, w.Body.String())
		}
	}
	// 신뢰 프록시가 없으므로 X-Forwarded-For 를 바꿔도 같은 클라이언트다
	w := f.do(http.MethodPost, "/api/newsletter/subscribe", body, forwarded(2))
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("proxy CORS headers must be present on limited responses")
	}
}

func TestHTTPServerUsesH2C(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *Deps) { cfg.HTTP2Enabled = true })
	if srv := f.server.HTTPServer(); srv.Handler == http.Handler(f.server.engine) {
		t.Fatalf("expected h2c handler wrapper")
	}

	f = newFixture(t, func(cfg *config.Config, _ *Deps) { cfg.HTTP2Enabled = true; cfg.TLSEnabled = true })
	if srv := f.server.HTTPServer(); srv.Handler != http.Handler(f.server.engine) {
		t.Fatalf("TLS server must use the engine directly")
	}
}
