// Package server: HTTP 서버 및 라우팅
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/park285/transfer-gateway/internal/auth"
	"github.com/park285/transfer-gateway/internal/config"
	"github.com/park285/transfer-gateway/internal/content"
	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/i18n"
	"github.com/park285/transfer-gateway/internal/metrics"
	"github.com/park285/transfer-gateway/internal/middleware"
	"github.com/park285/transfer-gateway/internal/proxy"
	"github.com/park285/transfer-gateway/internal/status"
)

// sitePrefixes: 쿠키를 쓰는 사이트 라우트. 출처 제한 CORS 를 적용한다.
var sitePrefixes = []string{"/api/i18n", "/api/locale", "/api/preferences", "/api/content"}

// ReadyCheck: /health/ready 에서 확인할 의존성
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps: 서버 구성 요소
type Deps struct {
	Config    *config.Config
	Logger    *slog.Logger
	Catalog   *i18n.Catalog
	Proxy     *proxy.Handler
	Collector *status.Collector
	Metrics   *metrics.Metrics
	Checks    []ReadyCheck
}

// Server: HTTP 서버
type Server struct {
	engine    *gin.Engine
	cfg       *config.Config
	logger    *slog.Logger
	catalog   *i18n.Catalog
	proxy     *proxy.Handler
	collector *status.Collector
	metrics   *metrics.Metrics
	checks    []ReadyCheck
	quality   content.Thresholds
}

// New: 서버 생성
func New(d Deps) *Server {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	s := &Server{
		engine:    engine,
		cfg:       cfg,
		logger:    d.Logger.With(slog.String("component", "http-server")),
		catalog:   d.Catalog,
		proxy:     d.Proxy,
		collector: d.Collector,
		metrics:   d.Metrics,
		checks:    d.Checks,
		quality:   content.Thresholds{MinWords: cfg.ContentMinWords, MinChars: cfg.ContentMinChars},
	}

	// 신뢰 프록시 외의 X-Forwarded-For 는 ClientIP 에 반영하지 않는다 (요청 제한, 로그인 잠금)
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		s.logger.Warn("trusted_proxies_invalid", slog.Any("error", err))
		_ = engine.SetTrustedProxies(nil)
	}

	// OTel 미들웨어: 가장 앞에 배치
	if cfg.OTELEnabled {
		serviceName := strings.TrimSpace(cfg.OTELServiceName)
		if serviceName == "" {
			serviceName = "transfer-gateway"
		}
		engine.Use(otelgin.Middleware(serviceName))
		s.logger.Info("otel_http_middleware_enabled", slog.String("service", serviceName))
	}

	engine.Use(gin.CustomRecovery(s.recover))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(d.Logger))
	engine.Use(auth.SecurityHeaders())
	if s.metrics != nil {
		engine.Use(s.metrics.Middleware())
	}
	engine.Use(siteCORS(cfg.AllowedOrigins))

	s.setupRoutes()
	return s
}

// siteCORS: 사이트 라우트에만 출처 제한 CORS 를 적용한다.
// 프록시 라우트는 고정 헤더(middleware.ProxyCORS)를 사용한다.
func siteCORS(origins []string) gin.HandlerFunc {
	handler := cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept-Language"},
		ExposeHeaders:    []string{"Content-Length", "ETag"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
	return func(c *gin.Context) {
		if isSitePath(c.Request.URL.Path) {
			handler(c)
		}
	}
}

func isSitePath(path string) bool {
	for _, prefix := range sitePrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (s *Server) recover(c *gin.Context, recovered any) {
	s.logger.ErrorContext(c.Request.Context(), "panic_recovered",
		slog.String("path", c.Request.URL.Path),
		slog.Any("panic", recovered),
	)
	httperror.Write(c, nil, httperror.NewInternal(""))
}

func (s *Server) setupRoutes() {
	publicRead := []gin.HandlerFunc{gzip.Gzip(gzip.DefaultCompression), middleware.ETag()}

	// 프록시 라우트 전체 OPTIONS: 200, 빈 본문, 고정 헤더
	s.engine.OPTIONS("/api/*path", middleware.Preflight)

	s.setupHealthRoutes()
	s.setupSiteRoutes(publicRead)
	s.setupStatusRoutes()

	if s.proxy != nil {
		api := s.engine.Group("/api", middleware.ProxyCORS())
		s.proxy.Register(api, proxy.RouteOptions{
			RequireAuth: auth.RequireBearer(s.logger),
			PublicRead:  publicRead,
			SubscribeLimit: middleware.RateLimit(middleware.RateLimitConfig{
				PerMinute: s.cfg.NewsletterRatePerMinute,
				Burst:     s.cfg.NewsletterBurst,
			}),
		})
	}

	s.engine.NoRoute(func(c *gin.Context) {
		httperror.Write(c, nil, httperror.NewNotFound("Not found"))
	})
}

// setupSiteRoutes: 사전, 로케일, 테마, 콘텐츠 검사 라우트
func (s *Server) setupSiteRoutes(publicRead []gin.HandlerFunc) {
	site := s.engine.Group("/api")

	i18nGroup := site.Group("/i18n", publicRead...)
	i18nGroup.GET("/:locale", s.handleDictionary)
	i18nGroup.GET("/:locale/lookup", s.handleLookup)

	site.GET("/locale", s.handleGetLocale)
	site.POST("/locale", s.handleSetLocale)

	site.GET("/preferences/theme", s.handleGetTheme)
	site.PUT("/preferences/theme", s.handleSetTheme)

	site.POST("/content/validate", s.handleValidateContent)
}

// setupStatusRoutes: 백엔드 상태 조회와 WebSocket 스트림
func (s *Server) setupStatusRoutes() {
	if s.collector == nil {
		return
	}
	s.engine.GET("/api/backend-status", s.handleBackendStatus)
	s.engine.GET("/api/backend-status/ws", s.handleBackendStatusStream)
}

// setupHealthRoutes: 헬스체크(인증 없음)와 메트릭(옵션: API 키 보호)
func (s *Server) setupHealthRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/health/ready", s.handleReady)

	if s.metrics != nil {
		s.engine.GET("/metrics",
			metrics.APIKeyAuth(s.cfg.MetricsAPIKey),
			gin.WrapH(s.metrics.Handler()),
		)
	}
}

// Handler: 라우터 (테스트용)
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer: net/http.Server 인스턴스를 반환합니다.
// TLS 없이 HTTP/2 를 켜면 h2c 로 감싼다.
func (s *Server) HTTPServer() *http.Server {
	server := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.cfg.HTTP2Enabled && !s.cfg.TLSEnabled {
		server.Handler = h2c.NewHandler(s.engine, &http2.Server{})
	}
	return server
}
