// Package proxy: 외부 백엔드로 요청을 전달하고 응답을 공통 봉투로 정규화합니다.
package proxy

import (
	"log/slog"
	"time"

	"github.com/park285/transfer-gateway/internal/auth"
	"github.com/park285/transfer-gateway/internal/cache"
	"github.com/park285/transfer-gateway/internal/content"
	"github.com/park285/transfer-gateway/internal/i18n"
	"github.com/park285/transfer-gateway/internal/lambda"
	"github.com/park285/transfer-gateway/internal/upstream"
)

const (
	defaultStatusPollTimeout = 10 * time.Second
	defaultMediaMaxBytes     = 20 << 20
	defaultCacheTTL          = 60 * time.Second
)

// CacheRecorder: 캐시 조회 결과 기록 (metrics.Metrics)
type CacheRecorder interface {
	CacheLookup(result string)
}

// Options: 핸들러 의존성. 비어있는 선택 항목은 해당 기능을 끈다.
type Options struct {
	Client  *upstream.Client
	Catalog *i18n.Catalog
	Logger  *slog.Logger

	StatusPollTimeout time.Duration
	MediaMaxBytes     int64
	Quality           content.Thresholds

	// Cache: nil 이면 공개 목록 캐시 비활성
	Cache    cache.Store
	CacheTTL time.Duration
	Recorder CacheRecorder

	// Translator: 설정되면 일괄 번역을 Lambda 로 직접 호출한다.
	Translator lambda.Invoker

	LoginLimiter *auth.LoginLimiter

	now func() time.Time
}

// Handler: 프록시 라우트 핸들러 묶음. 요청 간 도메인 상태를 갖지 않는다.
type Handler struct {
	client       *upstream.Client
	catalog      *i18n.Catalog
	logger       *slog.Logger
	pollTimeout  time.Duration
	mediaMax     int64
	quality      content.Thresholds
	cache        cache.Store
	cacheTTL     time.Duration
	recorder     CacheRecorder
	translator   lambda.Invoker
	loginLimiter *auth.LoginLimiter
	now          func() time.Time
}

// New: 핸들러를 생성합니다.
func New(opts Options) *Handler {
	h := &Handler{
		client:       opts.Client,
		catalog:      opts.Catalog,
		logger:       opts.Logger.With(slog.String("component", "proxy")),
		pollTimeout:  opts.StatusPollTimeout,
		mediaMax:     opts.MediaMaxBytes,
		quality:      opts.Quality,
		cache:        opts.Cache,
		cacheTTL:     opts.CacheTTL,
		recorder:     opts.Recorder,
		translator:   opts.Translator,
		loginLimiter: opts.LoginLimiter,
		now:          opts.now,
	}
	if h.pollTimeout <= 0 {
		h.pollTimeout = defaultStatusPollTimeout
	}
	if h.mediaMax <= 0 {
		h.mediaMax = defaultMediaMaxBytes
	}
	if h.quality == (content.Thresholds{}) {
		h.quality = content.DefaultThresholds()
	}
	if h.cacheTTL <= 0 {
		h.cacheTTL = defaultCacheTTL
	}
	if h.loginLimiter == nil {
		h.loginLimiter = auth.NewLoginLimiter()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *Handler) recordCache(result string) {
	if h.recorder != nil {
		h.recorder.CacheLookup(result)
	}
}
