// Package main: 이적 뉴스 게이트웨이의 엔트리포인트입니다.
// 사이트 라우트(i18n, 로케일, 테마, 콘텐츠 검사)와 AWS 백엔드 프록시를 제공합니다.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/transfer-gateway/internal/auth"
	"github.com/park285/transfer-gateway/internal/bootstrap"
	"github.com/park285/transfer-gateway/internal/cache"
	"github.com/park285/transfer-gateway/internal/config"
	"github.com/park285/transfer-gateway/internal/content"
	"github.com/park285/transfer-gateway/internal/i18n"
	"github.com/park285/transfer-gateway/internal/lambda"
	"github.com/park285/transfer-gateway/internal/logging"
	"github.com/park285/transfer-gateway/internal/metrics"
	"github.com/park285/transfer-gateway/internal/proxy"
	"github.com/park285/transfer-gateway/internal/server"
	"github.com/park285/transfer-gateway/internal/status"
	"github.com/park285/transfer-gateway/internal/telemetry"
	"github.com/park285/transfer-gateway/internal/upstream"
)

// Version: 빌드 시 ldflags로 주입됨
var Version = "dev"

func main() {
	// .env 파일 로드 (개발 환경용)
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	logger, err := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Dir:        cfg.LogDirectory,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
		OTel:       cfg.OTELEnabled,
	})
	if err != nil {
		// 파일 로깅 실패 시 stdout 로거 사용
		logger, _ = logging.New(logging.Config{Level: cfg.LogLevel, OTel: cfg.OTELEnabled})
		logger.Warn("file_logging_failed", slog.Any("error", err))
	}

	// 필수 설정 검증 (누락 시 즉시 종료)
	if err := cfg.Validate(); err != nil {
		logger.Error("config_invalid", slog.Any("error", err))
		os.Exit(1)
	}

	// OpenTelemetry 초기화 (선택적)
	var otelProvider *telemetry.Provider
	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		otelProvider, err = telemetry.NewProvider(ctx, telemetry.Config{
			Enabled:        true,
			ServiceName:    cfg.OTELServiceName,
			ServiceVersion: Version,
			Environment:    cfg.Environment,
			OTLPEndpoint:   cfg.OTELEndpoint,
			OTLPInsecure:   cfg.OTLPInsecure,
			SampleRate:     cfg.OTELSampleRate,
		})
		if err != nil {
			logger.Warn("otel_init_failed", slog.Any("error", err))
		} else if otelProvider.IsEnabled() {
			logger.Info("otel_initialized",
				slog.String("endpoint", cfg.OTELEndpoint),
				slog.String("service", cfg.OTELServiceName),
				slog.Float64("sample_rate", cfg.OTELSampleRate),
			)
		}
	}

	logger.Info("gateway_starting",
		slog.String("version", Version),
		slog.String("port", cfg.Port),
		slog.String("env", cfg.Environment),
		slog.String("api_base_url", cfg.APIBaseURL),
		slog.Bool("otel_enabled", cfg.OTELEnabled),
	)

	serverApp, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("app_init_failed", slog.Any("error", err))
		os.Exit(1)
	}

	// OTel Provider 정리
	if otelProvider != nil {
		serverApp.OnShutdown(func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := otelProvider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("otel_shutdown_failed", slog.Any("error", err))
				return
			}
			logger.Info("otel_shutdown_complete")
		})
	}

	if err := serverApp.Run(ctx); err != nil {
		logger.Error("app_run_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// initializeApp: 애플리케이션 구성 요소를 초기화합니다.
// 정리 함수는 ServerApp.OnShutdown 으로 등록되어 종료 시 역순 실행된다.
func initializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bootstrap.ServerApp, error) {
	var (
		cleanups []func()
		checks   []server.ReadyCheck
	)

	catalog, err := i18n.NewCatalog(cfg.SupportedLocales, cfg.DefaultLocale)
	if err != nil {
		return nil, err
	}

	// 공개 조회 캐시 (선택적)
	var store cache.Store
	if cfg.CacheEnabled {
		switch cfg.CacheBackend {
		case "valkey":
			client, err := cache.ConnectValkey(ctx, cache.ValkeyConfig{
				Addr:        cfg.ValkeyURL,
				DialTimeout: 5 * time.Second,
				MaxWait:     15 * time.Second,
			}, logger)
			if err != nil {
				return nil, err
			}
			cleanups = append(cleanups, func() {
				client.Close()
				logger.Info("valkey_closed")
			})
			checks = append(checks, server.ReadyCheck{Name: "cache", Check: func(ctx context.Context) error {
				return client.Do(ctx, client.B().Ping().Build()).Error()
			}})
			store = cache.NewValkeyStore(client)
		default:
			store = cache.NewMemoryStore(cfg.CacheMaxSize, cfg.CacheTTL)
		}
		logger.Info("cache_initialized", slog.String("backend", cfg.CacheBackend), slog.Duration("ttl", cfg.CacheTTL))
	}

	m := metrics.New()
	tracker := status.NewTracker(cfg.BackendFailureThreshold, logger)

	client, err := upstream.New(upstream.Config{
		BaseURL:      cfg.APIBaseURL,
		Timeout:      cfg.UpstreamTimeout,
		MaxBodyBytes: cfg.UpstreamMaxBodyBytes,
	}, logger, tracker, m)
	if err != nil {
		return nil, err
	}

	// 번역 Lambda 직접 호출 (선택적)
	var translator lambda.Invoker
	if cfg.TranslationFunctionName != "" {
		invoker, err := lambda.New(ctx, lambda.Config{
			Region:       cfg.AWSRegion,
			FunctionName: cfg.TranslationFunctionName,
			Timeout:      cfg.UpstreamTimeout,
		}, logger)
		if err != nil {
			logger.Warn("lambda_init_failed", slog.Any("error", err))
		} else {
			translator = invoker
			logger.Info("lambda_initialized",
				slog.String("function", cfg.TranslationFunctionName),
				slog.String("region", cfg.AWSRegion),
			)
		}
	}

	loginLimiter := auth.NewLoginLimiter()

	proxyHandler := proxy.New(proxy.Options{
		Client:            client,
		Catalog:           catalog,
		Logger:            logger,
		StatusPollTimeout: cfg.StatusPollTimeout,
		MediaMaxBytes:     cfg.MediaMaxBytes,
		Quality:           content.Thresholds{MinWords: cfg.ContentMinWords, MinChars: cfg.ContentMinChars},
		Cache:             store,
		CacheTTL:          cfg.CacheTTL,
		Recorder:          m,
		Translator:        translator,
		LoginLimiter:      loginLimiter,
	})

	httpServer := server.New(server.Deps{
		Config:    cfg,
		Logger:    logger,
		Catalog:   catalog,
		Proxy:     proxyHandler,
		Collector: status.NewCollector(tracker, Version),
		Metrics:   m,
		Checks:    checks,
	})

	serverApp := bootstrap.NewServerApp(
		"transfer-gateway",
		logger,
		httpServer.HTTPServer(),
		30*time.Second,
	).WithTLS(cfg.TLSEnabled, cfg.TLSCertPath, cfg.TLSKeyPath)

	serverApp.
		AddWorker(func(ctx context.Context) error {
			return tracker.RunProbe(ctx, client, cfg.BackendProbeInterval)
		}).
		AddWorker(func(ctx context.Context) error {
			return syncBackendGauge(ctx, tracker, m)
		}).
		AddWorker(loginLimiter.Run)

	for _, fn := range cleanups {
		serverApp.OnShutdown(fn)
	}
	return serverApp, nil
}

// syncBackendGauge: 온라인/오프라인 전환을 backend_online 게이지에 반영한다.
func syncBackendGauge(ctx context.Context, tracker *status.Tracker, m *metrics.Metrics) error {
	updates, unsubscribe := tracker.Subscribe()
	defer unsubscribe()

	m.SetBackendOnline(tracker.Online())
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			m.SetBackendOnline(snap.Online)
		}
	}
}
