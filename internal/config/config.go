// Package config: 설정 관리
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config: 애플리케이션 설정
type Config struct {
	// 서버 설정
	Port         string
	Environment  string
	LogLevel     string
	LogDirectory string
	HTTP2Enabled bool

	// TLS 설정 (HTTP/2 지원)
	TLSEnabled  bool
	TLSCertPath string
	TLSKeyPath  string

	// 외부 백엔드 (AWS API Gateway)
	// 모든 프록시 핸들러가 공유하는 단일 base URL이다.
	APIBaseURL           string
	UpstreamTimeout      time.Duration
	StatusPollTimeout    time.Duration
	UpstreamMaxBodyBytes int64
	MediaMaxBytes        int64

	// 백엔드 상태 감시
	BackendFailureThreshold int
	BackendProbeInterval    time.Duration

	// 사이트 라우트 CORS (프록시 라우트는 정적 헤더 사용)
	AllowedOrigins []string

	// X-Forwarded-For 를 신뢰할 프록시 (IP 또는 CIDR). 비어있으면 RemoteAddr 만 사용
	TrustedProxies []string

	// 다국어 설정
	SupportedLocales []string
	DefaultLocale    string
	SecureCookies    bool

	// 콘텐츠 품질 기준
	ContentMinWords int
	ContentMinChars int

	// 공개 조회 캐시
	CacheEnabled bool
	CacheBackend string // valkey | memory
	CacheTTL     time.Duration
	CacheMaxSize int
	ValkeyURL    string

	// 뉴스레터 구독 요청 제한
	NewsletterRatePerMinute int
	NewsletterBurst         int

	// Metrics 설정
	MetricsAPIKey string

	// AWS Lambda 직접 호출 (비어있으면 HTTP 경로 사용)
	AWSRegion               string
	TranslationFunctionName string

	// OTEL 설정
	OTELEnabled     bool
	OTELEndpoint    string
	OTELServiceName string
	OTLPInsecure    bool
	OTELSampleRate  float64
}

// Load: 환경 변수에서 설정 로드
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "30100"),
		Environment:  getEnv("ENV", "production"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogDirectory: getEnv("LOG_DIR", ""),
		HTTP2Enabled: getEnvBool("HTTP2_ENABLED", true),

		TLSEnabled:  getEnvBool("TLS_ENABLED", false),
		TLSCertPath: getEnv("TLS_CERT_PATH", "/certs/localhost.crt"),
		TLSKeyPath:  getEnv("TLS_KEY_PATH", "/certs/localhost.key"),

		APIBaseURL:           strings.TrimSuffix(getEnvAny("API_BASE_URL", "NEXT_PUBLIC_API_URL"), "/"),
		UpstreamTimeout:      getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		StatusPollTimeout:    getEnvDuration("STATUS_POLL_TIMEOUT", 10*time.Second),
		UpstreamMaxBodyBytes: getEnvInt64("UPSTREAM_MAX_BODY_BYTES", 10<<20),
		MediaMaxBytes:        getEnvInt64("MEDIA_MAX_BYTES", 20<<20),

		BackendFailureThreshold: getEnvInt("BACKEND_FAILURE_THRESHOLD", 3),
		BackendProbeInterval:    getEnvDuration("BACKEND_PROBE_INTERVAL", 30*time.Second),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{"127.0.0.1", "::1"}),

		SupportedLocales: getEnvList("SUPPORTED_LOCALES", []string{"en", "es", "fr", "it"}),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		SecureCookies:    getEnvBool("SECURE_COOKIES", true),

		ContentMinWords: getEnvInt("CONTENT_MIN_WORDS", 100),
		ContentMinChars: getEnvInt("CONTENT_MIN_CHARS", 500),

		CacheEnabled: getEnvBool("CACHE_ENABLED", true),
		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheTTL:     getEnvDuration("CACHE_TTL", 60*time.Second),
		CacheMaxSize: getEnvInt("CACHE_MAX_SIZE", 1000),
		ValkeyURL:    getEnv("VALKEY_URL", "valkey-cache:6379"),

		NewsletterRatePerMinute: getEnvInt("NEWSLETTER_RATE_PER_MINUTE", 5),
		NewsletterBurst:         getEnvInt("NEWSLETTER_BURST", 3),

		MetricsAPIKey: getEnv("METRICS_API_KEY", ""),

		AWSRegion:               getEnv("AWS_REGION", "eu-west-1"),
		TranslationFunctionName: getEnv("TRANSLATION_FUNCTION_NAME", ""),

		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4317"),
		OTELServiceName: getEnv("OTEL_SERVICE_NAME", "transfer-gateway"),
		OTLPInsecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELSampleRate:  getEnvFloat("OTEL_SAMPLE_RATE", 1.0),
	}
}

// Validate: 기동 전에 필수 설정을 검사한다.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("parse API_BASE_URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL: must be scheme://host[/stage], got %q", c.APIBaseURL)
	}
	if len(c.SupportedLocales) == 0 {
		return errors.New("SUPPORTED_LOCALES must not be empty")
	}
	if !slices.Contains(c.SupportedLocales, c.DefaultLocale) {
		return fmt.Errorf("DEFAULT_LOCALE %q is not in SUPPORTED_LOCALES %v", c.DefaultLocale, c.SupportedLocales)
	}
	if c.ContentMinWords < 0 || c.ContentMinChars < 0 {
		return fmt.Errorf("invalid content thresholds: words=%d chars=%d", c.ContentMinWords, c.ContentMinChars)
	}
	if c.BackendFailureThreshold <= 0 {
		return fmt.Errorf("BACKEND_FAILURE_THRESHOLD must be positive, got %d", c.BackendFailureThreshold)
	}
	for _, origin := range c.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("invalid ALLOWED_ORIGINS entry %q: must start with http:// or https://", origin)
		}
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid TRUSTED_PROXIES entry %q: must be an IP or CIDR", proxy)
			}
		}
	}
	switch c.CacheBackend {
	case "valkey", "memory":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	return nil
}

// IsProduction: 운영 환경 여부
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvAny(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration: "30s" 형식과 정수 초 단위("30") 모두 허용한다.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	items := strings.FieldsFunc(val, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
