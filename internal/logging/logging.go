// Package logging: 게이트웨이 로거를 구성합니다.
// tint 핸들러, lumberjack 로테이션, OTel trace 상관관계를 지원합니다.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config: 로깅 설정입니다.
type Config struct {
	Level      string // debug, info, warn, error
	Dir        string // 비어있으면 stdout만 사용
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	OTel       bool // trace_id/span_id 자동 추가
}

// DefaultConfig: 기본 로깅 설정을 반환합니다.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FileName:   "gateway.log",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// New: 설정에 맞는 로거를 만들고 slog 기본 로거로 등록합니다.
func New(cfg Config) (*slog.Logger, error) {
	level := ParseLevel(cfg.Level)
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		logger := slog.New(newHandler(os.Stdout, level, false, cfg.OTel))
		slog.SetDefault(logger)
		return logger, nil
	}

	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
		return nil, fmt.Errorf(
			"invalid log config: size=%d backups=%d age_days=%d",
			cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays,
		)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir failed: %w", err)
	}

	name := cfg.FileName
	if name == "" {
		name = DefaultConfig().FileName
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	logger := slog.New(newHandler(io.MultiWriter(os.Stdout, file), level, true, cfg.OTel))
	slog.SetDefault(logger)
	logger.Info("file_logging_enabled",
		slog.String("path", file.Filename),
		slog.Bool("otel_correlation", cfg.OTel),
	)
	return logger, nil
}

// Discard: 테스트용 무출력 로거
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newHandler(w io.Writer, level slog.Level, noColor, enableOTel bool) slog.Handler {
	var handler slog.Handler = tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		AddSource:  true,
		NoColor:    noColor,
	})
	if enableOTel {
		handler = &OTelHandler{inner: handler}
	}
	return handler
}

// ParseLevel: 문자열 레벨을 slog.Level로 변환합니다. 알 수 없는 값은 info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OTelHandler: 활성 span이 있으면 trace_id/span_id를 레코드에 추가합니다.
type OTelHandler struct {
	inner slog.Handler
}

func (h *OTelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *OTelHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if err := h.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("handle log record: %w", err)
	}
	return nil
}

func (h *OTelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &OTelHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *OTelHandler) WithGroup(name string) slog.Handler {
	return &OTelHandler{inner: h.inner.WithGroup(name)}
}
