package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRejectsInvalidRotation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.MaxBackups = 0

	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for zero backups")
	}
}

func TestNewWritesLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("hello_gateway")

	data, err := os.ReadFile(filepath.Join(cfg.Dir, "gateway.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello_gateway") {
		t.Fatalf("log file missing event: %s", data)
	}
}

func TestOTelHandlerAddsTraceIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(&OTelHandler{inner: slog.NewTextHandler(&buf, nil)})

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "traced")
	out := buf.String()
	if !strings.Contains(out, "trace_id=0102030405060708090a0b0c0d0e0f10") {
		t.Fatalf("trace_id missing: %s", out)
	}
	if !strings.Contains(out, "span_id=0102030405060708") {
		t.Fatalf("span_id missing: %s", out)
	}

	buf.Reset()
	logger.Info("untraced")
	if strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("unexpected trace_id without span: %s", buf.String())
	}
}
