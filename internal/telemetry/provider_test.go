package telemetry

import (
	"context"
	"testing"
)

func TestNewProviderDisabled(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.IsEnabled() {
		t.Fatalf("expected disabled provider")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown on no-op provider: %v", err)
	}
}

func TestSampleRatioClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want float64
	}{
		{rate: -1, want: 0},
		{rate: 0.25, want: 0.25},
		{rate: 3, want: 1},
	}
	for _, tt := range tests {
		if got := (Config{SampleRate: tt.rate}).sampleRatio(); got != tt.want {
			t.Fatalf("sampleRatio(%v) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}
