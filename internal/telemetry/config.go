// Package telemetry: OpenTelemetry 기반 분산 추적 기능을 제공합니다.
package telemetry

// Config: OpenTelemetry 설정입니다.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint: gRPC collector 주소 (예: "jaeger:4317")
	OTLPEndpoint string
	OTLPInsecure bool

	// SampleRate: 루트 span 샘플링 비율 (0.0 ~ 1.0)
	SampleRate float64
}

// DefaultConfig: 비활성화 상태의 기본 설정을 반환합니다.
func DefaultConfig() Config {
	return Config{
		ServiceName:  "transfer-gateway",
		SampleRate:   1.0,
		OTLPInsecure: true,
	}
}

func (c Config) sampleRatio() float64 {
	switch {
	case c.SampleRate <= 0:
		return 0
	case c.SampleRate >= 1:
		return 1
	default:
		return c.SampleRate
	}
}
