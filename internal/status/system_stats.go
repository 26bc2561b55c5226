package status

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ProcessStats: 게이트웨이 호스트/프로세스 통계
type ProcessStats struct {
	CPUUsage    float64 `json:"cpu_usage"`    // %
	MemoryUsage float64 `json:"memory_usage"` // %
	MemoryTotal uint64  `json:"memory_total"` // bytes
	MemoryUsed  uint64  `json:"memory_used"`  // bytes
	Goroutines  int     `json:"goroutines"`
}

// Report: GET /api/backend-status 응답
type Report struct {
	Backend   Snapshot      `json:"backend"`
	Gateway   *ProcessStats `json:"gateway,omitempty"`
	Version   string        `json:"version"`
	Uptime    string        `json:"uptime"`
	StartedAt int64         `json:"started_at"`
}

// Collector: 백엔드 상태와 프로세스 통계를 묶는다.
type Collector struct {
	tracker   *Tracker
	version   string
	startTime time.Time
}

// NewCollector: 상태 수집기 생성
func NewCollector(tracker *Tracker, version string) *Collector {
	return &Collector{tracker: tracker, version: version, startTime: time.Now()}
}

// Tracker: 내부 Tracker
func (c *Collector) Tracker() *Tracker {
	return c.tracker
}

// ProcessStats: CPU/메모리 사용률을 즉시 측정합니다.
func (c *Collector) ProcessStats(ctx context.Context) (*ProcessStats, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memory stats: %w", err)
	}
	cpus, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("read cpu stats: %w", err)
	}

	var cpuUsage float64
	if len(cpus) > 0 {
		cpuUsage = cpus[0]
	}
	return &ProcessStats{
		CPUUsage:    cpuUsage,
		MemoryUsage: v.UsedPercent,
		MemoryTotal: v.Total,
		MemoryUsed:  v.Used,
		Goroutines:  runtime.NumGoroutine(),
	}, nil
}

// Report: 통계 수집이 실패해도 백엔드 상태는 항상 포함한다.
func (c *Collector) Report(ctx context.Context) Report {
	stats, _ := c.ProcessStats(ctx)
	return Report{
		Backend:   c.tracker.Snapshot(),
		Gateway:   stats,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Truncate(time.Second).String(),
		StartedAt: c.startTime.Unix(),
	}
}
