// Package status: 백엔드 가용성 추적과 게이트웨이 프로세스 통계
package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/upstream"
)

// DefaultFailureThreshold: 오프라인 판정까지의 연속 실패 횟수
const DefaultFailureThreshold = 3

const subscriberBuffer = 4

// Snapshot: 백엔드 상태 스냅샷
type Snapshot struct {
	Online              bool       `json:"online"`
	CheckedAt           *time.Time `json:"checked_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastStatusCode      int        `json:"last_status_code,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
}

// Tracker: upstream.Observer 구현. 연속 실패가 임계값에 닿으면 오프라인으로 전환하고,
// 성공 한 번으로 온라인에 복귀한다. 전환 시에만 구독자에게 알린다.
type Tracker struct {
	mu          sync.Mutex
	threshold   int
	state       Snapshot
	subscribers map[int]chan Snapshot
	nextID      int
	now         func() time.Time
	logger      *slog.Logger
}

var _ upstream.Observer = (*Tracker)(nil)

// NewTracker: 온라인 상태로 시작하는 Tracker 를 생성합니다.
func NewTracker(threshold int, logger *slog.Logger) *Tracker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &Tracker{
		threshold:   threshold,
		state:       Snapshot{Online: true},
		subscribers: make(map[int]chan Snapshot),
		now:         time.Now,
		logger:      logger.With(slog.String("component", "backend-status")),
	}
}

// ObserveUpstream: 호출 결과를 반영합니다.
func (t *Tracker) ObserveUpstream(o upstream.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.state.CheckedAt = &now
	t.state.LastStatusCode = o.StatusCode
	wasOnline := t.state.Online

	if o.Failed() {
		t.state.ConsecutiveFailures++
		t.state.LastFailureAt = &now
		t.state.LastError = describeFailure(o)
		if t.state.ConsecutiveFailures >= t.threshold {
			t.state.Online = false
		}
	} else {
		t.state.ConsecutiveFailures = 0
		t.state.LastSuccessAt = &now
		t.state.LastError = ""
		t.state.Online = true
	}

	if wasOnline != t.state.Online {
		t.logger.Warn("backend_status_changed",
			slog.Bool("online", t.state.Online),
			slog.Int("consecutive_failures", t.state.ConsecutiveFailures),
			slog.String("last_error", t.state.LastError),
		)
		t.broadcastLocked(t.state)
	}
}

// Snapshot: 현재 상태 복사본
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Online: 현재 온라인 여부
func (t *Tracker) Online() bool {
	return t.Snapshot().Online
}

// Subscribe: 상태 전환 알림 채널과 해지 함수를 반환합니다.
// 소비가 느린 구독자의 알림은 버려진다.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	ch := make(chan Snapshot, subscriberBuffer)
	t.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if sub, ok := t.subscribers[id]; ok {
				delete(t.subscribers, id)
				close(sub)
			}
		})
	}
}

func (t *Tracker) broadcastLocked(s Snapshot) {
	for _, ch := range t.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}

// Prober: 백엔드 헬스 확인
type Prober interface {
	Probe(ctx context.Context) error
}

// RunProbe: interval 마다 헬스 확인을 호출합니다. 결과는 Prober 의 관찰자 경로로 반영된다.
// interval <= 0 이면 ctx 종료까지 대기만 한다.
func (t *Tracker) RunProbe(ctx context.Context, p Prober, interval time.Duration) error {
	if interval <= 0 || p == nil {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probe := func() {
		if err := p.Probe(ctx); err != nil && ctx.Err() == nil {
			t.logger.Debug("backend_probe_failed", slog.Any("error", err))
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			probe()
		}
	}
}

func describeFailure(o upstream.Outcome) string {
	if o.Err != nil {
		if d := httperror.FromError(o.Err).Details; d != "" {
			return d
		}
		return httperror.DetailUnreachable
	}
	return fmt.Sprintf("status %d %s", o.StatusCode, http.StatusText(o.StatusCode))
}
