package auth

import (
	"context"
	"sync"
	"time"
)

// LoginLimiter: IP 별 로그인 실패 횟수 제한
type LoginLimiter struct {
	attempts    map[string]*attemptInfo
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
	now         func() time.Time
}

type attemptInfo struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// NewLoginLimiter: 5분 내 5회 실패 시 15분 잠금
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		attempts:    make(map[string]*attemptInfo),
		maxAttempts: 5,
		window:      5 * time.Minute,
		lockout:     15 * time.Minute,
		now:         time.Now,
	}
}

// Allow: 로그인 시도 허용 여부와 잠금 잔여 시간
func (l *LoginLimiter) Allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.attempts[ip]
	if !ok {
		return true, 0
	}

	now := l.now()
	if now.Before(info.lockedUntil) {
		return false, info.lockedUntil.Sub(now)
	}
	if now.Sub(info.firstAttempt) > l.window {
		delete(l.attempts, ip)
		return true, 0
	}
	return info.count < l.maxAttempts, 0
}

// RecordFailure: 실패를 기록하고 누적 횟수를 반환합니다.
func (l *LoginLimiter) RecordFailure(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	info, ok := l.attempts[ip]
	if !ok || now.Sub(info.firstAttempt) > l.window && !now.Before(info.lockedUntil) {
		info = &attemptInfo{firstAttempt: now}
		l.attempts[ip] = info
	}

	info.count++
	if info.count >= l.maxAttempts {
		info.lockedUntil = now.Add(l.lockout)
	}
	return info.count
}

// RecordSuccess: 성공 시 초기화
func (l *LoginLimiter) RecordSuccess(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, ip)
}

// Run: ctx 종료까지 오래된 기록을 주기적으로 정리합니다.
func (l *LoginLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *LoginLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, info := range l.attempts {
		if now.Sub(info.firstAttempt) > l.window+l.lockout {
			delete(l.attempts, ip)
		}
	}
}
