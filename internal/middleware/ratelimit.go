package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/park285/transfer-gateway/internal/cache"
	"github.com/park285/transfer-gateway/internal/httperror"
)

// RateLimitConfig: 클라이언트별 토큰 버킷 설정
type RateLimitConfig struct {
	PerMinute int
	Burst     int
	// MaxClients: 추적할 최대 클라이언트 수 (LRU)
	MaxClients int
}

// RateLimit 는 클라이언트 IP 별 요청 제한 미들웨어다. PerMinute <= 0 이면 비활성.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.PerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = 10000
	}

	every := rate.Every(time.Minute / time.Duration(cfg.PerMinute))
	// 버킷이 가득 차는 시간이 지나면 상태를 잊어도 동일하다.
	idle := time.Duration(burst) * time.Minute / time.Duration(cfg.PerMinute)
	if idle < time.Minute {
		idle = time.Minute
	}
	limiters := cache.NewTTLCache[string, *rate.Limiter](maxClients, idle)
	var mu sync.Mutex

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		identity := clientIdentity(c)

		mu.Lock()
		limiter, ok := limiters.Get(identity)
		if !ok {
			limiter = rate.NewLimiter(every, burst)
		}
		limiters.Set(identity, limiter)
		mu.Unlock()

		if !limiter.Allow() {
			c.Header("Retry-After", "60")
			httperror.Write(c, nil, httperror.NewRateLimitExceeded())
			return
		}
		c.Next()
	}
}

// clientIdentity: X-Forwarded-For 는 엔진의 신뢰 프록시 설정을 거친 ClientIP 로만 반영된다.
func clientIdentity(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}
