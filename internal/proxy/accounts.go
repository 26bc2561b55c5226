package proxy

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/park285/transfer-gateway/internal/auth"
	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/upstream"
)

// LoginRequest: 로그인 요청
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login: POST /api/auth/login → POST /auth/login (bearer 불필요)
// IP 별 연속 실패가 누적되면 잠시 차단한다.
func (h *Handler) Login(c *gin.Context) {
	ip := c.ClientIP()
	if allowed, wait := h.loginLimiter.Allow(ip); !allowed {
		h.logger.WarnContext(c.Request.Context(), "login_rate_limited",
			slog.String("ip", ip),
			slog.Duration("retry_after", wait),
		)
		if wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		}
		httperror.Write(c, nil, httperror.NewRateLimitExceeded())
		return
	}

	var req LoginRequest
	if !httperror.BindJSON(c, &req) {
		return
	}

	up, err := jsonRequest(c, http.MethodPost, "/auth/login", req)
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	resp, data, err := h.call(c, up)
	switch {
	case resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
		attempts := h.loginLimiter.RecordFailure(ip)
		h.logger.InfoContext(c.Request.Context(), "login_failed",
			slog.String("ip", ip),
			slog.Int("attempts", attempts),
		)
	case err == nil:
		h.loginLimiter.RecordSuccess(ip)
	}
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	c.JSON(resp.StatusCode, httperror.Envelope{Success: true, Data: envelopeData(data)})
}

// Me: GET /api/auth/me → GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	if claims, ok := auth.ClaimsFrom(c); ok {
		h.logger.DebugContext(c.Request.Context(), "auth_me", slog.String("subject", claims.Subject))
	}
	h.forward(c, upstream.Request{Method: http.MethodGet, Path: "/auth/me"})
}
