// Package metrics: Prometheus 수집기와 /metrics 엔드포인트
package metrics

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/park285/transfer-gateway/internal/httperror"
)

// APIKeyAuth: /metrics 보호용 API 키 미들웨어입니다.
// 키가 비어있으면 보호하지 않습니다 (내부망 전제).
// Authorization: Bearer <token> 또는 X-API-Key: <token> 를 지원합니다.
func APIKeyAuth(expected string) gin.HandlerFunc {
	expected = strings.TrimSpace(expected)

	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		provided := extractAPIKey(c)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httperror.Envelope{Success: false, Error: "Unauthorized"})
			return
		}

		c.Next()
	}
}

func extractAPIKey(c *gin.Context) string {
	if value := strings.TrimSpace(c.GetHeader("X-API-Key")); value != "" {
		return value
	}

	authValue := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(authValue) > 7 && strings.EqualFold(authValue[:7], "bearer ") {
		return strings.TrimSpace(authValue[7:])
	}
	return ""
}
