// Package auth: 관리자 API 의 bearer 토큰 확인과 보안 헤더
//
// 토큰 검증은 백엔드가 담당한다. 게이트웨이는 헤더 존재와 형식만 확인하고,
// 감사 로그용으로 서명 검증 없이 클레임을 읽는다.
package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/park285/transfer-gateway/internal/httperror"
)

const (
	tokenKey  = "auth_token"
	claimsKey = "auth_claims"
)

// MessageInvalidAuth: Bearer 형식이 아닌 Authorization 헤더
const MessageInvalidAuth = "Invalid authorization header"

// Claims: 서명 검증 없이 읽은 토큰 정보 (로그 용도 전용)
type Claims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Expired: exp 가 있고 지났는지 여부
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// BearerToken: Authorization 헤더를 해석합니다.
// present 는 헤더 존재 여부, token 은 Bearer 형식일 때만 채워진다.
func BearerToken(r *http.Request) (token string, present bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", false
	}
	scheme, value, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", true
	}
	return strings.TrimSpace(value), true
}

// RequireBearer: Bearer 토큰이 없으면 백엔드 호출 없이 401 로 응답합니다.
func RequireBearer(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := BearerToken(c.Request)
		if !present {
			httperror.Write(c, nil, httperror.NewUnauthorized())
			return
		}
		if token == "" {
			httperror.Write(c, nil, &httperror.Error{
				Code:    httperror.ErrorCodeUnauthorized,
				Status:  http.StatusUnauthorized,
				Message: MessageInvalidAuth,
			})
			return
		}

		c.Set(tokenKey, token)
		if claims, ok := ParseUnverified(token); ok {
			c.Set(claimsKey, claims)
			if claims.Expired(time.Now()) {
				logger.DebugContext(c.Request.Context(), "auth_token_expired",
					slog.String("subject", claims.Subject),
					slog.String("path", c.FullPath()),
				)
			}
		}
		c.Next()
	}
}

// ClaimsFrom: RequireBearer 가 저장한 클레임
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// ParseUnverified: JWT 가 아니면 false. 서명은 확인하지 않는다.
func ParseUnverified(token string) (Claims, bool) {
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return Claims{}, false
	}

	claims := Claims{}
	claims.Subject, _ = mapClaims.GetSubject()
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	claims.Email = stringClaim(mapClaims, "email")
	claims.Role = stringClaim(mapClaims, "role")
	if claims.Role == "" {
		claims.Role = stringClaim(mapClaims, "custom:role")
	}
	return claims, true
}

// AuditAttrs: 관리자 요청 로그용 속성
func AuditAttrs(c *gin.Context) []slog.Attr {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return nil
	}
	return []slog.Attr{
		slog.String("actor", claims.Subject),
		slog.String("actor_role", claims.Role),
	}
}

func stringClaim(m jwt.MapClaims, key string) string {
	s, _ := m[key].(string)
	return s
}

// SecurityHeaders: 보안 헤더 추가
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "frame-ancestors 'none'")
		c.Next()
	}
}
