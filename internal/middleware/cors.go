package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 프록시 라우트 고정 CORS 헤더
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	AllowHeaders = "Content-Type, Authorization"
	MaxAge       = "86400"
)

func setProxyCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", AllowOrigin)
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
	h.Set("Access-Control-Max-Age", MaxAge)
}

// ProxyCORS: 모든 프록시 응답에 고정 CORS 헤더를 붙인다.
func ProxyCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		setProxyCORSHeaders(c.Writer.Header())
		c.Next()
	}
}

// Preflight: OPTIONS 에 200, 빈 본문, 고정 헤더로 응답한다.
func Preflight(c *gin.Context) {
	setProxyCORSHeaders(c.Writer.Header())
	c.AbortWithStatus(http.StatusOK)
}
