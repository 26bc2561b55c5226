package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

// etagWriter: 본문을 버퍼링한다. 실제 전송은 ETag 판정 후에 한다.
type etagWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *etagWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *etagWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// ETag: GET 200 응답에 본문 SHA256 기반 ETag 를 붙이고, If-None-Match 일치 시 304 로 응답한다.
func ETag() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.GetHeader("Upgrade") == "websocket" {
			c.Next()
			return
		}

		original := c.Writer
		writer := &etagWriter{ResponseWriter: original, body: new(bytes.Buffer)}
		c.Writer = writer

		c.Next()

		c.Writer = original
		if original.Status() != http.StatusOK || writer.body.Len() == 0 {
			flush(original, writer.body)
			return
		}

		hash := sha256.Sum256(writer.body.Bytes())
		etag := `"` + hex.EncodeToString(hash[:8]) + `"`
		original.Header().Set("ETag", etag)
		if original.Header().Get("Cache-Control") == "" {
			original.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")
		}

		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			original.Header().Del("Content-Length")
			original.WriteHeader(http.StatusNotModified)
			original.WriteHeaderNow()
			return
		}

		flush(original, writer.body)
	}
}

func flush(w gin.ResponseWriter, body *bytes.Buffer) {
	if body.Len() == 0 {
		return
	}
	_, _ = w.Write(body.Bytes())
}
