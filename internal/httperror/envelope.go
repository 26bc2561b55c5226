package httperror

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Envelope: 모든 JSON 응답의 공통 형태
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// OK: 성공 응답을 작성합니다.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Write: 오류를 봉투 형태로 작성합니다. 5xx 는 원인을 로그로만 남깁니다.
func Write(c *gin.Context, logger *slog.Logger, err error) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternal("")
	}
	if apiErr.Status >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(c.Request.Context(), "request_failed",
			slog.String("path", c.FullPath()),
			slog.String("method", c.Request.Method),
			slog.Int("status", apiErr.Status),
			slog.Any("error", err),
		)
	}
	c.AbortWithStatusJSON(apiErr.Status, Envelope{
		Success: false,
		Error:   apiErr.Message,
		Details: apiErr.Details,
	})
}

// BindJSON: 요청 본문을 파싱합니다. 실패 시 400 응답을 작성하고 false 를 반환합니다.
func BindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		Write(c, nil, bindError(err))
		return false
	}
	return true
}

func bindError(err error) *Error {
	if errors.Is(err, io.EOF) {
		return NewInvalidInput("Request body is required")
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidation(err)
	}
	return NewInvalidInput("Invalid JSON body")
}
