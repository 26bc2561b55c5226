// Package httperror: 게이트웨이 표준 오류 타입과 응답 봉투(envelope)를 정의합니다.
package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode 는 API 오류 코드다.
type ErrorCode string

const (
	// ErrorCodeInternal 는 내부 오류 코드다.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeValidation 는 검증 오류 코드다.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeInvalidInput 는 입력 오류 코드다.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeUnauthorized 는 인증 오류 코드다.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeNotFound 는 리소스 미존재 코드다.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeRateLimit 는 요청 제한 오류 코드다.
	ErrorCodeRateLimit ErrorCode = "RATE_LIMIT"
	// ErrorCodeUpstream 는 백엔드가 반환한 오류 코드다.
	ErrorCodeUpstream ErrorCode = "UPSTREAM_ERROR"
)

// 5xx 응답에 노출되는 고정 메시지
const (
	MessageInternal      = "Internal server error"
	MessageMissingAuth   = "Missing authorization header"
	DetailUnreachable    = "backend_unreachable"
	DetailTimeout        = "backend_timeout"
	DetailInvalidPayload = "invalid_backend_response"
)

// Transport 계층 센티넬. upstream/lambda 패키지가 %w 로 감싸서 반환한다.
var (
	ErrBackendUnreachable = errors.New("backend unreachable")
	ErrInvalidResponse    = errors.New("invalid backend response")
)

// Error 는 내부 표준 오류 타입이다.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details string
}

// Error 는 오류 메시지를 반환한다.
func (e *Error) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

// FromError 는 오류를 내부 오류 타입으로 변환한다. nil 이면 nil.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewInternal(DetailTimeout)
	}

	if errors.Is(err, ErrInvalidResponse) {
		return NewInternal(DetailInvalidPayload)
	}

	if errors.Is(err, ErrBackendUnreachable) {
		return NewInternal(DetailUnreachable)
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidation(err)
	}

	return NewInternal("")
}

// NewInternal 는 내부 오류를 생성한다. 원인 메시지는 노출하지 않는다.
func NewInternal(details string) *Error {
	return &Error{
		Code:    ErrorCodeInternal,
		Status:  http.StatusInternalServerError,
		Message: MessageInternal,
		Details: details,
	}
}

// NewInvalidInput 는 입력 오류를 생성한다.
func NewInvalidInput(message string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidInput,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

// NewMissingField 는 필수 필드 누락 오류를 생성한다.
func NewMissingField(field string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidInput,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Field '%s' required", field),
	}
}

// NewValidation 는 바인딩 검증 오류를 생성한다. 상태는 400.
func NewValidation(err error) *Error {
	return &Error{
		Code:    ErrorCodeValidation,
		Status:  http.StatusBadRequest,
		Message: "Invalid request body",
		Details: validationDetails(err),
	}
}

// NewUnauthorized 는 인증 헤더 누락 오류를 생성한다.
func NewUnauthorized() *Error {
	return &Error{
		Code:    ErrorCodeUnauthorized,
		Status:  http.StatusUnauthorized,
		Message: MessageMissingAuth,
	}
}

// NewNotFound 는 리소스 미존재 오류를 생성한다.
func NewNotFound(message string) *Error {
	return &Error{
		Code:    ErrorCodeNotFound,
		Status:  http.StatusNotFound,
		Message: message,
	}
}

// NewRateLimitExceeded 는 요청 제한 오류를 생성한다.
func NewRateLimitExceeded() *Error {
	return &Error{
		Code:    ErrorCodeRateLimit,
		Status:  http.StatusTooManyRequests,
		Message: "Rate limit exceeded",
	}
}

// NewUpstream 는 백엔드 non-OK 응답을 그대로 전달하는 오류를 생성한다.
func NewUpstream(status int, message, details string) *Error {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
	}
	return &Error{
		Code:    ErrorCodeUpstream,
		Status:  status,
		Message: message,
		Details: details,
	}
}

func validationDetails(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	parts := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
