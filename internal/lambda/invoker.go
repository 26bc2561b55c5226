// Package lambda: AWS Lambda 동기 호출
package lambda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/goccy/go-json"

	"github.com/park285/transfer-gateway/internal/httperror"
)

// FunctionError: 함수가 오류를 반환함 (FunctionError 설정 또는 non-2xx)
type FunctionError struct {
	Function   string
	Kind       string // Unhandled, Handled 등
	StatusCode int
	Payload    []byte
}

func (e *FunctionError) Error() string {
	msg := strings.TrimSpace(string(e.Payload))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return fmt.Sprintf("lambda %s failed (%s, status %d): %s", e.Function, e.Kind, e.StatusCode, msg)
}

// Message: 오류 payload 의 errorMessage 또는 message 필드
func (e *FunctionError) Message() string {
	var body struct {
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(e.Payload, &body); err != nil {
		return ""
	}
	for _, s := range []string{body.ErrorMessage, body.Error, body.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

// HTTPError: 프록시 형태 응답의 상태는 그대로, 그 외 함수 오류는 502 로 변환한다.
func (e *FunctionError) HTTPError() *httperror.Error {
	if e.Kind == "Proxy" && e.StatusCode >= 400 {
		return httperror.NewUpstream(e.StatusCode, e.Message(), "")
	}
	return httperror.NewUpstream(http.StatusBadGateway, "Lambda function failed", e.Kind)
}

// Invoker: 함수 호출 추상화
type Invoker interface {
	Invoke(ctx context.Context, payload any) (json.RawMessage, error)
}

// invokeAPI: SDK 클라이언트에서 사용하는 메서드만 분리 (테스트 대역용)
type invokeAPI interface {
	Invoke(ctx context.Context, params *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
}

// Config: 호출 대상 설정
type Config struct {
	Region       string
	FunctionName string
	Timeout      time.Duration
}

// Client: RequestResponse 방식 Invoker
type Client struct {
	api          invokeAPI
	functionName string
	timeout      time.Duration
	logger       *slog.Logger
}

// New: 기본 자격 증명 체인으로 SDK 클라이언트를 구성합니다.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.FunctionName) == "" {
		return nil, errors.New("lambda function name is empty")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newWithAPI(awslambda.NewFromConfig(awsCfg), cfg, logger), nil
}

func newWithAPI(api invokeAPI, cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		api:          api,
		functionName: cfg.FunctionName,
		timeout:      timeout,
		logger:       logger.With(slog.String("component", "lambda-invoker"), slog.String("function", cfg.FunctionName)),
	}
}

// Invoke: payload 를 JSON 으로 보내고 결과를 반환합니다.
// API Gateway 프록시 형태({statusCode, body}) 결과는 body 로 풀어서 반환한다.
func (c *Client) Invoke(ctx context.Context, payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal lambda payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	out, err := c.api.Invoke(ctx, &awslambda.InvokeInput{
		FunctionName:   aws.String(c.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        raw,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "lambda_invoke_failed", slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("invoke %s: %w", c.functionName, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("invoke %s: %w: %w", c.functionName, httperror.ErrBackendUnreachable, err)
	}

	status := int(out.StatusCode)
	if out.FunctionError != nil || status < 200 || status >= 300 {
		fe := &FunctionError{
			Function:   c.functionName,
			Kind:       aws.ToString(out.FunctionError),
			StatusCode: status,
			Payload:    out.Payload,
		}
		c.logger.WarnContext(ctx, "lambda_function_error",
			slog.String("kind", fe.Kind),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)
		return nil, fe
	}

	c.logger.DebugContext(ctx, "lambda_invoked", slog.Duration("duration", time.Since(start)))
	result, err := unwrapProxyResult(c.functionName, out.Payload)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", c.functionName, err)
	}
	return result, nil
}

// proxyResult: API Gateway 프록시 통합 응답 형태
type proxyResult struct {
	StatusCode *int            `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

func unwrapProxyResult(function string, payload []byte) (json.RawMessage, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("lambda payload: %w", httperror.ErrInvalidResponse)
	}

	var pr proxyResult
	if err := json.Unmarshal(payload, &pr); err != nil || pr.StatusCode == nil || pr.Body == nil {
		// 객체가 아니거나 프록시 형태가 아님
		return json.RawMessage(payload), nil
	}

	if *pr.StatusCode < 200 || *pr.StatusCode >= 300 {
		return nil, &FunctionError{Function: function, Kind: "Proxy", StatusCode: *pr.StatusCode, Payload: bodyBytes(pr.Body)}
	}
	body := bodyBytes(pr.Body)
	// 202/204 핸들러는 빈 body 를 돌려준다
	if len(strings.TrimSpace(string(body))) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("lambda proxy body: %w", httperror.ErrInvalidResponse)
	}
	return json.RawMessage(body), nil
}

// bodyBytes: body 가 JSON 문자열이면 내용을 꺼낸다.
func bodyBytes(body json.RawMessage) []byte {
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return []byte(s)
	}
	return body
}
