// Package upstream: 외부 백엔드(AWS API Gateway) HTTP 클라이언트
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/park285/transfer-gateway/internal/httperror"
)

// ErrResponseTooLarge: 응답 본문이 크기 제한을 넘음
var ErrResponseTooLarge = errors.New("upstream response too large")

const (
	defaultTimeout = 30 * time.Second
	defaultMaxBody = 10 << 20
	probeTimeout   = 3 * time.Second
)

// Config: 클라이언트 설정
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxBodyBytes int64
	// Transport: 비어있으면 http.DefaultTransport (otelhttp 로 감쌈)
	Transport http.RoundTripper
}

// Request: 백엔드 호출 단위. Path 는 base URL 기준 상대 경로다.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Header  http.Header
	Body    io.Reader
	Timeout time.Duration // 0 이면 클라이언트 기본값
}

// Response: 백엔드 응답. Body 는 전부 읽힌 상태다.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK: 2xx 여부
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON: 본문을 디코딩합니다. 실패는 httperror.ErrInvalidResponse 로 감쌉니다.
func (r *Response) JSON(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("%w: %w", httperror.ErrInvalidResponse, err)
	}
	return nil
}

// Outcome: 호출 한 건의 결과. Observer 에 전달된다.
type Outcome struct {
	Method     string
	Path       string
	StatusCode int // 전송 실패면 0
	Err        error
	Duration   time.Duration
}

// Failed: 전송 오류 또는 5xx
func (o Outcome) Failed() bool {
	return o.Err != nil || o.StatusCode >= http.StatusInternalServerError
}

// Observer: 백엔드 호출 결과 관찰자 (상태 추적, 메트릭)
type Observer interface {
	ObserveUpstream(Outcome)
}

// ObserverFunc: 함수형 Observer
type ObserverFunc func(Outcome)

func (f ObserverFunc) ObserveUpstream(o Outcome) { f(o) }

// Client: 단일 base URL 백엔드 클라이언트. 재시도하지 않는다.
type Client struct {
	baseURL    string
	timeout    time.Duration
	maxBody    int64
	httpClient *http.Client
	logger     *slog.Logger
	observers  []Observer
}

// New: 클라이언트를 생성합니다.
func New(cfg Config, logger *slog.Logger, observers ...Observer) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q", cfg.BaseURL)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	return &Client{
		baseURL: base,
		timeout: timeout,
		maxBody: maxBody,
		// 타임아웃은 요청 context 로만 건다 (context.DeadlineExceeded 로 판별)
		httpClient: &http.Client{Transport: otelhttp.NewTransport(transport)},
		logger:     logger.With(slog.String("component", "upstream-client")),
		observers:  observers,
	}, nil
}

// AddObserver: 관찰자를 추가합니다. 기동 단계에서만 호출해야 한다.
func (c *Client) AddObserver(o Observer) {
	if o != nil {
		c.observers = append(c.observers, o)
	}
}

// BaseURL: 설정된 base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do: 요청을 한 번 보내고 응답 본문을 모두 읽습니다.
// 전송 실패는 httperror.ErrBackendUnreachable, 타임아웃은 context.DeadlineExceeded,
// 크기 초과는 httperror.ErrInvalidResponse 로 판별할 수 있다.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(r.Path, r.Query), bodyOrNoBody(r.Body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classifyTransportError(ctx, err)
		c.observe(ctx, Outcome{Method: method, Path: r.Path, Err: err, Duration: time.Since(start)})
		return nil, fmt.Errorf("upstream %s %s: %w", method, r.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		err = classifyTransportError(ctx, err)
		c.observe(ctx, Outcome{Method: method, Path: r.Path, StatusCode: resp.StatusCode, Err: err, Duration: time.Since(start)})
		return nil, fmt.Errorf("read upstream %s %s: %w", method, r.Path, err)
	}
	if int64(len(body)) > c.maxBody {
		err = fmt.Errorf("%w: %w (limit %d bytes)", httperror.ErrInvalidResponse, ErrResponseTooLarge, c.maxBody)
		c.observe(ctx, Outcome{Method: method, Path: r.Path, StatusCode: resp.StatusCode, Duration: time.Since(start)})
		return nil, fmt.Errorf("upstream %s %s: %w", method, r.Path, err)
	}

	c.observe(ctx, Outcome{Method: method, Path: r.Path, StatusCode: resp.StatusCode, Duration: time.Since(start)})
	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.WarnContext(ctx, "upstream_server_error",
			slog.String("method", method),
			slog.String("path", r.Path),
			slog.Int("status", resp.StatusCode),
		)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// Probe: GET /health 로 가용성을 확인합니다. 결과는 관찰자에게도 전달된다.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/health", Timeout: probeTimeout})
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("upstream health: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

// observe: 호출자가 요청을 취소한 경우는 백엔드 상태와 무관하므로 건너뛴다.
func (c *Client) observe(ctx context.Context, o Outcome) {
	if o.Err != nil {
		if errors.Is(o.Err, context.Canceled) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		c.logger.WarnContext(ctx, "upstream_request_failed",
			slog.String("method", o.Method),
			slog.String("path", o.Path),
			slog.Duration("duration", o.Duration),
			slog.Any("error", o.Err),
		)
	}
	for _, obs := range c.observers {
		obs.ObserveUpstream(o)
	}
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", httperror.ErrBackendUnreachable, err)
}

func bodyOrNoBody(body io.Reader) io.Reader {
	if body == nil {
		return http.NoBody
	}
	return body
}
