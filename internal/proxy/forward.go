package proxy

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/upstream"
)

// maxJSONBody: 그대로 전달하는 JSON 요청 본문 상한
const maxJSONBody = 1 << 20

// forwardedHeaders: 백엔드로 전달하는 요청 헤더
var forwardedHeaders = []string{"Authorization", "Content-Type", "Accept-Language", "X-Request-ID"}

func forwardHeader(r *http.Request) http.Header {
	h := make(http.Header, len(forwardedHeaders))
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			h.Set(name, v)
		}
	}
	return h
}

// backendEnvelope: 백엔드 응답 본문에서 읽는 필드
type backendEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
	Message any             `json:"message"`
	Details any             `json:"details"`
}

func (e backendEnvelope) messageAndDetails() (string, string) {
	msg := textOf(e.Error)
	if msg == "" {
		msg = textOf(e.Message)
	}
	return msg, detailsOf(e.Details)
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["message"].(string); ok {
			return s
		}
	}
	return ""
}

func detailsOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// decode: 백엔드 응답을 봉투 data 또는 오류로 변환합니다.
// {success, data} 형태는 풀어서 이중 래핑을 막는다.
func decode(resp *upstream.Response) (json.RawMessage, error) {
	if !resp.OK() {
		return nil, upstreamError(resp)
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode status %d body: %w", resp.StatusCode, httperror.ErrInvalidResponse)
	}
	if body[0] != '{' {
		return body, nil
	}

	var env backendEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Success == nil {
		return body, nil
	}
	if !*env.Success {
		msg, details := env.messageAndDetails()
		return nil, httperror.NewUpstream(http.StatusBadGateway, msg, details)
	}
	if isNull(env.Data) {
		return nil, nil
	}
	return env.Data, nil
}

func upstreamError(resp *upstream.Response) *httperror.Error {
	var env backendEnvelope
	var msg, details string
	if err := json.Unmarshal(resp.Body, &env); err == nil {
		msg, details = env.messageAndDetails()
	}
	return httperror.NewUpstream(resp.StatusCode, msg, details)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

// envelopeData: 비어있는 data 는 생략한다.
func envelopeData(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	return data
}

// call: 헤더 화이트리스트를 적용해 한 번 호출하고 본문을 정규화합니다.
func (h *Handler) call(c *gin.Context, req upstream.Request) (*upstream.Response, json.RawMessage, error) {
	if req.Header == nil {
		req.Header = forwardHeader(c.Request)
	}
	resp, err := h.client.Do(c.Request.Context(), req)
	if err != nil {
		return nil, nil, err
	}
	data, err := decode(resp)
	if err != nil {
		return resp, nil, err
	}
	return resp, data, nil
}

// forward: 호출 결과를 백엔드 상태 코드 그대로 봉투에 담아 응답합니다.
func (h *Handler) forward(c *gin.Context, req upstream.Request) {
	resp, data, err := h.call(c, req)
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	c.JSON(resp.StatusCode, httperror.Envelope{Success: true, Data: envelopeData(data)})
}

// pathID: 경로 id 를 양의 정수로 해석합니다. 실패 시 400 을 쓰고 false.
func pathID(c *gin.Context, name string) (string, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		httperror.Write(c, nil, httperror.NewInvalidInput(fmt.Sprintf("Invalid %s: must be a positive integer", name)))
		return "", false
	}
	return strconv.FormatInt(id, 10), true
}

// rawJSONBody: 본문을 검증만 하고 그대로 전달할 때 사용합니다.
func rawJSONBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxJSONBody+1))
	if err != nil {
		httperror.Write(c, nil, httperror.NewInvalidInput("Invalid request body"))
		return nil, false
	}
	if len(body) > maxJSONBody {
		httperror.Write(c, nil, httperror.NewInvalidInput("Request body too large"))
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		httperror.Write(c, nil, httperror.NewInvalidInput("Request body is required"))
		return nil, false
	}
	if !json.Valid(body) {
		httperror.Write(c, nil, httperror.NewInvalidInput("Invalid JSON body"))
		return nil, false
	}
	return body, true
}

// jsonRequest: 값을 JSON 본문으로 직렬화해 요청에 싣는다.
func jsonRequest(c *gin.Context, method, path string, v any) (upstream.Request, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return upstream.Request{}, fmt.Errorf("marshal %s %s body: %w", method, path, err)
	}
	return rawRequest(c, method, path, raw), nil
}

func rawRequest(c *gin.Context, method, path string, body []byte) upstream.Request {
	header := forwardHeader(c.Request)
	header.Set("Content-Type", "application/json")
	return upstream.Request{Method: method, Path: path, Header: header, Body: bytes.NewReader(body)}
}

// requireText: 공백뿐인 필수 문자열을 거부합니다.
func requireText(c *gin.Context, fields map[string]string) bool {
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if strings.TrimSpace(fields[name]) == "" {
			httperror.Write(c, nil, httperror.NewMissingField(name))
			return false
		}
	}
	return true
}

// checkLocale: 비어있지 않은 로케일이 지원 목록에 있는지 확인합니다.
func (h *Handler) checkLocale(c *gin.Context, locale string) bool {
	if locale == "" || h.catalog == nil || h.catalog.IsSupported(locale) {
		return true
	}
	httperror.Write(c, nil, httperror.NewInvalidInput(fmt.Sprintf("Unsupported locale: %s", locale)))
	return false
}
