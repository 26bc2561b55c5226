package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/pool"

	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/lambda"
	"github.com/park285/transfer-gateway/internal/middleware"
	"github.com/park285/transfer-gateway/internal/upstream"
)

const (
	maxStatusBatch     = 50
	statusBatchWorkers = 8
)

// BulkTranslationRequest: 일괄 번역 요청
type BulkTranslationRequest struct {
	ArticleIDs      []int64  `json:"article_ids" binding:"required,min=1,dive,gt=0"`
	TargetLanguages []string `json:"target_languages" binding:"required,min=1,dive,required"`
}

// StatusBatchRequest: 번역 상태 일괄 조회 요청
type StatusBatchRequest struct {
	ArticleIDs []int64 `json:"article_ids" binding:"required,min=1,max=50,dive,gt=0"`
}

// StatusEntry: 일괄 조회에서 id 하나의 결과
type StatusEntry struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details string          `json:"details,omitempty"`
}

// proxyEvent: Lambda 직접 호출 시 API Gateway 프록시 이벤트 형태로 전달한다.
type proxyEvent struct {
	HTTPMethod string            `json:"httpMethod"`
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// BulkTranslate: POST /api/admin/translations/bulk
// Translator 가 있으면 Lambda 를 직접 호출하고, 없으면 POST /translations/bulk 로 전달한다.
func (h *Handler) BulkTranslate(c *gin.Context) {
	var req BulkTranslationRequest
	if !httperror.BindJSON(c, &req) {
		return
	}
	for _, lang := range req.TargetLanguages {
		if !h.checkLocale(c, lang) {
			return
		}
	}

	if h.translator == nil {
		up, err := jsonRequest(c, http.MethodPost, "/translations/bulk", req)
		if err != nil {
			httperror.Write(c, h.logger, err)
			return
		}
		h.forward(c, up)
		return
	}

	body, err := json.Marshal(req)
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	headers := map[string]string{"Content-Type": "application/json"}
	for name, values := range forwardHeader(c.Request) {
		headers[name] = values[0]
	}

	raw, err := h.translator.Invoke(c.Request.Context(), proxyEvent{
		HTTPMethod: http.MethodPost,
		Path:       "/translations/bulk",
		Headers:    headers,
		Body:       string(body),
	})
	if err != nil {
		var fe *lambda.FunctionError
		if errors.As(err, &fe) {
			h.logger.WarnContext(c.Request.Context(), "bulk_translation_failed",
				slog.String("request_id", middleware.GetRequestID(c)),
				slog.Int("articles", len(req.ArticleIDs)),
				slog.Any("error", err),
			)
			httperror.Write(c, h.logger, fe.HTTPError())
			return
		}
		httperror.Write(c, h.logger, err)
		return
	}

	data, err := decode(&upstream.Response{StatusCode: http.StatusOK, Body: raw})
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	httperror.OK(c, http.StatusOK, envelopeData(data))
}

// TranslationStatus: GET /api/admin/translations/:id/status (상태 조회 전용 타임아웃)
func (h *Handler) TranslationStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.forward(c, h.statusRequest(forwardHeader(c.Request), id))
}

func (h *Handler) statusRequest(header http.Header, id string) upstream.Request {
	return upstream.Request{
		Method:  http.MethodGet,
		Path:    "/translations/" + id + "/status",
		Header:  header,
		Timeout: h.pollTimeout,
	}
}

// TranslationStatusBatch: POST /api/admin/translations/status
// id 별 상태를 최대 8개씩 병렬 조회해 { "<id>": 결과 } 로 반환한다. 결과 순서는 무관하다.
func (h *Handler) TranslationStatusBatch(c *gin.Context) {
	var req StatusBatchRequest
	if !httperror.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	header := forwardHeader(c.Request)

	var mu sync.Mutex
	results := make(map[string]StatusEntry, len(req.ArticleIDs))
	p := pool.New().WithMaxGoroutines(statusBatchWorkers)
	for _, articleID := range req.ArticleIDs {
		id := strconv.FormatInt(articleID, 10)
		p.Go(func() {
			entry := h.lookupStatus(ctx, header.Clone(), id)
			mu.Lock()
			results[id] = entry
			mu.Unlock()
		})
	}
	p.Wait()

	httperror.OK(c, http.StatusOK, results)
}

func (h *Handler) lookupStatus(ctx context.Context, header http.Header, id string) StatusEntry {
	var data json.RawMessage
	resp, err := h.client.Do(ctx, h.statusRequest(header, id))
	if err == nil {
		data, err = decode(resp)
	}
	if err != nil {
		apiErr := httperror.FromError(err)
		return StatusEntry{Error: apiErr.Message, Details: apiErr.Details}
	}
	return StatusEntry{Data: data}
}

// ListArticleTranslations: GET /api/admin/articles/:id/translations
func (h *Handler) ListArticleTranslations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.forward(c, upstream.Request{Method: http.MethodGet, Path: "/articles/" + id + "/translations"})
}

// UpdateArticleTranslation: PUT /api/admin/articles/:id/translations/:locale
func (h *Handler) UpdateArticleTranslation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	locale := c.Param("locale")
	if h.catalog == nil || !h.catalog.IsSupported(locale) {
		httperror.Write(c, nil, httperror.NewInvalidInput("Unsupported locale: "+locale))
		return
	}
	body, ok := rawJSONBody(c)
	if !ok {
		return
	}
	h.forward(c, rawRequest(c, http.MethodPut, "/articles/"+id+"/translations/"+locale, body))
}
