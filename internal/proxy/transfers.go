package proxy

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"

	"github.com/park285/transfer-gateway/internal/dates"
	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/upstream"
)

const (
	defaultTransferLimit = 20
	maxTransferLimit     = 100
	cacheHeader          = "X-Cache"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// transferDates: 표시 날짜 계산에 필요한 필드
type transferDates struct {
	Status      string `mapstructure:"status"`
	PublishedAt string `mapstructure:"published_at"`
	UpdatedAt   string `mapstructure:"updated_at"`
	CreatedAt   string `mapstructure:"created_at"`
}

// ListTransfers: GET /api/transfers → GET /transfers
func (h *Handler) ListTransfers(c *gin.Context) {
	query, ok := h.transferQuery(c)
	if !ok {
		return
	}

	key := "transfers:" + query.Encode()
	if h.serveCached(c, key) {
		return
	}

	resp, data, err := h.call(c, upstream.Request{Method: http.MethodGet, Path: "/transfers", Query: query})
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	h.respondTransfers(c, key, resp.StatusCode, data)
}

// GetTransfer: GET /api/transfers/:slug → GET /transfers/{slug}
func (h *Handler) GetTransfer(c *gin.Context) {
	slug := c.Param("slug")
	if !slugPattern.MatchString(slug) {
		httperror.Write(c, nil, httperror.NewInvalidInput("Invalid slug"))
		return
	}

	query := url.Values{}
	if locale := c.Query("locale"); locale != "" {
		if !h.checkLocale(c, locale) {
			return
		}
		query.Set("locale", locale)
	}

	key := "transfer:" + slug + ":" + query.Encode()
	if h.serveCached(c, key) {
		return
	}

	resp, data, err := h.call(c, upstream.Request{Method: http.MethodGet, Path: "/transfers/" + slug, Query: query})
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	h.respondTransfers(c, key, resp.StatusCode, data)
}

// transferQuery: locale, league, page, limit 만 전달한다. limit 은 1..100 으로 제한.
func (h *Handler) transferQuery(c *gin.Context) (url.Values, bool) {
	query := url.Values{}

	locale := c.Query("locale")
	if locale != "" && !h.checkLocale(c, locale) {
		return nil, false
	}
	if locale == "" && h.catalog != nil {
		locale = h.catalog.Resolve(c.Request).Locale
	}
	if locale != "" {
		query.Set("locale", locale)
	}

	if league := c.Query("league"); league != "" {
		query.Set("league", league)
	}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			httperror.Write(c, nil, httperror.NewInvalidInput("Invalid page: must be a positive integer"))
			return nil, false
		}
		query.Set("page", strconv.Itoa(page))
	}

	query.Set("limit", strconv.Itoa(clampLimit(c.Query("limit"))))
	return query, true
}

func clampLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return defaultTransferLimit
	}
	return min(max(limit, 1), maxTransferLimit)
}

// serveCached: 캐시 적중 시 저장된 봉투를 그대로 응답합니다.
func (h *Handler) serveCached(c *gin.Context, key string) bool {
	if h.cache == nil {
		return false
	}
	body, ok, err := h.cache.Get(c.Request.Context(), key)
	if err != nil {
		h.recordCache("error")
		h.logger.WarnContext(c.Request.Context(), "cache_get_failed", slog.String("key", key), slog.Any("error", err))
		return false
	}
	if !ok {
		h.recordCache("miss")
		c.Header(cacheHeader, "MISS")
		return false
	}
	h.recordCache("hit")
	c.Header(cacheHeader, "HIT")
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	return true
}

// respondTransfers: 표시 날짜를 붙여 응답하고 200 이면 캐시에 저장합니다.
func (h *Handler) respondTransfers(c *gin.Context, key string, status int, data json.RawMessage) {
	enriched, err := h.enrichTransfers(data)
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}

	body, err := json.Marshal(httperror.Envelope{Success: true, Data: enriched})
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}

	if h.cache != nil && status == http.StatusOK {
		if err := h.cache.Set(c.Request.Context(), key, body, h.cacheTTL); err != nil {
			h.logger.WarnContext(c.Request.Context(), "cache_set_failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

// enrichTransfers: 배열, {items|transfers|data: [...]} 또는 단일 객체를 처리한다.
func (h *Handler) enrichTransfers(data json.RawMessage) (any, error) {
	if isNull(data) {
		return nil, nil
	}

	var decoded any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode transfers: %w", httperror.ErrInvalidResponse)
	}

	now := h.now()
	switch v := decoded.(type) {
	case []any:
		enrichItems(v, now)
	case map[string]any:
		listed := false
		for _, field := range []string{"items", "transfers", "data"} {
			if items, ok := v[field].([]any); ok {
				enrichItems(items, now)
				listed = true
			}
		}
		if !listed {
			enrichItem(v, now)
		}
	}
	return decoded, nil
}

func enrichItems(items []any, now time.Time) {
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			enrichItem(m, now)
		}
	}
}

// enrichItem: display_date 를 추가합니다. 날짜 필드가 문자열이 아니면 비어있는 것으로 본다.
func enrichItem(item map[string]any, now time.Time) {
	var d transferDates
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &d,
		WeaklyTypedInput: true,
	})
	if err == nil {
		// 형식이 다른 필드는 빈 값으로 남는다.
		_ = dec.Decode(item)
	}
	item["display_date"] = dates.BestDate(d.PublishedAt, d.UpdatedAt, d.CreatedAt, d.Status == "published", now)
}
