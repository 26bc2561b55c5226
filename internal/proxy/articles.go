package proxy

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"

	"github.com/park285/transfer-gateway/internal/content"
	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/upstream"
)

// CreateArticleRequest: 기사 생성 요청
type CreateArticleRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	League   string `json:"league,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	ImageURL string `json:"image_url,omitempty" binding:"omitempty,url"`
	Locale   string `json:"locale,omitempty"`
}

// ListArticles: GET /api/admin/articles → GET /articles (쿼리 그대로)
func (h *Handler) ListArticles(c *gin.Context) {
	h.forward(c, upstream.Request{Method: http.MethodGet, Path: "/articles", Query: c.Request.URL.Query()})
}

// CreateArticle: POST /api/admin/articles → POST /articles
func (h *Handler) CreateArticle(c *gin.Context) {
	var req CreateArticleRequest
	if !httperror.BindJSON(c, &req) {
		return
	}
	if !requireText(c, map[string]string{"title": req.Title, "content": req.Content}) {
		return
	}
	if !h.checkLocale(c, req.Locale) {
		return
	}

	up, err := jsonRequest(c, http.MethodPost, "/articles", req)
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	h.forward(c, up)
}

// GetArticle: GET /api/admin/articles/:id → GET /articles/{id}
func (h *Handler) GetArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.forward(c, upstream.Request{Method: http.MethodGet, Path: "/articles/" + id})
}

// UpdateArticle: PUT|PATCH /api/admin/articles/:id → 같은 메서드로 /articles/{id}
func (h *Handler) UpdateArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	body, ok := rawJSONBody(c)
	if !ok {
		return
	}
	h.forward(c, rawRequest(c, c.Request.Method, "/articles/"+id, body))
}

// PublishArticle: POST /api/admin/articles/:id/publish → PATCH /articles/{id} {status: published}
func (h *Handler) PublishArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	up, err := jsonRequest(c, http.MethodPatch, "/articles/"+id, map[string]string{"status": "published"})
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	h.forward(c, up)
}

// articleBody: 품질 검사 대상 본문 필드
type articleBody struct {
	Content string `mapstructure:"content"`
	Body    string `mapstructure:"body"`
}

// ArticleQuality: 기사 본문을 가져와 품질 검사 결과를 반환합니다.
// min_words, min_chars 쿼리로 기준을 덮어쓸 수 있다.
func (h *Handler) ArticleQuality(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	th, ok := h.thresholdsFromQuery(c)
	if !ok {
		return
	}

	_, data, err := h.call(c, upstream.Request{Method: http.MethodGet, Path: "/articles/" + id})
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}

	var article map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &article); err != nil {
			httperror.Write(c, h.logger, fmt.Errorf("decode article %s: %w: %w", id, httperror.ErrInvalidResponse, err))
			return
		}
	}
	var ab articleBody
	if err := mapstructure.WeakDecode(article, &ab); err != nil {
		httperror.Write(c, h.logger, fmt.Errorf("decode article %s: %w", id, httperror.ErrInvalidResponse))
		return
	}
	text := ab.Content
	if text == "" {
		text = ab.Body
	}

	httperror.OK(c, http.StatusOK, content.Validate(text, th))
}

func (h *Handler) thresholdsFromQuery(c *gin.Context) (content.Thresholds, bool) {
	th := h.quality
	for name, dst := range map[string]*int{"min_words": &th.MinWords, "min_chars": &th.MinChars} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httperror.Write(c, nil, httperror.NewInvalidInput(fmt.Sprintf("Invalid %s: must be a non-negative integer", name)))
			return th, false
		}
		*dst = n
	}
	return th, true
}
