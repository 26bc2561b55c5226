package proxy

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/upstream"
)

// SubscribeRequest: 뉴스레터 구독 요청
type SubscribeRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Locale string `json:"locale,omitempty"`
}

// CampaignRequest: 캠페인 생성 요청
type CampaignRequest struct {
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
	Locale  string `json:"locale,omitempty"`
}

// Subscribe: POST /api/newsletter/subscribe → POST /newsletter/subscribe
// locale 이 없으면 요청에서 판별한 로케일을 사용한다.
func (h *Handler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if !httperror.BindJSON(c, &req) {
		return
	}
	if !h.checkLocale(c, req.Locale) {
		return
	}
	if req.Locale == "" && h.catalog != nil {
		req.Locale = h.catalog.Resolve(c.Request).Locale
	}

	up, err := jsonRequest(c, http.MethodPost, "/newsletter/subscribe", req)
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	h.forward(c, up)
}

// ListSubscribers: GET /api/admin/newsletter/subscribers → GET /newsletter/subscribers
func (h *Handler) ListSubscribers(c *gin.Context) {
	h.forward(c, upstream.Request{Method: http.MethodGet, Path: "/newsletter/subscribers", Query: c.Request.URL.Query()})
}

// CreateCampaign: POST /api/admin/newsletter/campaigns → POST /newsletter/campaigns
func (h *Handler) CreateCampaign(c *gin.Context) {
	var req CampaignRequest
	if !httperror.BindJSON(c, &req) {
		return
	}
	if !requireText(c, map[string]string{"subject": req.Subject, "body": req.Body}) {
		return
	}
	if !h.checkLocale(c, req.Locale) {
		return
	}
	up, err := jsonRequest(c, http.MethodPost, "/newsletter/campaigns", req)
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	h.forward(c, up)
}

// SendCampaign: POST /api/admin/newsletter/campaigns/:id/send
func (h *Handler) SendCampaign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.forward(c, upstream.Request{Method: http.MethodPost, Path: "/newsletter/campaigns/" + id + "/send"})
}
