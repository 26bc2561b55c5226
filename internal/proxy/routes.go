package proxy

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteOptions: 라우트 그룹별 미들웨어
type RouteOptions struct {
	// RequireAuth: 관리자 라우트와 /auth/me 에 적용 (auth.RequireBearer)
	RequireAuth gin.HandlerFunc
	// PublicRead: 공개 조회 라우트 미들웨어 (gzip, ETag)
	PublicRead []gin.HandlerFunc
	// SubscribeLimit: 뉴스레터 구독 요청 제한. nil 이면 미적용
	SubscribeLimit gin.HandlerFunc
}

// Register: /api 그룹 아래 프록시 라우트를 등록합니다.
func (h *Handler) Register(api *gin.RouterGroup, opts RouteOptions) {
	requireAuth := opts.RequireAuth
	if requireAuth == nil {
		requireAuth = func(c *gin.Context) { c.Next() }
	}

	public := api.Group("", opts.PublicRead...)
	public.GET("/transfers", h.ListTransfers)
	public.GET("/transfers/:slug", h.GetTransfer)

	subscribe := []gin.HandlerFunc{h.Subscribe}
	if opts.SubscribeLimit != nil {
		subscribe = append([]gin.HandlerFunc{opts.SubscribeLimit}, subscribe...)
	}
	api.POST("/newsletter/subscribe", subscribe...)

	api.POST("/auth/login", h.Login)
	api.GET("/auth/me", requireAuth, h.Me)

	admin := api.Group("/admin", requireAuth)

	articles := admin.Group("/articles")
	articles.GET("", h.ListArticles)
	articles.POST("", h.CreateArticle)
	articles.GET("/:id", h.GetArticle)
	articles.Handle(http.MethodPut, "/:id", h.UpdateArticle)
	articles.Handle(http.MethodPatch, "/:id", h.UpdateArticle)
	articles.POST("/:id/publish", h.PublishArticle)
	articles.GET("/:id/quality", h.ArticleQuality)
	articles.GET("/:id/translations", h.ListArticleTranslations)
	articles.PUT("/:id/translations/:locale", h.UpdateArticleTranslation)

	translations := admin.Group("/translations")
	translations.POST("/bulk", h.BulkTranslate)
	translations.POST("/status", h.TranslationStatusBatch)
	translations.GET("/:id/status", h.TranslationStatus)

	users := admin.Group("/users")
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.PATCH("/:id", h.UpdateUser)

	newsletter := admin.Group("/newsletter")
	newsletter.GET("/subscribers", h.ListSubscribers)
	newsletter.POST("/campaigns", h.CreateCampaign)
	newsletter.POST("/campaigns/:id/send", h.SendCampaign)

	admin.POST("/media", h.UploadMedia)
}
