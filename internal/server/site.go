package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/transfer-gateway/internal/content"
	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/i18n"
	"github.com/park285/transfer-gateway/internal/theme"
)

// handleDictionary: GET /api/i18n/:locale → 사전 전체. 미지원 로케일은 404.
func (s *Server) handleDictionary(c *gin.Context) {
	dict, ok := s.dictionary(c)
	if !ok {
		return
	}
	c.Header("Content-Language", dict.Locale())
	httperror.OK(c, http.StatusOK, dict.Entries())
}

// handleLookup: GET /api/i18n/:locale/lookup?key=a.b
// 찾지 못한 키는 키 문자열 그대로 반환한다.
func (s *Server) handleLookup(c *gin.Context) {
	dict, ok := s.dictionary(c)
	if !ok {
		return
	}
	key := c.Query("key")
	if key == "" {
		httperror.Write(c, nil, httperror.NewMissingField("key"))
		return
	}

	params := make([]i18n.Param, 0)
	for name, values := range c.Request.URL.Query() {
		if name == "key" || len(values) == 0 {
			continue
		}
		params = append(params, i18n.P(name, values[0]))
	}

	httperror.OK(c, http.StatusOK, LookupResponse{
		Key:   key,
		Value: dict.Lookup(key, params...),
		Found: dict.Has(key),
	})
}

func (s *Server) dictionary(c *gin.Context) (*i18n.Dictionary, bool) {
	dict, ok := s.catalog.Dictionary(c.Param("locale"))
	if !ok {
		httperror.Write(c, nil, httperror.NewNotFound("Unsupported locale: "+c.Param("locale")))
		return nil, false
	}
	return dict, true
}

// handleGetLocale: GET /api/locale → {locale, source}
func (s *Server) handleGetLocale(c *gin.Context) {
	httperror.OK(c, http.StatusOK, s.catalog.Resolve(c.Request))
}

// handleSetLocale: POST /api/locale {locale} → locale 쿠키 (1년)
func (s *Server) handleSetLocale(c *gin.Context) {
	var req LocaleRequest
	if !httperror.BindJSON(c, &req) {
		return
	}
	if !s.catalog.IsSupported(req.Locale) {
		httperror.Write(c, nil, httperror.NewInvalidInput("Unsupported locale: "+req.Locale))
		return
	}

	cookie := i18n.NewCookie(req.Locale, s.cfg.SecureCookies)
	http.SetCookie(c.Writer, cookie)
	httperror.OK(c, http.StatusOK, i18n.Resolution{Locale: cookie.Value, Source: i18n.SourceCookie})
}

// handleGetTheme: GET /api/preferences/theme → {theme}
func (s *Server) handleGetTheme(c *gin.Context) {
	httperror.OK(c, http.StatusOK, ThemeResponse{Theme: string(theme.FromRequest(c.Request))})
}

// handleSetTheme: PUT /api/preferences/theme {theme}
func (s *Server) handleSetTheme(c *gin.Context) {
	var req ThemeRequest
	if !httperror.BindJSON(c, &req) {
		return
	}
	t, ok := theme.Parse(req.Theme)
	if !ok {
		httperror.Write(c, nil, httperror.NewInvalidInput("Invalid theme: must be light, dark or system"))
		return
	}
	theme.Persist(c.Writer, t, s.cfg.SecureCookies)
	httperror.OK(c, http.StatusOK, ThemeResponse{Theme: string(t)})
}

// handleValidateContent: POST /api/content/validate → 품질 검사 결과
func (s *Server) handleValidateContent(c *gin.Context) {
	var req ValidateContentRequest
	if !httperror.BindJSON(c, &req) {
		return
	}
	if req.Content == nil {
		httperror.Write(c, nil, httperror.NewMissingField("content"))
		return
	}

	th := s.quality
	if req.MinWords != nil {
		th.MinWords = *req.MinWords
	}
	if req.MinChars != nil {
		th.MinChars = *req.MinChars
	}
	httperror.OK(c, http.StatusOK, content.Validate(*req.Content, th))
}
