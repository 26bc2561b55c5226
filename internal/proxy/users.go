package proxy

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/upstream"
)

// UserRoles: 허용되는 관리자 역할
var UserRoles = []string{"admin", "editor", "translator"}

// CreateUserRequest: 사용자 생성 요청
type CreateUserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=admin editor translator"`
	Name  string `json:"name,omitempty"`
}

// ListUsers: GET /api/admin/users → GET /users
func (h *Handler) ListUsers(c *gin.Context) {
	h.forward(c, upstream.Request{Method: http.MethodGet, Path: "/users", Query: c.Request.URL.Query()})
}

// CreateUser: POST /api/admin/users → POST /users
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !httperror.BindJSON(c, &req) {
		return
	}
	up, err := jsonRequest(c, http.MethodPost, "/users", req)
	if err != nil {
		httperror.Write(c, h.logger, err)
		return
	}
	h.forward(c, up)
}

// UpdateUser: PATCH /api/admin/users/:id → PATCH /users/{id}. role 이 있으면 검증한다.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	body, ok := rawJSONBody(c)
	if !ok {
		return
	}

	var patch map[string]any
	if err := json.Unmarshal(body, &patch); err != nil {
		httperror.Write(c, nil, httperror.NewInvalidInput("Request body must be a JSON object"))
		return
	}
	if role, exists := patch["role"]; exists {
		s, isString := role.(string)
		if !isString || !slices.Contains(UserRoles, s) {
			httperror.Write(c, nil, httperror.NewInvalidInput(fmt.Sprintf("Invalid role: must be one of %v", UserRoles)))
			return
		}
	}

	h.forward(c, rawRequest(c, http.MethodPatch, "/users/"+id, body))
}
