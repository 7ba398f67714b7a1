package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/httpx"
)

type AuthHandler struct{ svc AuthService }

func RegisterRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.POST("/login", h.Login)
	r.POST("/register", h.Register)
}

type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// Login godoc
// @Summary  ログイン
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "credentials"
// @Success  200 {object} httpx.Envelope
// @Failure  401 {object} httpx.Envelope
// @Router   /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !httpx.BindJSON(c, &req) {
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.ID, req.Password)
	if errors.Is(err, ErrAuthFailed) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, httpx.Envelope{
			Error: &httpx.ErrorBody{Code: "UNAUTHORIZED", Message: "IDまたはパスワードが間違っています"},
		})
		return
	}
	if err != nil {
		httpx.Fail(c, apperr.Internal(err))
		return
	}
	httpx.OK(c, http.StatusOK, LoginResponse{Token: token})
}

type RegisterRequest struct {
	ID         string  `json:"id" binding:"required"`
	Password   string  `json:"password" binding:"required"`
	EmployeeID *int64  `json:"employee_id,omitempty"`
	Role       *string `json:"role,omitempty"` // 未指定なら user
}

// Register godoc
// @Summary  アカウント登録
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body RegisterRequest true "account"
// @Success  201 {object} httpx.Envelope
// @Failure  400 {object} httpx.Envelope
// @Failure  409 {object} httpx.Envelope
// @Router   /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !httpx.BindJSON(c, &req) {
		return
	}

	err := h.svc.Register(c.Request.Context(), req)
	switch {
	case err == nil:
		httpx.OK(c, http.StatusCreated, gin.H{"id": req.ID})
	case errors.Is(err, ErrAlreadyExists):
		httpx.Fail(c, apperr.Conflict("ID already exists"))
	case apperr.Is(err, apperr.KindValidation):
		httpx.Fail(c, err)
	default:
		httpx.Fail(c, apperr.Internal(err))
	}
}
