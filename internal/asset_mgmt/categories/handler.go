package categories

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"AMS-backend/internal/platform/httpx"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/categories", h.Create)
	r.GET("/categories", h.List)
	r.GET("/categories/:id", h.Get)
	r.PUT("/categories/:id", h.Update)
	r.DELETE("/categories/:id", h.Disable)
}

// List godoc
// @Summary  カテゴリ一覧
// @Tags     categories
// @Produce  json
// @Param    include_inactive query string false "1/true で無効カテゴリも含める"
// @Success  200 {object} httpx.Envelope
// @Router   /categories [get]
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), httpx.ParseBoolish(c.Query("include_inactive")))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	cat, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, cat)
}

// Create godoc
// @Summary  カテゴリ登録
// @Tags     categories
// @Accept   json
// @Produce  json
// @Param    body body CreateCategoryRequest true "category"
// @Success  201 {object} httpx.Envelope
// @Failure  400 {object} httpx.Envelope
// @Failure  409 {object} httpx.Envelope
// @Router   /categories [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	cat, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, cat)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	cat, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, cat)
}

func (h *Handler) Disable(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Disable(c.Request.Context(), id); err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, gin.H{"disabled": id})
}
