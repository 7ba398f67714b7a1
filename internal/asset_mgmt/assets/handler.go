package assets

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/auth"
	"AMS-backend/internal/platform/httpx"
)

type Handler struct{ reg *Registry }

func RegisterRoutes(r gin.IRoutes, reg *Registry) {
	h := &Handler{reg: reg}

	r.POST("/assets", h.Create)
	r.GET("/assets", h.List)
	r.GET("/assets/:id", h.Get)
	r.PATCH("/assets/:id", h.Update)
	r.DELETE("/assets/:id", h.Delete)
}

// Create godoc
// @Summary  資産登録（status=assigned なら初期貸出も同時に作る）
// @Tags     assets
// @Accept   json
// @Produce  json
// @Param    body body CreateAssetRequest true "asset"
// @Success  201 {object} httpx.Envelope
// @Failure  400 {object} httpx.Envelope
// @Failure  409 {object} httpx.Envelope
// @Router   /assets [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateAssetRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	if emp, ok := auth.ActorEmployeeID(c); ok {
		req.PerformedBy = &emp
		if req.AssignedBy == nil {
			req.AssignedBy = &emp
		}
	}
	res, err := h.reg.Create(c.Request.Context(), req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.Header("Location", "/api/v1/assets/"+strconv.FormatInt(res.ID, 10))
	httpx.OK(c, http.StatusCreated, res)
}

// List godoc
// @Summary  資産一覧
// @Tags     assets
// @Produce  json
// @Param    category_id      query int    false "category id"
// @Param    status           query string false "asset status"
// @Param    branch           query string false "branch"
// @Param    include_inactive query bool   false "include inactive assets"
// @Param    limit            query int    false "limit"
// @Param    offset           query int    false "offset"
// @Param    order            query string false "asc | desc"
// @Success  200 {object} httpx.Envelope
// @Router   /assets [get]
func (h *Handler) List(c *gin.Context) {
	f := Filter{IncludeInactive: httpx.ParseBoolish(c.Query("include_inactive"))}
	if v := c.Query("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Fail(c, fieldErr("category_id", "must be an integer"))
			return
		}
		f.CategoryID = &id
	}
	if v := c.Query("status"); v != "" {
		st, err := lifecycle.ParseAssetStatus(v)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		f.Status = &st
	}
	if v := strings.TrimSpace(c.Query("branch")); v != "" {
		f.Branch = &v
	}
	p := Page{
		Limit:  httpx.ParseIntDefault(c.Query("limit"), 50),
		Offset: httpx.ParseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}
	res, err := h.reg.List(c.Request.Context(), f, p)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// Get godoc
// @Summary  資産取得
// @Tags     assets
// @Produce  json
// @Param    id path int true "asset id"
// @Success  200 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /assets/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	res, err := h.reg.GetByID(c.Request.Context(), id)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// Update godoc
// @Summary  資産更新（asset_tag は変更不可）
// @Tags     assets
// @Accept   json
// @Produce  json
// @Param    id   path int                true "asset id"
// @Param    body body UpdateAssetRequest true "patch"
// @Success  200 {object} httpx.Envelope
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Failure  409 {object} httpx.Envelope
// @Router   /assets/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdateAssetRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	if emp, ok := auth.ActorEmployeeID(c); ok {
		req.PerformedBy = &emp
	}
	res, err := h.reg.Update(c.Request.Context(), id, req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// Delete godoc
// @Summary  資産削除（履歴・貸出もまとめて物理削除）
// @Tags     assets
// @Produce  json
// @Param    id path int true "asset id"
// @Success  200 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /assets/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.reg.Delete(c.Request.Context(), id); err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, gin.H{"deleted": id})
}
