package assignments

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/auth"
	"AMS-backend/internal/platform/httpx"
)

type Handler struct{ m *Manager }

func RegisterRoutes(r gin.IRoutes, m *Manager) {
	h := &Handler{m: m}

	// 1. 貸出リソース
	r.POST("/assignments", h.Create)
	r.GET("/assignments", h.List)
	// id でも assignment_ulid でも引ける
	r.GET("/assignments/:key", h.Get)
	r.PATCH("/assignments/:id", h.Update)
	r.DELETE("/assignments/:id", h.Delete)

	// 2. 返却（資産＋従業員で貸出中レコードを特定）
	r.POST("/assignments/return", h.Return)
}

// Create godoc
// @Summary  貸出登録
// @Tags     assignments
// @Accept   json
// @Produce  json
// @Param    body body CreateAssignmentRequest true "assignment"
// @Success  201 {object} httpx.Envelope
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Failure  409 {object} httpx.Envelope
// @Router   /assignments [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateAssignmentRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	if req.AssignedBy == nil {
		if emp, ok := auth.ActorEmployeeID(c); ok {
			req.AssignedBy = &emp
		}
	}
	res, err := h.m.CreateAssignment(c.Request.Context(), req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.Header("Location", "/api/v1/assignments/"+res.AssignmentULID)
	httpx.OK(c, http.StatusCreated, res)
}

// Return godoc
// @Summary  返却
// @Tags     assignments
// @Accept   json
// @Produce  json
// @Param    body body ReturnAssetRequest true "return"
// @Success  200 {object} httpx.Envelope
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /assignments/return [post]
func (h *Handler) Return(c *gin.Context) {
	var req ReturnAssetRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	if req.ProcessedBy == nil {
		if emp, ok := auth.ActorEmployeeID(c); ok {
			req.ProcessedBy = &emp
		}
	}
	res, err := h.m.ReturnAsset(c.Request.Context(), req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// List godoc
// @Summary  貸出一覧
// @Tags     assignments
// @Produce  json
// @Param    asset_id    query int    false "asset id"
// @Param    employee_id query int    false "employee id"
// @Param    status      query string false "assignment status"
// @Param    open        query bool   false "open only"
// @Success  200 {object} httpx.Envelope
// @Router   /assignments [get]
func (h *Handler) List(c *gin.Context) {
	f := Filter{}
	if v := c.Query("asset_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.AssetID = &id
		}
	}
	if v := c.Query("employee_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.EmployeeID = &id
		}
	}
	if v := c.Query("status"); v != "" {
		st, err := lifecycle.ParseAssignmentStatus(v)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		f.Status = &st
	}
	f.OpenOnly = httpx.ParseBoolish(c.Query("open"))

	p := Page{
		Limit:  httpx.ParseIntDefault(c.Query("limit"), 50),
		Offset: httpx.ParseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	res, err := h.m.List(c.Request.Context(), f, p)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// Get godoc
// @Summary  貸出取得（id または ULID）
// @Tags     assignments
// @Produce  json
// @Param    key path string true "id or assignment_ulid"
// @Success  200 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /assignments/{key} [get]
func (h *Handler) Get(c *gin.Context) {
	res, err := h.m.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// Update godoc
// @Summary  貸出更新
// @Tags     assignments
// @Accept   json
// @Produce  json
// @Param    id   path int                     true "assignment id"
// @Param    body body UpdateAssignmentRequest true "patch"
// @Success  200 {object} httpx.Envelope
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Failure  409 {object} httpx.Envelope
// @Router   /assignments/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdateAssignmentRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	if req.PerformedBy == nil {
		if emp, ok := auth.ActorEmployeeID(c); ok {
			req.PerformedBy = &emp
		}
	}
	res, err := h.m.UpdateAssignment(c.Request.Context(), id, req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// Delete godoc
// @Summary  貸出削除（誤登録の訂正）
// @Tags     assignments
// @Produce  json
// @Param    id path int true "assignment id"
// @Success  200 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /assignments/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var actor *int64
	if emp, ok := auth.ActorEmployeeID(c); ok {
		actor = &emp
	}
	if err := h.m.DeleteAssignment(c.Request.Context(), id, actor); err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, gin.H{"deleted": id})
}
