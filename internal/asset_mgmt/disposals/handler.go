package disposals

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"AMS-backend/internal/platform/auth"
	"AMS-backend/internal/platform/httpx"
)

type Handler struct{ p *Processor }

func RegisterRoutes(r gin.IRoutes, p *Processor) {
	h := &Handler{p: p}
	r.POST("/assets/:id/scrap", h.Scrap)
	r.GET("/assets/scrapped", h.ListScrapped)
}

// Scrap godoc
// @Summary  資産の廃棄（貸出中なら強制返却してから廃棄）
// @Tags     disposals
// @Accept   json
// @Produce  json
// @Param    id   path int          true "asset id"
// @Param    body body ScrapRequest true "scrap"
// @Success  200 {object} httpx.Envelope
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Failure  409 {object} httpx.Envelope
// @Router   /assets/{id}/scrap [post]
func (h *Handler) Scrap(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var req ScrapRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	if req.PerformedBy == nil {
		if emp, ok := auth.ActorEmployeeID(c); ok {
			req.PerformedBy = &emp
		}
	}
	res, err := h.p.Scrap(c.Request.Context(), id, req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// ListScrapped godoc
// @Summary  廃棄済み資産一覧
// @Tags     disposals
// @Produce  json
// @Param    limit  query int false "limit"
// @Param    offset query int false "offset"
// @Success  200 {object} httpx.Envelope
// @Router   /assets/scrapped [get]
func (h *Handler) ListScrapped(c *gin.Context) {
	p := Page{
		Limit:  httpx.ParseIntDefault(c.Query("limit"), 50),
		Offset: httpx.ParseIntDefault(c.Query("offset"), 0),
	}
	res, err := h.p.ListScrapped(c.Request.Context(), p)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}
