package timeline

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"AMS-backend/internal/platform/httpx"
)

type Handler struct{ b *Builder }

func RegisterRoutes(r gin.IRoutes, b *Builder) {
	h := &Handler{b: b}
	r.GET("/assets/:id/timeline", h.Get)
}

// Get godoc
// @Summary  資産タイムライン（貸出と履歴の統合、新しい順）
// @Tags     timeline
// @Produce  json
// @Param    id path int true "asset id"
// @Success  200 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /assets/{id}/timeline [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	res, err := h.b.Build(c.Request.Context(), id)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}
