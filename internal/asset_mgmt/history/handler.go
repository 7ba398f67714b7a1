package history

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"AMS-backend/internal/platform/httpx"
)

type Handler struct{ rec *Recorder }

func RegisterRoutes(r gin.IRoutes, rec *Recorder) {
	h := &Handler{rec: rec}
	r.GET("/assets/:id/history", h.ListByAsset)
}

// ListByAsset godoc
// @Summary  資産の監査履歴
// @Tags     history
// @Produce  json
// @Param    id path int true "asset id"
// @Success  200 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /assets/{id}/history [get]
func (h *Handler) ListByAsset(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	list, err := h.rec.ListByAsset(c.Request.Context(), id)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, list)
}
