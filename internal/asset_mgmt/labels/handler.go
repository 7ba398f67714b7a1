package labels

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/httpx"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/assets/labels.csv", h.Export)
}

// Export godoc
// @Summary  ラベル印刷用 CSV
// @Tags     labels
// @Produce  text/csv
// @Param    encoding    query string false "utf-8 | cp932 | utf-16le"
// @Param    ids         query string false "1,2,3"
// @Param    category_id query int    false "category"
// @Param    header      query string false "1 でヘッダ行を付ける"
// @Success  200 {file} file
// @Failure  400 {object} httpx.Envelope
// @Router   /assets/labels.csv [get]
func (h *Handler) Export(c *gin.Context) {
	f, err := filterFrom(c)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	body, err := h.svc.Export(c.Request.Context(), f)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="labels.csv"`)
	c.Data(http.StatusOK, f.Encoding.ContentType(), body)
}

func filterFrom(c *gin.Context) (Filter, error) {
	var f Filter
	var err error
	if f.Encoding, err = ParseEncoding(c.Query("encoding")); err != nil {
		return f, err
	}
	if f.IDs, err = ParseIDs(c.Query("ids")); err != nil {
		return f, err
	}
	if v := c.Query("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, apperr.FieldErrors{"category_id": "must be a positive integer"}.Err()
		}
		f.CategoryID = &id
	}
	f.Header = httpx.ParseBoolish(c.Query("header"))
	return f, nil
}
