package assets

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AMS-backend/internal/asset_mgmt/assignments"
	"AMS-backend/internal/asset_mgmt/disposals"
	"AMS-backend/internal/asset_mgmt/history"
	"AMS-backend/internal/platform/auth"
	"AMS-backend/internal/platform/db"
	"AMS-backend/internal/platform/db/dbtest"
	"AMS-backend/internal/platform/httpx"
)

// /assets/:id と /assets/scrapped が同じルータに共存することも確認する
func newRouter(t *testing.T) (*db.Handle, *gin.Engine, int64) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := dbtest.Open(t)
	actor := dbtest.SeedEmployee(t, h, "Admin", true)
	rec := history.NewRecorder(h.DB)
	mgr := assignments.NewManager(h, rec)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(auth.CtxEmployeeIDKey, actor) })
	RegisterRoutes(r, NewRegistry(h, rec, mgr))
	disposals.RegisterRoutes(r, disposals.NewProcessor(h, rec, mgr))
	return h, r, actor
}

func send(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env.Data
}

func TestHandler_CreateAssignedAssetUsesCaller(t *testing.T) {
	h, r, actor := newRouter(t)
	emp := dbtest.SeedEmployee(t, h, "Bob", true)

	w, data := send(t, r, http.MethodPost, "/assets",
		fmt.Sprintf(`{"name":"ThinkPad","status":"assigned","employee_id":%d}`, emp))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res AssetResponse
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, "AST0001", res.AssetTag)
	assert.Equal(t, fmt.Sprintf("/api/v1/assets/%d", res.ID), w.Header().Get("Location"))
	dbtest.RequireInvariant(t, h, res.ID)

	assert.Equal(t, 1, dbtest.Count(t, h,
		`SELECT COUNT(*) FROM assignments WHERE asset_id = ? AND assigned_by = ?`, res.ID, actor))
}

func TestHandler_GetListScrapped(t *testing.T) {
	h, r, _ := newRouter(t)
	id := dbtest.SeedAsset(t, h, "AST0001", "available")
	dbtest.SeedAsset(t, h, "AST0002", "maintenance")

	w, data := send(t, r, http.MethodGet, fmt.Sprintf("/assets/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	var one AssetResponse
	require.NoError(t, json.Unmarshal(data, &one))
	assert.Equal(t, "AST0001", one.AssetTag)

	w, data = send(t, r, http.MethodGet, "/assets?status=maintenance", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "AST0002", list.Items[0].AssetTag)

	w, _ = send(t, r, http.MethodGet, "/assets/scrapped", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_Errors(t *testing.T) {
	h, r, _ := newRouter(t)
	id := dbtest.SeedAsset(t, h, "AST0001", "available")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"missing name", http.MethodPost, "/assets", `{}`, http.StatusBadRequest},
		{"duplicate tag", http.MethodPost, "/assets", `{"name":"x","asset_tag":"AST0001"}`, http.StatusConflict},
		{"bad status filter", http.MethodGet, "/assets?status=lent", "", http.StatusBadRequest},
		{"unknown asset", http.MethodGet, "/assets/999", "", http.StatusNotFound},
		{"status assigned via patch", http.MethodPatch, fmt.Sprintf("/assets/%d", id), `{"status":"assigned"}`, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/assets/999", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var env httpx.Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.False(t, env.Success)
		})
	}
}
