package categories

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AMS-backend/internal/platform/db/dbtest"
	"AMS-backend/internal/platform/httpx"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := dbtest.Open(t)
	dbtest.SeedCategory(t, h, "Old", "OLD", false)
	r := gin.New()
	RegisterRoutes(r, NewService(h.DB))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateThenList(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/categories", `{"name":"Laptop","code":"lap"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Success bool       `json:"success"`
		Data    []Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "LAP", env.Data[0].Code)

	w = do(r, http.MethodGet, "/categories?include_inactive=true", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Data, 2)
}

func TestHandler_Errors(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing fields", http.MethodPost, "/categories", `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate code", http.MethodPost, "/categories", `{"name":"x","code":"old"}`, http.StatusConflict, "CONFLICT"},
		{"bad id", http.MethodGet, "/categories/abc", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown id", http.MethodGet, "/categories/42", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			var env httpx.Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, string(env.Error.Code))
		})
	}
}
