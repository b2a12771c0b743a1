package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaydenhoang5291/ue-profile/internal/middleware"
)

func newDocsServer(t *testing.T, loaded bool) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := &Server{router: gin.New()}
	if loaded {
		v, err := middleware.NewOpenAPIValidator(nil)
		require.NoError(t, err)
		require.NoError(t, v.LoadEmbeddedSpec())
		srv.openAPIValidator = v
	}
	srv.setupDocsRoutes()
	return srv
}

func serve(srv *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSetupDocsRoutes(t *testing.T) {
	srv := newDocsServer(t, true)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		checkBody      func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name:           "docs redirect",
			path:           "/docs",
			expectedStatus: http.StatusMovedPermanently,
			checkBody: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "/docs/", w.Header().Get("Location"))
			},
		},
		{
			name:           "swagger UI",
			path:           "/docs/",
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
				assert.Contains(t, w.Body.String(), "UE Profile API Documentation")
				assert.Contains(t, w.Body.String(), "/docs/openapi.yaml")
				assert.Contains(t, w.Header().Get("Content-Security-Policy"), "https://unpkg.com")
			},
		},
		{
			name:           "openapi yaml in docs",
			path:           "/docs/openapi.yaml",
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
				assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
				assert.Contains(t, w.Body.String(), "/ue_profiles/{supi}/export")
			},
		},
		{
			name:           "openapi yaml at root",
			path:           "/openapi.yaml",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "openapi json",
			path:           "/openapi.json",
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, w *httptest.ResponseRecorder) {
				var doc map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
				paths, ok := doc["paths"].(map[string]any)
				require.True(t, ok)
				assert.Contains(t, paths, "/ue_profiles/generate")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(srv, tc.path)
			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.checkBody != nil {
				tc.checkBody(t, w)
			}
		})
	}
}

func TestDocsWithoutSpec(t *testing.T) {
	srv := newDocsServer(t, false)

	for _, path := range []string{"/openapi.yaml", "/openapi.json", "/docs/openapi.yaml"} {
		w := serve(srv, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "OpenAPI specification not loaded")
	}

	// The UI page itself does not depend on the description.
	assert.Equal(t, http.StatusOK, serve(srv, "/docs/").Code)
}
