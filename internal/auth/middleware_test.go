package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jaydenhoang5291/ue-profile/internal/auth"
)

// mockStore is a mock implementation of auth.Store for testing.
type mockStore struct {
	tokens    map[string]*auth.Token
	lookupErr error
}

func newMockStore() *mockStore {
	return &mockStore{tokens: make(map[string]*auth.Token)}
}

func (m *mockStore) CreateToken(_ context.Context, raw string, tok *auth.Token) error {
	if _, ok := m.tokens[raw]; ok {
		return auth.ErrTokenExists
	}
	m.tokens[raw] = tok
	return nil
}

func (m *mockStore) LookupToken(_ context.Context, raw string) (*auth.Token, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	tok, ok := m.tokens[raw]
	if !ok {
		return nil, auth.ErrTokenNotFound
	}
	return tok, nil
}

func (m *mockStore) RevokeToken(_ context.Context, raw string) error {
	if _, ok := m.tokens[raw]; !ok {
		return auth.ErrTokenNotFound
	}
	delete(m.tokens, raw)
	return nil
}

func (m *mockStore) ListTokens(_ context.Context, userID string) ([]*auth.Token, error) {
	out := []*auth.Token{}
	for _, tok := range m.tokens {
		if tok.UserID == userID {
			out = append(out, tok)
		}
	}
	return out, nil
}

func (m *mockStore) Close() error                 { return nil }
func (m *mockStore) Ping(_ context.Context) error { return nil }

func setupRouter(store auth.Store, cfg *auth.MiddlewareConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	mw := auth.NewMiddleware(store, cfg, zap.NewNop())
	router.Use(mw.AuthenticationMiddleware())

	handler := func(c *gin.Context) {
		p := auth.PrincipalFromContext(c.Request.Context())
		body := gin.H{"request_id": auth.RequestIDFromContext(c.Request.Context())}
		if p != nil {
			body["user_id"] = p.UserID
		}
		c.JSON(http.StatusOK, body)
	}
	router.GET("/health", handler)
	router.GET("/docs/*any", handler)
	router.GET("/ue_profiles", handler)
	return router
}

func TestAuthenticationMiddleware(t *testing.T) {
	store := newMockStore()
	store.tokens["good"] = &auth.Token{ID: "tok-1", UserID: "alice"}

	cfg := auth.DefaultMiddlewareConfig()
	cfg.SkipPaths = append(cfg.SkipPaths, "/docs/*")
	router := setupRouter(store, cfg)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{name: "valid token", path: "/ue_profiles", header: "Bearer good", wantStatus: http.StatusOK, wantUser: "alice"},
		{name: "scheme is case insensitive", path: "/ue_profiles", header: "bearer good", wantStatus: http.StatusOK, wantUser: "alice"},
		{name: "missing header", path: "/ue_profiles", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/ue_profiles", header: "Basic Z29vZA==", wantStatus: http.StatusUnauthorized},
		{name: "empty token", path: "/ue_profiles", header: "Bearer   ", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", path: "/ue_profiles", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "skip exact path", path: "/health", wantStatus: http.StatusOK},
		{name: "skip wildcard path", path: "/docs/openapi.yaml", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Unauthorized", body["error"])
				assert.InDelta(t, float64(http.StatusUnauthorized), body["code"], 0)
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
				return
			}
			assert.NotEmpty(t, body["request_id"])
			if tt.wantUser != "" {
				assert.Equal(t, tt.wantUser, body["user_id"])
			}
		})
	}
}

func TestAuthenticationMiddleware_ExpiredToken(t *testing.T) {
	store := newMockStore()
	store.lookupErr = auth.ErrTokenExpired
	router := setupRouter(store, nil)

	req := httptest.NewRequest(http.MethodGet, "/ue_profiles", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
}

func TestAuthenticationMiddleware_StoreFailure(t *testing.T) {
	store := newMockStore()
	store.lookupErr = errors.New("connection refused")
	router := setupRouter(store, nil)

	req := httptest.NewRequest(http.MethodGet, "/ue_profiles", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthenticationMiddleware_Disabled(t *testing.T) {
	router := setupRouter(newMockStore(), &auth.MiddlewareConfig{Enabled: false})

	req := httptest.NewRequest(http.MethodGet, "/ue_profiles", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "user_id")
}
