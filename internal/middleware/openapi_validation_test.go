package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *OpenAPIValidator {
	t.Helper()
	v, err := NewOpenAPIValidator(nil)
	require.NoError(t, err)
	require.NoError(t, v.LoadEmbeddedSpec())
	return v
}

func setupValidatedRouter(t *testing.T, v *OpenAPIValidator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(v.Middleware())

	echo := func(status int) gin.HandlerFunc {
		return func(c *gin.Context) {
			var body any
			if c.Request.Body != nil {
				_ = json.NewDecoder(c.Request.Body).Decode(&body)
			}
			c.JSON(status, gin.H{"received": body != nil})
		}
	}
	router.GET("/ue_profiles", echo(http.StatusOK))
	router.POST("/ue_profiles", echo(http.StatusCreated))
	router.POST("/ue_profiles/generate", echo(http.StatusCreated))
	router.PUT("/ue_profiles/:supi", echo(http.StatusOK))
	router.GET("/health", echo(http.StatusOK))
	router.GET("/unknown", echo(http.StatusOK))
	return router
}

func TestLoadEmbeddedSpec(t *testing.T) {
	v := newTestValidator(t)

	spec := v.Spec()
	require.NotNil(t, spec)
	assert.Equal(t, "UE Profile API", spec.Info.Title)
	assert.NotNil(t, spec.Paths.Find("/ue_profiles"))
	assert.NotNil(t, spec.Paths.Find("/ue_profiles/generate"))
	assert.NotNil(t, spec.Paths.Find("/ue_profiles/{supi}"))
	assert.NotNil(t, spec.Paths.Find("/ue_profiles/{supi}/export"))
}

func TestLoadSpecErrors(t *testing.T) {
	v, err := NewOpenAPIValidator(nil)
	require.NoError(t, err)

	assert.Error(t, v.LoadSpec([]byte("not: [valid")))
	assert.Error(t, v.LoadSpecFromFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Nil(t, v.Spec())
}

func TestLoadSpecFromFile(t *testing.T) {
	data, err := OpenAPISpecs.ReadFile(EmbeddedSpecPath)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, data, 0600))

	v, err := NewOpenAPIValidator(nil)
	require.NoError(t, err)
	require.NoError(t, v.LoadSpecFromFile(path))
	assert.Equal(t, "UE Profile API", v.Spec().Info.Title)
}

func TestOpenAPIValidatorMiddleware(t *testing.T) {
	router := setupValidatedRouter(t, newTestValidator(t))

	validProfile := `[{"supi":"imsi-208930000000001","plmnid":{"mcc":"208","mnc":"93"},"opType":"OPC"}]`

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "valid create batch",
			method:     http.MethodPost,
			path:       "/ue_profiles",
			body:       validProfile,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "empty batch",
			method:     http.MethodPost,
			path:       "/ue_profiles",
			body:       `[]`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "create without supi",
			method:     http.MethodPost,
			path:       "/ue_profiles",
			body:       `[{"plmnid":{"mcc":"208","mnc":"93"}}]`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "create with bad opType",
			method:     http.MethodPost,
			path:       "/ue_profiles",
			body:       `[{"supi":"imsi-1","plmnid":{"mcc":"208","mnc":"93"},"opType":"XOR"}]`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation failed",
		},
		{
			name:       "create with wrong sst type",
			method:     http.MethodPost,
			path:       "/ue_profiles",
			body:       `[{"supi":"imsi-1","plmnid":{"mcc":"208","mnc":"93"},"ueDefaultNssai":[{"sst":"one"}]}]`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "single object instead of batch",
			method:     http.MethodPost,
			path:       "/ue_profiles",
			body:       `{"supi":"imsi-1"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "generate",
			method:     http.MethodPost,
			path:       "/ue_profiles/generate",
			body:       `{"num_ues":3,"plmnid":{"mcc":"208","mnc":"93"}}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "generate zero ues",
			method:     http.MethodPost,
			path:       "/ue_profiles/generate",
			body:       `{"num_ues":0,"plmnid":{"mcc":"208","mnc":"93"}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "update without identity",
			method:     http.MethodPut,
			path:       "/ue_profiles/imsi-208930000000001",
			body:       `{"plmnid":{"mcc":"208","mnc":"93"},"protectionScheme":1}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "update with bad scheme",
			method:     http.MethodPut,
			path:       "/ue_profiles/imsi-208930000000001",
			body:       `{"protectionScheme":7}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "list with filter",
			method:     http.MethodGet,
			path:       "/ue_profiles?supi=2089",
			wantStatus: http.StatusOK,
		},
		{
			name:       "excluded path",
			method:     http.MethodGet,
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "route outside the description",
			method:     http.MethodGet,
			path:       "/unknown",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *bytes.Reader
			if tt.body != "" {
				body = bytes.NewReader([]byte(tt.body))
			} else {
				body = bytes.NewReader(nil)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusBadRequest {
				var resp map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "ValidationError", resp["error"])
				assert.InDelta(t, float64(http.StatusBadRequest), resp["code"], 0)
				if tt.wantMsg != "" {
					assert.Contains(t, resp["message"], tt.wantMsg)
				}
			}
		})
	}
}

func TestOpenAPIValidatorKeepsBodyForHandler(t *testing.T) {
	router := setupValidatedRouter(t, newTestValidator(t))

	req := httptest.NewRequest(http.MethodPost, "/ue_profiles",
		bytes.NewReader([]byte(`[{"supi":"imsi-1","plmnid":{"mcc":"208","mnc":"93"}}]`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestOpenAPIValidatorBodyLimit(t *testing.T) {
	v, err := NewOpenAPIValidator(&ValidationConfig{ValidateRequest: true, MaxBodySize: 16})
	require.NoError(t, err)
	require.NoError(t, v.LoadEmbeddedSpec())
	router := setupValidatedRouter(t, v)

	req := httptest.NewRequest(http.MethodPost, "/ue_profiles",
		bytes.NewReader([]byte(`[{"supi":"imsi-208930000000001"}]`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestOpenAPIValidatorWithoutSpec(t *testing.T) {
	v, err := NewOpenAPIValidator(nil)
	require.NoError(t, err)
	router := setupValidatedRouter(t, v)

	req := httptest.NewRequest(http.MethodPost, "/ue_profiles", bytes.NewReader([]byte(`[]`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestOpenAPIValidatorResponseValidation(t *testing.T) {
	v, err := NewOpenAPIValidator(&ValidationConfig{ValidateRequest: true, ValidateResponse: true})
	require.NoError(t, err)
	require.NoError(t, v.LoadEmbeddedSpec())
	router := setupValidatedRouter(t, v)

	req := httptest.NewRequest(http.MethodGet, "/ue_profiles", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Response mismatches are logged, never rejected.
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSpecHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	v, err := NewOpenAPIValidator(nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	v.SpecHandler(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, v.LoadEmbeddedSpec())
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	v.SpecHandler(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "UE Profile API")
}

func TestFormatValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want string
	}{
		{
			name: "schema property",
			err:  `request body has an error: doesn't match schema: Error at "/0/opType": property "opType" is unsupported`,
			want: "Request body validation failed: invalid property opType",
		},
		{
			name: "schema pointer",
			err:  `request body has an error: doesn't match schema: Error at "/0/ueDefaultNssai/0/sst": value must be an integer`,
			want: "Request body validation failed: invalid value at /0/ueDefaultNssai/0/sst",
		},
		{
			name: "body format",
			err:  "request body has an error: failed to decode request body",
			want: "Invalid request body format",
		},
		{
			name: "parameter",
			err:  `parameter "supi" in path has an error`,
			want: `Invalid request parameters: parameter "supi" in path has an error`,
		},
		{
			name: "other",
			err:  "boom",
			want: "Request validation failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValidationError(errorString(tt.err)))
		})
	}
	assert.Empty(t, formatValidationError(nil))
}

type errorString string

func (e errorString) Error() string { return string(e) }
