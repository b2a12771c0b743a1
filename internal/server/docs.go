package server

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaydenhoang5291/ue-profile/internal/models"
)

// Swagger UI assets are pinned and loaded with SRI hashes.
const (
	swaggerUICSSURL    = "https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css"
	swaggerUIBundleURL = "https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js"
	swaggerUIPresetURL = "https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-standalone-preset.js"

	// sha384, from: curl -sL <url> | openssl dgst -sha384 -binary | openssl base64 -A
	swaggerUICSSSRI    = "sha384-+yyzNgM3K92sROwsXxYCxaiLWxWJ0G+v/9A+qIZ2rgefKgkdcmJI+L601cqPD/Ut"
	swaggerUIBundleSRI = "sha384-qn5tagrAjZi8cSmvZ+k3zk4+eDEEUcP9myuR2J6V+/H6rne++v6ChO7EeHAEzqxQ"
	swaggerUIPresetSRI = "sha384-SiLF+uYBf9lVQW98s/XUYP14enXJN31bn0zu3BS1WFqr5hvnMF+w132WkE/v0uJw"

	swaggerUICSP = "default-src 'self'; " +
		"script-src 'self' 'unsafe-inline' https://unpkg.com; " +
		"style-src 'self' 'unsafe-inline' https://unpkg.com; " +
		"img-src 'self' data: https:; " +
		"font-src 'self' https://unpkg.com; " +
		"connect-src 'self'"

	defaultDocsTitle = "UE Profile API"
)

var swaggerUIPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} Documentation</title>
    <link rel="stylesheet" href="{{.CSSURL}}" integrity="{{.CSSSRI}}" crossorigin="anonymous">
    <style>body { margin: 0; } .swagger-ui .topbar { display: none; }</style>
</head>
<body>
    <div id="swagger-ui" data-spec-url="{{.SpecURL}}"></div>
    <script src="{{.BundleURL}}" integrity="{{.BundleSRI}}" crossorigin="anonymous"></script>
    <script src="{{.PresetURL}}" integrity="{{.PresetSRI}}" crossorigin="anonymous"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: document.getElementById('swagger-ui').dataset.specUrl,
                dom_id: '#swagger-ui',
                presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
                layout: "StandaloneLayout",
                validatorUrl: null,
                supportedSubmitMethods: ['get', 'post', 'put', 'delete'],
                displayRequestDuration: true,
                persistAuthorization: true
            });
        };
    </script>
</body>
</html>`))

type swaggerUIData struct {
	Title     string
	SpecURL   string
	CSSURL    string
	CSSSRI    string
	BundleURL string
	BundleSRI string
	PresetURL string
	PresetSRI string
}

// setupDocsRoutes serves the OpenAPI description and a Swagger UI page.
func (s *Server) setupDocsRoutes() {
	docs := s.router.Group("/docs")
	{
		docs.GET("/openapi.yaml", s.handleOpenAPIYAML)
		docs.GET("/openapi.json", s.handleOpenAPIJSON)

		docs.GET("", func(c *gin.Context) { c.Redirect(http.StatusMovedPermanently, "/docs/") })
		docs.GET("/", s.handleSwaggerUI)
	}

	s.router.GET("/openapi.yaml", s.handleOpenAPIYAML)
	s.router.GET("/openapi.json", s.handleOpenAPIJSON)
}

// handleOpenAPIYAML serves the OpenAPI description as loaded.
func (s *Server) handleOpenAPIYAML(c *gin.Context) {
	if s.openAPIValidator == nil {
		specNotLoaded(c)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	s.openAPIValidator.SpecHandler(c)
}

// handleOpenAPIJSON serves the OpenAPI description encoded as JSON.
func (s *Server) handleOpenAPIJSON(c *gin.Context) {
	if s.openAPIValidator == nil || s.openAPIValidator.Spec() == nil {
		specNotLoaded(c)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, s.openAPIValidator.Spec())
}

func specNotLoaded(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   models.ErrorNotFound,
		Message: "OpenAPI specification not loaded",
		Code:    http.StatusNotFound,
	})
}

// handleSwaggerUI renders the Swagger UI page titled after the loaded
// description.
func (s *Server) handleSwaggerUI(c *gin.Context) {
	data := swaggerUIData{
		Title:     defaultDocsTitle,
		SpecURL:   "/docs/openapi.yaml",
		CSSURL:    swaggerUICSSURL,
		CSSSRI:    swaggerUICSSSRI,
		BundleURL: swaggerUIBundleURL,
		BundleSRI: swaggerUIBundleSRI,
		PresetURL: swaggerUIPresetURL,
		PresetSRI: swaggerUIPresetSRI,
	}
	if s.openAPIValidator != nil {
		if spec := s.openAPIValidator.Spec(); spec != nil && spec.Info != nil && spec.Info.Title != "" {
			data.Title = spec.Info.Title
		}
	}

	var buf bytes.Buffer
	if err := swaggerUIPage.Execute(&buf, data); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   models.ErrorInternal,
			Message: "Failed to render documentation",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Header("Content-Security-Policy", swaggerUICSP)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
