package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaydenhoang5291/ue-profile/internal/models"
	"github.com/jaydenhoang5291/ue-profile/internal/observability"
)

// setupRoutes configures all HTTP routes.
// It organizes routes into logical groups:
//   - Health, readiness and liveness endpoints
//   - Prometheus metrics endpoint
//   - OpenAPI description and documentation
//   - UE profile endpoints
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck.HealthHandler())
	s.router.GET("/ready", s.healthCheck.ReadinessHandler())
	s.router.GET("/live", observability.LivenessHandler())

	if s.config.Observability.Metrics.Enabled {
		s.router.GET(s.config.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	s.setupDocsRoutes()

	profiles := s.router.Group("/ue_profiles")
	{
		profiles.GET("", s.profiles.ListProfiles)
		profiles.POST("", s.profiles.CreateProfiles)
		profiles.POST("/generate", s.profiles.GenerateProfiles)
		profiles.GET("/:supi", s.profiles.GetProfile)
		profiles.PUT("/:supi", s.profiles.UpdateProfile)
		profiles.DELETE("/:supi", s.profiles.DeleteProfile)
		profiles.GET("/:supi/export", s.profiles.ExportProfile)
	}

	s.router.GET("/", s.handleRoot)
	s.router.NoRoute(s.handleNoRoute)
}

// handleRoot returns basic API information.
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "UE Profile Repository",
		"version":     Version,
		"description": "Stores and generates simulated 5G UE profiles",
		"endpoints": gin.H{
			"health":      "/health",
			"ready":       "/ready",
			"metrics":     s.config.Observability.Metrics.Path,
			"openapi":     "/openapi.yaml",
			"docs":        "/docs/",
			"ue_profiles": "/ue_profiles",
		},
	})
}

func (s *Server) handleNoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   models.ErrorNotFound,
		Message: "No route for " + c.Request.Method + " " + c.Request.URL.Path,
		Code:    http.StatusNotFound,
	})
}
