package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tripmate/internal/app"
	"github.com/charlesng35/tripmate/internal/handlers"
	"github.com/charlesng35/tripmate/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, manager *monitoring.HealthManager) {
	if !cfg.Monitoring.Health.Enabled || manager == nil {
		r.GET("/health", disabledHealthHandler)
		r.GET("/health/ready", disabledHealthHandler)
		return
	}

	r.GET("/health", handlers.Liveness(manager))
	r.GET("/health/ready", handlers.Readiness(manager))
	r.GET("/health/jobs", handlers.Jobs())
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
