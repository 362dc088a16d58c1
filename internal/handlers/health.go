package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tripmate/internal/monitoring"
)

// Liveness reports that the process is serving.
// GET /health
func Liveness(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeHealthReport(c, manager.Liveness())
	}
}

// Readiness probes every registered dependency.
// GET /health/ready
func Readiness(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeHealthReport(c, manager.Readiness(requestContext(c)))
	}
}

// Jobs lists background job history.
// GET /health/jobs
func Jobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"jobs": monitoring.Jobs()})
	}
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	status := http.StatusOK
	if !report.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"success":   report.Success,
		"status":    report.Status,
		"checks":    report.Checks,
		"checkedAt": time.Now().UTC(),
	})
}
