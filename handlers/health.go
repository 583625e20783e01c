package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govbook/utils"
)

// HealthHandler serves the latest dependency snapshot.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "service": "govbook"})
}
