package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// Health reports overall service liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tripflow",
		"uptime":  time.Since(startTime).Round(time.Second).String(),
	})
}
