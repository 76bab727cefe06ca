package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "ok",
		"message":   "Fleetwatch is running",
		"timestamp": h.clock.Now().Format(time.RFC3339),
		"scheduler": h.scheduler.Status(),
	})
}
