package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/fleetwatch/internal/types"
	"github.com/monocle-dev/fleetwatch/internal/utils"
)

// Heartbeat upserts the metrics a host reports about itself. The server
// status is owned by the scheduler and is never touched here.
func (h *Handler) Heartbeat(ctx *gin.Context) {
	var req types.HeartbeatRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hostname, err := utils.NormalizeHostname(req.Hostname)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid hostname: " + err.Error()})
		return
	}

	now := h.clock.Now()
	lastMetrics := now

	if req.Timestamp > 0 {
		reported := time.Unix(req.Timestamp, 0)
		if reported.Before(now) {
			lastMetrics = reported
		}
	}

	hb := types.Heartbeat{
		Hostname:    hostname,
		IP:          req.IP,
		CPU:         req.CPU,
		RAM:         req.RAM,
		LastMetrics: lastMetrics,
		ReceivedAt:  now,
	}

	if err := h.store.RecordHeartbeat(ctx.Request.Context(), hb); err != nil {
		h.log.Error().Err(err).Str("hostname", hostname).Msg("failed to record heartbeat")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record heartbeat"})
		return
	}

	h.invalidate()

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
