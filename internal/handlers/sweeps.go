package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/fleetwatch/internal/scheduler"
	"github.com/monocle-dev/fleetwatch/internal/utils"
)

func (h *Handler) GetSweeps(ctx *gin.Context) {
	limit := utils.GetLimit(ctx, h.historyLimit, h.historyMaxLimit)

	runs, err := h.store.RecentSweeps(ctx.Request.Context(), limit)

	if err != nil {
		h.log.Error().Err(err).Msg("failed to get sweeps")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sweeps"})
		return
	}

	ctx.JSON(http.StatusOK, runs)
}

// TriggerSweep runs a sweep now and returns its summary. The sweep is not
// tied to the request, so a client hanging up does not cut it short.
func (h *Handler) TriggerSweep(ctx *gin.Context) {
	summary, err := h.scheduler.RunSweep(context.WithoutCancel(ctx.Request.Context()))

	if errors.Is(err, scheduler.ErrSweepInProgress) {
		ctx.JSON(http.StatusConflict, gin.H{"error": "A sweep is already running"})
		return
	}

	if err != nil {
		h.log.Error().Err(err).Msg("manual sweep failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run sweep"})
		return
	}

	ctx.JSON(http.StatusOK, summary)
}
