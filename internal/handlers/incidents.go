package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/fleetwatch/internal/utils"
)

func (h *Handler) GetActiveIncidents(ctx *gin.Context) {
	incidents, err := h.cached("incidents:active", func() (interface{}, error) {
		return h.store.ActiveIncidents(ctx.Request.Context())
	})

	if err != nil {
		h.log.Error().Err(err).Msg("failed to get active incidents")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incidents"})
		return
	}

	ctx.JSON(http.StatusOK, incidents)
}

func (h *Handler) GetIncidentHistory(ctx *gin.Context) {
	limit := utils.GetLimit(ctx, h.historyLimit, h.historyMaxLimit)

	incidents, err := h.cached(fmt.Sprintf("incidents:history:%d", limit), func() (interface{}, error) {
		return h.store.IncidentHistory(ctx.Request.Context(), limit)
	})

	if err != nil {
		h.log.Error().Err(err).Int("limit", limit).Msg("failed to get incident history")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incidents"})
		return
	}

	ctx.JSON(http.StatusOK, incidents)
}

func (h *Handler) GetHostIncidents(ctx *gin.Context) {
	hostname, err := utils.GetHostname(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incidents, err := h.cached("incidents:host:"+hostname, func() (interface{}, error) {
		return h.store.HostIncidents(ctx.Request.Context(), hostname)
	})

	if err != nil {
		h.log.Error().Err(err).Str("hostname", hostname).Msg("failed to get host incidents")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incidents"})
		return
	}

	ctx.JSON(http.StatusOK, incidents)
}
