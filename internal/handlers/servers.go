package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListServers(ctx *gin.Context) {
	servers, err := h.cached("servers", func() (interface{}, error) {
		return h.store.ListServers(ctx.Request.Context())
	})

	if err != nil {
		h.log.Error().Err(err).Msg("failed to list servers")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve servers"})
		return
	}

	ctx.JSON(http.StatusOK, servers)
}
