package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/logger"
	"go.uber.org/zap"
)

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logger.FromGin(c).Warn("health check failed", zap.Error(err))
		respondJSON(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok", "database": "up"})
}
