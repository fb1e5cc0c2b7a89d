package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tikuhub/tikuhub/internal/api/models"
)

// Health godoc
// @Summary Health check
// @Description Returns server health status, degraded when the database is unreachable.
// @Tags system
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, models.StatusResponse{Status: "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}
