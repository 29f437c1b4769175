package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler checks the health status of the service
// @Summary      Health check
// @Description  Check the health status of the service and its scenario registry
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string  "Service health status"
// @Router       /health [get]
func (h *Handlers) HealthHandler(c *gin.Context) {
	status := gin.H{
		"status":    "healthy",
		"db":        "connected",
		"scenarios": "unavailable",
	}

	if infos, err := h.scenarios.List(); err == nil {
		status["scenarios"] = "ready"
		status["scenario_count"] = len(infos)
	}

	c.JSON(http.StatusOK, status)
}
