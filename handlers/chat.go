package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"scenariochat/models"
	"scenariochat/workflow"
)

// ChatHandler processes one conversational turn against a scenario
// @Summary      Handle a chat turn
// @Description  Classifies the message into an intent (chat, SQL query, visualization, file edit, scenario comparison, DB modification), runs the matching handler and executor, and returns a uniform reply with any generated files
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      models.ChatRequest   true  "Chat turn: scenario id, message, optional thread id"
// @Success      200      {object}  models.ChatResponse  "Assembled reply"
// @Failure      400      {object}  map[string]string    "Invalid request"
// @Failure      404      {object}  map[string]string    "Unknown scenario"
// @Failure      500      {object}  map[string]string    "Internal server error"
// @Router       /api/chat [post]
func (h *Handlers) ChatHandler(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	uid := userID(c)
	log.Printf("[CHAT HANDLER] user=%s scenario=%s thread=%s", uid, req.ScenarioID, req.ThreadID)

	resp, err := h.engine.HandleTurn(c.Request.Context(), uid, req)
	if err != nil {
		if errors.Is(err, workflow.ErrScenarioResolution) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Scenario could not be resolved: %v", err)})
			return
		}
		log.Printf("[CHAT HANDLER] turn failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the request"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
