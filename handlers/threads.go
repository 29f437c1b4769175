package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"scenariochat/models"
)

// ListThreadsHandler returns all conversation threads for the current user.
// @Summary      List conversation threads
// @Tags         Threads
// @Produce      json
// @Header       200  {string}  X-User-ID  "User ID"
// @Success      200  {array}   models.Thread
// @Router       /api/chat/threads [get]
func (h *Handlers) ListThreadsHandler(c *gin.Context) {
	uid := userID(c)
	if err := h.store.EnsureDefaultThread(uid); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ensure default thread"})
		return
	}
	threads, err := h.store.ListThreads(uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, threads)
}

// CreateThreadHandler creates a new conversation thread.
// @Summary      Create a conversation thread
// @Tags         Threads
// @Accept       json
// @Produce      json
// @Param        body  body      object  false  "Optional: { \"title\": \"New chat\" }"
// @Success      201   {object}  models.Thread
// @Router       /api/chat/threads [post]
func (h *Handlers) CreateThreadHandler(c *gin.Context) {
	uid := userID(c)
	var body struct {
		Title string `json:"title"`
	}
	_ = c.ShouldBindJSON(&body)
	title := strings.TrimSpace(body.Title)
	if title == "" {
		title = "New chat"
	}
	now := time.Now().Format(time.RFC3339)
	thread := &models.Thread{
		ID:        uuid.New().String(),
		UserID:    uid,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.StoreThread(thread); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, thread)
}

// GetThreadHandler returns one thread with its messages.
// @Summary      Get a thread with messages
// @Tags         Threads
// @Produce      json
// @Param        id   path      string  true  "Thread ID"
// @Success      200  {object}  object  "{ \"thread\": Thread, \"messages\": Message[] }"
// @Router       /api/chat/threads/{id} [get]
func (h *Handlers) GetThreadHandler(c *gin.Context) {
	uid := userID(c)
	threadID := c.Param("id")
	if threadID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thread id required"})
		return
	}
	if threadID == models.DefaultThreadID {
		_ = h.store.EnsureDefaultThread(uid)
	}
	thread, err := h.store.GetThread(uid, threadID)
	if err != nil || thread == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}
	messages, err := h.store.GetMessages(threadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": thread, "messages": messages})
}

// DeleteThreadHandler deletes a thread and all its messages.
// @Summary      Delete a thread
// @Tags         Threads
// @Param        id   path  string  true  "Thread ID"
// @Success      204  "No Content"
// @Router       /api/chat/threads/{id} [delete]
func (h *Handlers) DeleteThreadHandler(c *gin.Context) {
	uid := userID(c)
	threadID := c.Param("id")
	if threadID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thread id required"})
		return
	}
	if threadID == models.DefaultThreadID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete default thread"})
		return
	}
	if err := h.store.DeleteThread(uid, threadID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
