package handler

import (
	"errors"
	"net/http"

	"estatechat/internal/model"
	"estatechat/internal/repository"
	"estatechat/internal/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles the public chat endpoints
type ChatHandler struct {
	chatService     *service.ChatService
	maxMessageLen   int
	maxSessionIDLen int
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService, maxMessageLen, maxSessionIDLen int) *ChatHandler {
	return &ChatHandler{
		chatService:     chatService,
		maxMessageLen:   maxMessageLen,
		maxSessionIDLen: maxSessionIDLen,
	}
}

// SendMessage handles POST /api/v1/chat/message
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req model.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Message) > h.maxMessageLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message exceeds maximum length"})
		return
	}
	if len(req.SessionID) > h.maxSessionIDLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID exceeds maximum length"})
		return
	}

	response, err := h.chatService.SendMessage(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetHistory handles GET /api/v1/chat/history/:sessionId
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" || len(sessionID) > h.maxSessionIDLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	history, err := h.chatService.GetHistory(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get history"})
		return
	}

	c.JSON(http.StatusOK, history)
}

// CaptureLead handles POST /api/v1/chat/lead
func (h *ChatHandler) CaptureLead(c *gin.Context) {
	var req model.LeadCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	lead, err := h.chatService.CaptureLead(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		case errors.Is(err, service.ErrLeadAlreadyCaptured):
			c.JSON(http.StatusConflict, gin.H{"error": "Lead already captured for this conversation"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to capture lead"})
		}
		return
	}

	c.JSON(http.StatusCreated, model.LeadCaptureResponse{
		LeadID: lead.ID,
		Name:   lead.Name,
		Email:  lead.Email,
	})
}
