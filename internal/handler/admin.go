package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"estatechat/internal/model"
	"estatechat/internal/repository"
	"estatechat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxListLimit = 100

// AdminHandler handles the admin HTTP endpoints
type AdminHandler struct {
	chatService      *service.ChatService
	analyticsService *service.AnalyticsService
	properties       *repository.PropertyRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(chatService *service.ChatService, analyticsService *service.AnalyticsService, properties *repository.PropertyRepository) *AdminHandler {
	return &AdminHandler{
		chatService:      chatService,
		analyticsService: analyticsService,
		properties:       properties,
	}
}

// AdminKeyMiddleware rejects requests without the configured admin key
func AdminKeyMiddleware(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" || c.GetHeader("X-Admin-Key") != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// ListConversations handles GET /api/v1/admin/conversations
func (h *AdminHandler) ListConversations(c *gin.Context) {
	filter := model.ConversationFilter{
		Page:  1,
		Limit: 20,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && limit > 0 {
		if limit > maxListLimit {
			limit = maxListLimit
		}
		filter.Limit = limit
	}

	if status := c.Query("status"); status != "" {
		switch status {
		case model.ConversationStatusActive, model.ConversationStatusCompleted, model.ConversationStatusAbandoned:
			filter.Status = &status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
	}
	if leadParam := c.Query("lead_captured"); leadParam != "" {
		captured, err := strconv.ParseBool(leadParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead_captured filter"})
			return
		}
		filter.LeadCaptured = &captured
	}

	response, err := h.chatService.ListConversations(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.analyticsService.ComputeStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// DeleteConversation handles DELETE /api/v1/admin/conversations/:id
func (h *AdminHandler) DeleteConversation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	if err := h.chatService.DeleteConversation(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
}

// BatchUpdateEmbeddings handles POST /api/v1/admin/embeddings/batch
func (h *AdminHandler) BatchUpdateEmbeddings(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Embeddings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No embeddings provided"})
		return
	}

	for i, item := range req.Embeddings {
		if len(item.Embedding) != 1536 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid embedding dimension at index %d, expected 1536", i),
			})
			return
		}
	}

	success, batchErrors := h.properties.BatchUpdateEmbeddings(c.Request.Context(), req.Embeddings)

	response := model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(req.Embeddings) - success,
		Errors:  batchErrors,
	}

	if len(batchErrors) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
