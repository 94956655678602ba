package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessageRequest is the inbound chat payload
type ChatMessageRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	Message   string  `json:"message" binding:"required"`
	UserID    *string `json:"user_id,omitempty"`
}

// ChatMessageResponse is the reply payload for one chat turn
type ChatMessageResponse struct {
	Reply          string              `json:"reply"`
	Properties     []PropertySummary   `json:"properties"`
	Launches       []LaunchSummary     `json:"launches"`
	SessionID      string              `json:"session_id"`
	ConversationID uuid.UUID           `json:"conversation_id"`
	Preferences    *PreferenceSnapshot `json:"preferences,omitempty"`
	IsFallback     bool                `json:"is_fallback"`
}

// HydratedProperty pairs a live property summary with its recommendation metadata
type HydratedProperty struct {
	Property       PropertySummary `json:"property"`
	RelevanceScore float64         `json:"relevance_score"`
	RecommendedAt  time.Time       `json:"recommended_at"`
}

// HydratedLaunch pairs a live launch summary with its recommendation metadata
type HydratedLaunch struct {
	Launch         LaunchSummary `json:"launch"`
	RelevanceScore float64       `json:"relevance_score"`
	RecommendedAt  time.Time     `json:"recommended_at"`
}

// ChatHistoryResponse is the transcript payload for a session
type ChatHistoryResponse struct {
	ConversationID        uuid.UUID           `json:"conversation_id"`
	Messages              []ChatMessage       `json:"messages"`
	Preferences           *PreferenceSnapshot `json:"preferences,omitempty"`
	RecommendedProperties []HydratedProperty  `json:"recommended_properties"`
	RecommendedLaunches   []HydratedLaunch    `json:"recommended_launches"`
}

// LeadCaptureRequest converts a session's accumulated intent into a lead
type LeadCaptureRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	Phone     string  `json:"phone" binding:"required"`
	Message   *string `json:"message,omitempty"`
}

// LeadCaptureResponse confirms the created lead
type LeadCaptureResponse struct {
	LeadID uuid.UUID `json:"lead_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
}

// ConversationFilter selects conversations for the admin listing
type ConversationFilter struct {
	Status       *string
	LeadCaptured *bool
	Page         int
	Limit        int
}

// ConversationListResponse is the paginated admin listing payload
type ConversationListResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	TotalPages    int                   `json:"total_pages"`
}

// DailyCount is one day's conversation count in the trailing trend window
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// RecommendedPropertyCount is one entry of the most-recommended rollup
type RecommendedPropertyCount struct {
	PropertyID int64   `json:"property_id"`
	Title      *string `json:"title,omitempty"`
	Count      int     `json:"count"`
}

// ChatStats is the admin analytics rollup over all conversations
type ChatStats struct {
	TotalConversations     int                        `json:"total_conversations"`
	ActiveConversations    int                        `json:"active_conversations"`
	CompletedConversations int                        `json:"completed_conversations"`
	AbandonedConversations int                        `json:"abandoned_conversations"`
	LeadsCaptured          int                        `json:"leads_captured"`
	TotalMessages          int                        `json:"total_messages"`
	AvgMessagesPerConv     float64                    `json:"avg_messages_per_conversation"`
	ConversionRate         string                     `json:"conversion_rate"`
	DailyConversations     []DailyCount               `json:"daily_conversations"`
	TopRecommended         []RecommendedPropertyCount `json:"top_recommended_properties"`
}

// EmbeddingBatchRequest is a batch property-embedding upsert
type EmbeddingBatchRequest struct {
	Embeddings []PropertyEmbedding `json:"embeddings" binding:"required"`
}

// PropertyEmbedding is a single embedding with its property reference
type PropertyEmbedding struct {
	PropertyID int64     `json:"property_id" binding:"required"`
	Embedding  []float32 `json:"embedding" binding:"required"`
}

// EmbeddingBatchResponse reports the batch outcome
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
