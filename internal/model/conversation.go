package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Conversation status values
const (
	ConversationStatusActive    = "active"
	ConversationStatusCompleted = "completed"
	ConversationStatusAbandoned = "abandoned"
)

// Chat message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is the durable per-session chat record
type Conversation struct {
	ID                    uuid.UUID          `json:"id" db:"id"`
	SessionID             string             `json:"session_id" db:"session_id"`
	UserID                *string            `json:"user_id,omitempty" db:"user_id"`
	Messages              MessageList        `json:"messages" db:"messages"`
	UserPreferences       PreferenceSnapshot `json:"user_preferences" db:"user_preferences"`
	RecommendedProperties RecommendationList `json:"recommended_properties" db:"recommended_properties"`
	RecommendedLaunches   RecommendationList `json:"recommended_launches" db:"recommended_launches"`
	Status                string             `json:"status" db:"status"`
	IsActive              bool               `json:"is_active" db:"is_active"`
	LeadCaptured          bool               `json:"lead_captured" db:"lead_captured"`
	LeadID                *uuid.UUID         `json:"lead_id,omitempty" db:"lead_id"`
	FirstMessageAt        *time.Time         `json:"first_message_at,omitempty" db:"first_message_at"`
	LastMessageAt         *time.Time         `json:"last_message_at,omitempty" db:"last_message_at"`
	TotalMessages         int                `json:"total_messages" db:"total_messages"`
	ConversationDuration  int64              `json:"conversation_duration" db:"conversation_duration_secs"`
	CreatedAt             time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at" db:"updated_at"`
}

// ChatMessage is one entry in a conversation transcript
type ChatMessage struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	PropertyRefs []int64   `json:"property_refs,omitempty"`
	LaunchRefs   []int64   `json:"launch_refs,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// RecommendationEntry records that an entity was surfaced to a session.
// Entries are append-only and never rewritten for an ID already present.
type RecommendationEntry struct {
	EntityID       int64     `json:"entity_id"`
	RelevanceScore float64   `json:"relevance_score"`
	RecommendedAt  time.Time `json:"recommended_at"`
}

// ConversationSummary is the admin-facing listing view of a conversation
type ConversationSummary struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	SessionID      string     `json:"session_id" db:"session_id"`
	UserID         *string    `json:"user_id,omitempty" db:"user_id"`
	Status         string     `json:"status" db:"status"`
	LeadCaptured   bool       `json:"lead_captured" db:"lead_captured"`
	TotalMessages  int        `json:"total_messages" db:"total_messages"`
	FirstMessageAt *time.Time `json:"first_message_at,omitempty" db:"first_message_at"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// MessageList is a JSONB-backed ordered message transcript
type MessageList []ChatMessage

// Value implements driver.Valuer interface
func (m MessageList) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal([]ChatMessage{})
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface
func (m *MessageList) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), m)
	}
	return json.Unmarshal(bytes, m)
}

// RecommendationList is a JSONB-backed ordered, deduplicated recommendation history
type RecommendationList []RecommendationEntry

// Value implements driver.Valuer interface
func (r RecommendationList) Value() (driver.Value, error) {
	if r == nil {
		return json.Marshal([]RecommendationEntry{})
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner interface
func (r *RecommendationList) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), r)
	}
	return json.Unmarshal(bytes, r)
}

// Contains reports whether an entity ID is already in the history
func (r RecommendationList) Contains(entityID int64) bool {
	for _, entry := range r {
		if entry.EntityID == entityID {
			return true
		}
	}
	return false
}

// EntityIDs returns the recommended entity IDs in recommendation order
func (r RecommendationList) EntityIDs() []int64 {
	ids := make([]int64, len(r))
	for i, entry := range r {
		ids[i] = entry.EntityID
	}
	return ids
}
