package model

import (
	"time"

	"github.com/google/uuid"
)

// Lead source/status/priority values
const (
	LeadSourceChat = "chat"

	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusClosed    = "closed"

	LeadPriorityHigh   = "high"
	LeadPriorityMedium = "medium"
	LeadPriorityLow    = "low"
)

// Lead is a sales-facing record created when a conversation's accumulated
// intent is converted into an actionable contact. Once created it is
// independent of the conversation; the conversation only keeps a back-reference.
type Lead struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	Phone          string     `json:"phone" db:"phone"`
	Notes          string     `json:"notes" db:"notes"`
	Source         string     `json:"source" db:"source"`
	Status         string     `json:"status" db:"status"`
	Priority       string     `json:"priority" db:"priority"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty" db:"conversation_id"`

	// Requirement fields copied from the conversation's preference
	// snapshot at capture time
	BudgetMin    *float64 `json:"budget_min,omitempty" db:"budget_min"`
	BudgetMax    *float64 `json:"budget_max,omitempty" db:"budget_max"`
	Currency     *string  `json:"currency,omitempty" db:"currency"`
	City         *string  `json:"city,omitempty" db:"city"`
	District     *string  `json:"district,omitempty" db:"district"`
	PropertyType *string  `json:"property_type,omitempty" db:"property_type"`
	Purpose      *string  `json:"purpose,omitempty" db:"purpose"`
	BedroomsMin  *int     `json:"bedrooms_min,omitempty" db:"bedrooms_min"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
