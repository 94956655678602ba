package repository

import (
	"context"
	"fmt"
	"time"

	"estatechat/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LeadRepository handles sales lead persistence. Append-only from the chat
// engine's perspective: one insert per capture.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts a new lead and fills in its generated fields
func (r *LeadRepository) Create(ctx context.Context, lead *model.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	query := `
		INSERT INTO leads (
			id, name, email, phone, notes, source, status, priority,
			conversation_id, budget_min, budget_max, currency, city, district,
			property_type, purpose, bedrooms_min, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.ExecContext(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Notes,
		lead.Source, lead.Status, lead.Priority, lead.ConversationID,
		lead.BudgetMin, lead.BudgetMax, lead.Currency, lead.City, lead.District,
		lead.PropertyType, lead.Purpose, lead.BedroomsMin,
		lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}
