package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"estatechat/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ConversationRepository handles the durable per-session chat records.
//
// Message, preference and recommendation writes are full-column updates over
// the record threaded through the call (read-modify-write); callers must
// serialize writes per session.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `
	id, session_id, user_id, messages, user_preferences,
	recommended_properties, recommended_launches, status, is_active,
	lead_captured, lead_id, first_message_at, last_message_at,
	total_messages, conversation_duration_secs, created_at, updated_at`

// FindOrCreate returns the conversation for a session, creating an empty
// active record on first contact
func (r *ConversationRepository) FindOrCreate(ctx context.Context, sessionID string, userID *string) (*model.Conversation, error) {
	now := time.Now().UTC()
	insertQuery := `
		INSERT INTO conversations (
			id, session_id, user_id, messages, user_preferences,
			recommended_properties, recommended_launches, status, is_active,
			lead_captured, total_messages, conversation_duration_secs,
			first_message_at, last_message_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, '[]', '{}', '[]', '[]', $4, true, false, 0, 0, $5, $5, $5, $5)
		ON CONFLICT (session_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, insertQuery, uuid.New(), sessionID, userID, model.ConversationStatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return r.GetBySessionID(ctx, sessionID)
}

// GetBySessionID fetches the conversation for a session
func (r *ConversationRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Conversation, error) {
	var conv model.Conversation
	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE session_id = $1`, conversationColumns)
	err := r.db.GetContext(ctx, &conv, query, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// AppendMessage stamps and appends a message, recomputing the transcript
// bookkeeping. The full message list is written back so prior messages are
// never lost to a partial update.
func (r *ConversationRepository) AppendMessage(ctx context.Context, conv *model.Conversation, msg model.ChatMessage) (*model.Conversation, error) {
	now := time.Now().UTC()
	msg.Timestamp = now

	conv.Messages = append(conv.Messages, msg)
	conv.TotalMessages = len(conv.Messages)
	conv.LastMessageAt = &now
	if conv.FirstMessageAt == nil {
		conv.FirstMessageAt = &now
	}
	conv.ConversationDuration = int64(now.Sub(*conv.FirstMessageAt).Seconds())
	conv.UpdatedAt = now

	query := `
		UPDATE conversations
		SET messages = $1, total_messages = $2, first_message_at = $3,
		    last_message_at = $4, conversation_duration_secs = $5, updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		conv.Messages, conv.TotalMessages, conv.FirstMessageAt,
		conv.LastMessageAt, conv.ConversationDuration, conv.UpdatedAt, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return conv, nil
}

// UpdatePreferences merges a preference fragment into the stored snapshot
func (r *ConversationRepository) UpdatePreferences(ctx context.Context, conv *model.Conversation, fragment *model.PreferenceSnapshot) (*model.Conversation, error) {
	merged := model.MergePreferences(&conv.UserPreferences, fragment)
	conv.UserPreferences = *merged
	conv.UpdatedAt = time.Now().UTC()

	query := `UPDATE conversations SET user_preferences = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, conv.UserPreferences, conv.UpdatedAt, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return conv, nil
}

// AppendRecommendations appends newly surfaced entity IDs to the session's
// recommendation history. IDs already present are skipped so the history
// keeps exactly one entry per entity with its first-seen timestamp.
func (r *ConversationRepository) AppendRecommendations(ctx context.Context, conv *model.Conversation, propertyIDs, launchIDs []int64) (*model.Conversation, error) {
	now := time.Now().UTC()

	conv.RecommendedProperties = appendNewEntries(conv.RecommendedProperties, propertyIDs, now)
	conv.RecommendedLaunches = appendNewEntries(conv.RecommendedLaunches, launchIDs, now)
	conv.UpdatedAt = now

	query := `
		UPDATE conversations
		SET recommended_properties = $1, recommended_launches = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query,
		conv.RecommendedProperties, conv.RecommendedLaunches, conv.UpdatedAt, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to append recommendations: %w", err)
	}
	return conv, nil
}

func appendNewEntries(history model.RecommendationList, ids []int64, now time.Time) model.RecommendationList {
	if len(ids) == 0 {
		return history
	}
	seen := make(map[int64]bool, len(history))
	for _, entry := range history {
		seen[entry.EntityID] = true
	}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		history = append(history, model.RecommendationEntry{
			EntityID:       id,
			RelevanceScore: 1,
			RecommendedAt:  now,
		})
	}
	return history
}

// MarkLeadCaptured performs the one-way completed transition after the lead
// row is durable
func (r *ConversationRepository) MarkLeadCaptured(ctx context.Context, conv *model.Conversation, leadID uuid.UUID) (*model.Conversation, error) {
	now := time.Now().UTC()
	conv.LeadCaptured = true
	conv.LeadID = &leadID
	conv.Status = model.ConversationStatusCompleted
	conv.IsActive = false
	conv.UpdatedAt = now

	query := `
		UPDATE conversations
		SET lead_captured = true, lead_id = $1, status = $2, is_active = false, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, leadID, conv.Status, now, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark lead captured: %w", err)
	}
	return conv, nil
}

// List returns paginated conversation summaries matching the filter
func (r *ConversationRepository) List(ctx context.Context, filter model.ConversationFilter) ([]model.ConversationSummary, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filter.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.LeadCaptured != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("lead_captured = $%d", argIndex))
		args = append(args, *filter.LeadCaptured)
		argIndex++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM conversations WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	selectQuery := fmt.Sprintf(`
		SELECT id, session_id, user_id, status, lead_captured, total_messages,
		       first_message_at, last_message_at, created_at
		FROM conversations
		WHERE %s
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, offset)

	var summaries []model.ConversationSummary
	if err := r.db.SelectContext(ctx, &summaries, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}

	return summaries, total, nil
}

// Delete removes a conversation by ID
func (r *ConversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// StatusCount is one row of the per-status rollup
type StatusCount struct {
	Status   string `db:"status"`
	Count    int    `db:"count"`
	Messages int    `db:"messages"`
}

// CountByStatus returns conversation and message counts grouped by status
func (r *ConversationRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	query := `
		SELECT status, COUNT(*) AS count, COALESCE(SUM(total_messages), 0) AS messages
		FROM conversations
		GROUP BY status
	`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	return counts, nil
}

// CountLeadsCaptured returns the number of conversations converted to leads
func (r *ConversationRepository) CountLeadsCaptured(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM conversations WHERE lead_captured = true`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count captured leads: %w", err)
	}
	return count, nil
}

// DailyCounts buckets conversation creation into calendar days since the
// given time. Days with no conversations produce no row.
func (r *ConversationRepository) DailyCounts(ctx context.Context, since time.Time) ([]model.DailyCount, error) {
	var counts []model.DailyCount
	query := `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date, COUNT(*) AS count
		FROM conversations
		WHERE created_at >= $1
		GROUP BY 1
		ORDER BY 1
	`
	rows, err := r.db.QueryxContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to bucket daily counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dc model.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

// TopRecommendedProperties returns the most frequently recommended property
// IDs across all conversations, ties broken by earliest first recommendation
func (r *ConversationRepository) TopRecommendedProperties(ctx context.Context, limit int) ([]model.RecommendedPropertyCount, error) {
	query := `
		SELECT (elem->>'entity_id')::bigint AS property_id,
		       COUNT(*) AS count,
		       MIN((elem->>'recommended_at')::timestamptz) AS first_at
		FROM conversations, jsonb_array_elements(recommended_properties) AS elem
		GROUP BY 1
		ORDER BY count DESC, first_at ASC
		LIMIT $1
	`
	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate recommendations: %w", err)
	}
	defer rows.Close()

	var results []model.RecommendedPropertyCount
	for rows.Next() {
		var rc model.RecommendedPropertyCount
		var firstAt time.Time
		if err := rows.Scan(&rc.PropertyID, &rc.Count, &firstAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation count: %w", err)
		}
		results = append(results, rc)
	}
	return results, rows.Err()
}
