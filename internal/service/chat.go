package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"estatechat/internal/model"
	"estatechat/internal/utils"

	"github.com/google/uuid"
)

// ErrLeadAlreadyCaptured is returned when capture is attempted on a
// conversation that already produced a lead
var ErrLeadAlreadyCaptured = errors.New("lead already captured for this conversation")

// ConversationStore is the persistence surface the chat engine needs from
// the conversation repository
type ConversationStore interface {
	FindOrCreate(ctx context.Context, sessionID string, userID *string) (*model.Conversation, error)
	GetBySessionID(ctx context.Context, sessionID string) (*model.Conversation, error)
	AppendMessage(ctx context.Context, conv *model.Conversation, msg model.ChatMessage) (*model.Conversation, error)
	UpdatePreferences(ctx context.Context, conv *model.Conversation, fragment *model.PreferenceSnapshot) (*model.Conversation, error)
	AppendRecommendations(ctx context.Context, conv *model.Conversation, propertyIDs, launchIDs []int64) (*model.Conversation, error)
	MarkLeadCaptured(ctx context.Context, conv *model.Conversation, leadID uuid.UUID) (*model.Conversation, error)
	List(ctx context.Context, filter model.ConversationFilter) ([]model.ConversationSummary, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LeadStore persists captured leads
type LeadStore interface {
	Create(ctx context.Context, lead *model.Lead) error
}

// EntityStore resolves recommended entity IDs back to live records
type EntityStore interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]model.Property, error)
	GetLaunchesByIDs(ctx context.Context, ids []int64) (map[int64]model.Launch, error)
}

// ChatService orchestrates one chat turn: load-or-create conversation,
// append the inbound message, extract and merge preferences, search, reply,
// and track recommendations.
type ChatService struct {
	conversations ConversationStore
	leads         LeadStore
	entities      EntityStore
	extractor     PreferenceExtractor
	searcher      SmartSearcher
	completions   CompletionProvider

	// Per-session serialization: every conversation write is a full-record
	// read-modify-write, so at most one orchestration may be in flight per
	// session. Distinct sessions are independent.
	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// NewChatService creates the chat orchestrator
func NewChatService(
	conversations ConversationStore,
	leads LeadStore,
	entities EntityStore,
	extractor PreferenceExtractor,
	searcher SmartSearcher,
	completions CompletionProvider,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		leads:         leads,
		entities:      entities,
		extractor:     extractor,
		searcher:      searcher,
		completions:   completions,
		sessionLocks:  make(map[string]*sync.Mutex),
	}
}

func (s *ChatService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessionLocks[sessionID] = lock
	}
	return lock
}

// SendMessage handles one inbound chat message end to end. Collaborator
// failures degrade to a fallback reply; the user's message is durable as
// soon as step one's append succeeds.
func (s *ChatService) SendMessage(ctx context.Context, req *model.ChatMessageRequest) (*model.ChatMessageResponse, error) {
	lock := s.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.conversations.FindOrCreate(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}

	conv, err = s.conversations.AppendMessage(ctx, conv, model.ChatMessage{
		Role:    model.RoleUser,
		Content: req.Message,
	})
	if err != nil {
		return nil, err
	}

	degraded := false

	fragment, err := s.extractor.Extract(ctx, req.Message)
	if err != nil {
		log.Printf("Warning: preference extraction failed for session %s: %v", req.SessionID, err)
		fragment = &model.PreferenceSnapshot{}
	}
	if !fragment.IsEmpty() {
		conv, err = s.conversations.UpdatePreferences(ctx, conv, fragment)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.searcher.Search(ctx, &conv.UserPreferences, req.Message)
	if err != nil {
		log.Printf("Warning: smart search failed for session %s: %v", req.SessionID, err)
		result = &SearchResult{}
		degraded = true
	}

	reply, fallback := s.completions.Reply(ctx, []model.ChatMessage(conv.Messages), result.Properties, result.Launches)

	propertyIDs := make([]int64, len(result.Properties))
	for i, p := range result.Properties {
		propertyIDs[i] = p.ID
	}
	launchIDs := make([]int64, len(result.Launches))
	for i, l := range result.Launches {
		launchIDs[i] = l.ID
	}

	conv, err = s.conversations.AppendMessage(ctx, conv, model.ChatMessage{
		Role:         model.RoleAssistant,
		Content:      reply,
		PropertyRefs: propertyIDs,
		LaunchRefs:   launchIDs,
	})
	if err != nil {
		return nil, err
	}

	conv, err = s.conversations.AppendRecommendations(ctx, conv, propertyIDs, launchIDs)
	if err != nil {
		return nil, err
	}

	return &model.ChatMessageResponse{
		Reply:          reply,
		Properties:     result.Properties,
		Launches:       result.Launches,
		SessionID:      conv.SessionID,
		ConversationID: conv.ID,
		Preferences:    &conv.UserPreferences,
		IsFallback:     fallback || degraded,
	}, nil
}

// GetHistory returns the transcript plus the hydrated recommendation history
func (s *ChatService) GetHistory(ctx context.Context, sessionID string) (*model.ChatHistoryResponse, error) {
	conv, err := s.conversations.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	hydratedProps, err := s.hydrateProperties(ctx, conv.RecommendedProperties)
	if err != nil {
		return nil, err
	}
	hydratedLaunches, err := s.hydrateLaunches(ctx, conv.RecommendedLaunches)
	if err != nil {
		return nil, err
	}

	return &model.ChatHistoryResponse{
		ConversationID:        conv.ID,
		Messages:              []model.ChatMessage(conv.Messages),
		Preferences:           &conv.UserPreferences,
		RecommendedProperties: hydratedProps,
		RecommendedLaunches:   hydratedLaunches,
	}, nil
}

// hydrateProperties expands stored references into live summaries,
// dropping entries whose property no longer exists and preserving the
// original recommendation order
func (s *ChatService) hydrateProperties(ctx context.Context, entries model.RecommendationList) ([]model.HydratedProperty, error) {
	hydrated := make([]model.HydratedProperty, 0, len(entries))
	if len(entries) == 0 {
		return hydrated, nil
	}

	byID, err := s.entities.GetByIDs(ctx, entries.EntityIDs())
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		prop, ok := byID[entry.EntityID]
		if !ok {
			continue // deleted since it was recommended
		}
		hydrated = append(hydrated, model.HydratedProperty{
			Property:       prop.Summary(),
			RelevanceScore: entry.RelevanceScore,
			RecommendedAt:  entry.RecommendedAt,
		})
	}
	return hydrated, nil
}

func (s *ChatService) hydrateLaunches(ctx context.Context, entries model.RecommendationList) ([]model.HydratedLaunch, error) {
	hydrated := make([]model.HydratedLaunch, 0, len(entries))
	if len(entries) == 0 {
		return hydrated, nil
	}

	byID, err := s.entities.GetLaunchesByIDs(ctx, entries.EntityIDs())
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		launch, ok := byID[entry.EntityID]
		if !ok {
			continue
		}
		hydrated = append(hydrated, model.HydratedLaunch{
			Launch:         launch.Summary(),
			RelevanceScore: entry.RelevanceScore,
			RecommendedAt:  entry.RecommendedAt,
		})
	}
	return hydrated, nil
}

// CaptureLead converts the conversation's accumulated preferences into a
// sales lead and completes the conversation. The conversation transition
// only happens after the lead row is durable.
func (s *ChatService) CaptureLead(ctx context.Context, req *model.LeadCaptureRequest) (*model.Lead, error) {
	lock := s.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.conversations.GetBySessionID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if conv.LeadCaptured {
		return nil, ErrLeadAlreadyCaptured
	}

	prefs := conv.UserPreferences

	notes := ""
	if req.Message != nil && *req.Message != "" {
		notes = *req.Message
	} else if dump, err := utils.PrettyPrintJSON(prefs); err == nil {
		notes = "Captured preferences:\n" + dump
	}

	lead := &model.Lead{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Notes:          notes,
		Source:         model.LeadSourceChat,
		Status:         model.LeadStatusNew,
		Priority:       model.LeadPriorityHigh,
		ConversationID: &conv.ID,
	}
	if prefs.Budget != nil {
		lead.BudgetMin = prefs.Budget.Min
		lead.BudgetMax = prefs.Budget.Max
		lead.Currency = prefs.Budget.Currency
	}
	if prefs.Location != nil {
		lead.City = prefs.Location.City
		lead.District = prefs.Location.District
	}
	lead.PropertyType = prefs.PropertyType
	lead.Purpose = prefs.Purpose
	if prefs.Bedrooms != nil {
		lead.BedroomsMin = prefs.Bedrooms.Min
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, err
	}

	if _, err := s.conversations.MarkLeadCaptured(ctx, conv, lead.ID); err != nil {
		// The lead exists but the conversation transition failed; report it
		// so the next capture attempt does not silently duplicate the lead.
		log.Printf("Error: lead %s created but conversation %s not completed: %v", lead.ID, conv.ID, err)
		return nil, err
	}

	return lead, nil
}

// ListConversations returns paginated admin summaries
func (s *ChatService) ListConversations(ctx context.Context, filter model.ConversationFilter) (*model.ConversationListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	summaries, total, err := s.conversations.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	return &model.ConversationListResponse{
		Conversations: summaries,
		Total:         total,
		Page:          filter.Page,
		PageSize:      filter.Limit,
		TotalPages:    totalPages,
	}, nil
}

// DeleteConversation removes a conversation by ID
func (s *ChatService) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	return s.conversations.Delete(ctx, id)
}
