package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"estatechat/internal/model"
	"estatechat/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConversationStore is an in-memory ConversationStore keyed by session ID
type fakeConversationStore struct {
	conversations map[string]*model.Conversation

	appendErr      error
	preferencesErr error
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{conversations: make(map[string]*model.Conversation)}
}

func (f *fakeConversationStore) FindOrCreate(_ context.Context, sessionID string, userID *string) (*model.Conversation, error) {
	if conv, ok := f.conversations[sessionID]; ok {
		return conv, nil
	}
	conv := &model.Conversation{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Status:    model.ConversationStatusActive,
		IsActive:  true,
	}
	f.conversations[sessionID] = conv
	return conv, nil
}

func (f *fakeConversationStore) GetBySessionID(_ context.Context, sessionID string) (*model.Conversation, error) {
	conv, ok := f.conversations[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return conv, nil
}

func (f *fakeConversationStore) AppendMessage(_ context.Context, conv *model.Conversation, msg model.ChatMessage) (*model.Conversation, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	msg.Timestamp = time.Now().UTC()
	conv.Messages = append(conv.Messages, msg)
	conv.TotalMessages = len(conv.Messages)
	return conv, nil
}

func (f *fakeConversationStore) UpdatePreferences(_ context.Context, conv *model.Conversation, fragment *model.PreferenceSnapshot) (*model.Conversation, error) {
	if f.preferencesErr != nil {
		return nil, f.preferencesErr
	}
	conv.UserPreferences = *model.MergePreferences(&conv.UserPreferences, fragment)
	return conv, nil
}

func (f *fakeConversationStore) AppendRecommendations(_ context.Context, conv *model.Conversation, propertyIDs, launchIDs []int64) (*model.Conversation, error) {
	now := time.Now().UTC()
	conv.RecommendedProperties = appendFakeEntries(conv.RecommendedProperties, propertyIDs, now)
	conv.RecommendedLaunches = appendFakeEntries(conv.RecommendedLaunches, launchIDs, now)
	return conv, nil
}

func appendFakeEntries(history model.RecommendationList, ids []int64, now time.Time) model.RecommendationList {
	for _, id := range ids {
		if history.Contains(id) {
			continue
		}
		history = append(history, model.RecommendationEntry{EntityID: id, RelevanceScore: 1, RecommendedAt: now})
	}
	return history
}

func (f *fakeConversationStore) MarkLeadCaptured(_ context.Context, conv *model.Conversation, leadID uuid.UUID) (*model.Conversation, error) {
	conv.LeadCaptured = true
	conv.LeadID = &leadID
	conv.Status = model.ConversationStatusCompleted
	conv.IsActive = false
	return conv, nil
}

func (f *fakeConversationStore) List(_ context.Context, filter model.ConversationFilter) ([]model.ConversationSummary, int, error) {
	summaries := make([]model.ConversationSummary, 0, len(f.conversations))
	for _, conv := range f.conversations {
		summaries = append(summaries, model.ConversationSummary{
			ID:            conv.ID,
			SessionID:     conv.SessionID,
			Status:        conv.Status,
			LeadCaptured:  conv.LeadCaptured,
			TotalMessages: conv.TotalMessages,
		})
	}
	return summaries, len(summaries), nil
}

func (f *fakeConversationStore) Delete(_ context.Context, id uuid.UUID) error {
	for sessionID, conv := range f.conversations {
		if conv.ID == id {
			delete(f.conversations, sessionID)
			return nil
		}
	}
	return repository.ErrNotFound
}

// fakeLeadStore records created leads
type fakeLeadStore struct {
	leads     []*model.Lead
	createErr error
}

func (f *fakeLeadStore) Create(_ context.Context, lead *model.Lead) error {
	if f.createErr != nil {
		return f.createErr
	}
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	f.leads = append(f.leads, lead)
	return nil
}

// fakeEntityStore serves a fixed property/launch catalog
type fakeEntityStore struct {
	properties map[int64]model.Property
	launches   map[int64]model.Launch
}

func (f *fakeEntityStore) GetByIDs(_ context.Context, ids []int64) (map[int64]model.Property, error) {
	found := make(map[int64]model.Property)
	for _, id := range ids {
		if prop, ok := f.properties[id]; ok {
			found[id] = prop
		}
	}
	return found, nil
}

func (f *fakeEntityStore) GetLaunchesByIDs(_ context.Context, ids []int64) (map[int64]model.Launch, error) {
	found := make(map[int64]model.Launch)
	for _, id := range ids {
		if launch, ok := f.launches[id]; ok {
			found[id] = launch
		}
	}
	return found, nil
}

// Collaborator fakes

type fakeExtractor struct {
	fragment *model.PreferenceSnapshot
	err      error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (*model.PreferenceSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.fragment == nil {
		return &model.PreferenceSnapshot{}, nil
	}
	return f.fragment, nil
}

type fakeSearcher struct {
	result *SearchResult
	err    error
}

func (f *fakeSearcher) Search(_ context.Context, _ *model.PreferenceSnapshot, _ string) (*SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &SearchResult{}, nil
	}
	return f.result, nil
}

type fakeCompletions struct {
	reply    string
	fallback bool
}

func (f *fakeCompletions) Reply(_ context.Context, _ []model.ChatMessage, _ []model.PropertySummary, _ []model.LaunchSummary) (string, bool) {
	return f.reply, f.fallback
}

func newTestChatService(conversations *fakeConversationStore, leads *fakeLeadStore, entities *fakeEntityStore, extractor PreferenceExtractor, searcher SmartSearcher, completions CompletionProvider) *ChatService {
	if extractor == nil {
		extractor = &fakeExtractor{}
	}
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	if completions == nil {
		completions = &fakeCompletions{reply: "Here are some options."}
	}
	return NewChatService(conversations, leads, entities, extractor, searcher, completions)
}

func TestChatService_SendMessage_AppendsBothMessages(t *testing.T) {
	store := newFakeConversationStore()
	svc := newTestChatService(store, &fakeLeadStore{}, &fakeEntityStore{}, nil, nil, nil)

	resp, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{
		SessionID: "s1",
		Message:   "I want an apartment in New Cairo",
	})
	require.NoError(t, err)

	conv := store.conversations["s1"]
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "I want an apartment in New Cairo", conv.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Here are some options.", resp.Reply)
	assert.False(t, resp.IsFallback)
	assert.Equal(t, conv.ID, resp.ConversationID)
}

func TestChatService_SendMessage_PreferencesAccumulate(t *testing.T) {
	store := newFakeConversationStore()
	leads := &fakeLeadStore{}
	entities := &fakeEntityStore{}

	// First turn establishes a budget
	first := newTestChatService(store, leads, entities, &fakeExtractor{
		fragment: &model.PreferenceSnapshot{
			Budget: &model.BudgetRange{Max: f64(5_000_000), Currency: str("EGP")},
		},
	}, nil, nil)
	_, err := first.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "budget 5M EGP"})
	require.NoError(t, err)

	// Second turn adds a location without restating the budget
	second := newTestChatService(store, leads, entities, &fakeExtractor{
		fragment: &model.PreferenceSnapshot{
			Location: &model.LocationPreference{City: str("new cairo")},
		},
	}, nil, nil)
	resp, err := second.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "in New Cairo"})
	require.NoError(t, err)

	require.NotNil(t, resp.Preferences.Budget)
	assert.Equal(t, 5_000_000.0, *resp.Preferences.Budget.Max, "earlier budget must survive later turns")
	require.NotNil(t, resp.Preferences.Location)
	assert.Equal(t, "new cairo", *resp.Preferences.Location.City)
}

func TestChatService_SendMessage_ExtractorFailureDegrades(t *testing.T) {
	store := newFakeConversationStore()
	svc := newTestChatService(store, &fakeLeadStore{}, &fakeEntityStore{},
		&fakeExtractor{err: errors.New("model unavailable")}, nil, nil)

	resp, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err, "extractor failure must not fail the turn")

	conv := store.conversations["s1"]
	assert.Len(t, conv.Messages, 2, "user message stays durable and a reply is still produced")
	assert.True(t, conv.UserPreferences.IsEmpty())
	assert.NotEmpty(t, resp.Reply)
}

func TestChatService_SendMessage_SearchFailureFallsBack(t *testing.T) {
	store := newFakeConversationStore()
	svc := newTestChatService(store, &fakeLeadStore{}, &fakeEntityStore{},
		nil, &fakeSearcher{err: errors.New("db down")}, nil)

	resp, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	assert.True(t, resp.IsFallback)
	assert.Empty(t, resp.Properties)
	assert.Len(t, store.conversations["s1"].Messages, 2)
}

func TestChatService_SendMessage_CompletionFallbackFlag(t *testing.T) {
	store := newFakeConversationStore()
	svc := newTestChatService(store, &fakeLeadStore{}, &fakeEntityStore{},
		nil, nil, &fakeCompletions{reply: "Sorry, try again.", fallback: true})

	resp, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	assert.True(t, resp.IsFallback)
	assert.Equal(t, "Sorry, try again.", resp.Reply)
	// The fallback reply is still part of the durable transcript
	conv := store.conversations["s1"]
	assert.Equal(t, "Sorry, try again.", conv.Messages[1].Content)
}

func TestChatService_SendMessage_RecommendationsDeduplicated(t *testing.T) {
	store := newFakeConversationStore()
	searcher := &fakeSearcher{result: &SearchResult{
		Properties: []model.PropertySummary{{ID: 10}, {ID: 20}},
	}}
	svc := newTestChatService(store, &fakeLeadStore{}, &fakeEntityStore{}, nil, searcher, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "first"})
	require.NoError(t, err)

	firstSeen := store.conversations["s1"].RecommendedProperties[0].RecommendedAt

	// Same property recommended again plus a new one
	searcher.result = &SearchResult{Properties: []model.PropertySummary{{ID: 10}, {ID: 30}}}
	_, err = svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "second"})
	require.NoError(t, err)

	history := store.conversations["s1"].RecommendedProperties
	require.Len(t, history, 3)
	assert.Equal(t, []int64{10, 20, 30}, history.EntityIDs(), "append order preserved, no duplicates")
	assert.Equal(t, firstSeen, history[0].RecommendedAt, "re-recommendation keeps first-seen timestamp")
}

func TestChatService_SendMessage_AssistantMessageCarriesRefs(t *testing.T) {
	store := newFakeConversationStore()
	searcher := &fakeSearcher{result: &SearchResult{
		Properties: []model.PropertySummary{{ID: 7}},
		Launches:   []model.LaunchSummary{{ID: 3}},
	}}
	svc := newTestChatService(store, &fakeLeadStore{}, &fakeEntityStore{}, nil, searcher, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "show me"})
	require.NoError(t, err)

	assistant := store.conversations["s1"].Messages[1]
	assert.Equal(t, []int64{7}, assistant.PropertyRefs)
	assert.Equal(t, []int64{3}, assistant.LaunchRefs)
}

func TestChatService_GetHistory_NotFound(t *testing.T) {
	svc := newTestChatService(newFakeConversationStore(), &fakeLeadStore{}, &fakeEntityStore{}, nil, nil, nil)

	_, err := svc.GetHistory(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestChatService_GetHistory_HydrationDropsDeadIDs(t *testing.T) {
	store := newFakeConversationStore()
	entities := &fakeEntityStore{
		properties: map[int64]model.Property{
			10: {ID: 10, Title: str("Garden View Apartment")},
			30: {ID: 30, Title: str("Zayed Villa")},
		},
	}
	searcher := &fakeSearcher{result: &SearchResult{
		Properties: []model.PropertySummary{{ID: 10}, {ID: 20}, {ID: 30}},
	}}
	svc := newTestChatService(store, &fakeLeadStore{}, entities, nil, searcher, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "show me"})
	require.NoError(t, err)

	history, err := svc.GetHistory(context.Background(), "s1")
	require.NoError(t, err)

	// Property 20 no longer resolves; order of the survivors is preserved
	require.Len(t, history.RecommendedProperties, 2)
	assert.Equal(t, int64(10), history.RecommendedProperties[0].Property.ID)
	assert.Equal(t, int64(30), history.RecommendedProperties[1].Property.ID)
	assert.Len(t, history.Messages, 2)
}

func TestChatService_CaptureLead_CopiesPreferences(t *testing.T) {
	store := newFakeConversationStore()
	leads := &fakeLeadStore{}
	extractor := &fakeExtractor{fragment: &model.PreferenceSnapshot{
		Budget:       &model.BudgetRange{Min: f64(2_000_000), Max: f64(4_000_000), Currency: str("EGP")},
		Location:     &model.LocationPreference{City: str("sheikh zayed")},
		PropertyType: str("villa"),
		Purpose:      str("buy"),
		Bedrooms:     &model.CountRange{Min: i(4)},
	}}
	svc := newTestChatService(store, leads, &fakeEntityStore{}, extractor, nil, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "4 bed villa in zayed, 2-4M"})
	require.NoError(t, err)

	lead, err := svc.CaptureLead(context.Background(), &model.LeadCaptureRequest{
		SessionID: "s1",
		Name:      "Omar Farouk",
		Email:     "omar@example.com",
		Phone:     "+201001234567",
	})
	require.NoError(t, err)

	assert.Equal(t, model.LeadSourceChat, lead.Source)
	assert.Equal(t, model.LeadStatusNew, lead.Status)
	assert.Equal(t, model.LeadPriorityHigh, lead.Priority)
	assert.Equal(t, 2_000_000.0, *lead.BudgetMin)
	assert.Equal(t, 4_000_000.0, *lead.BudgetMax)
	assert.Equal(t, "sheikh zayed", *lead.City)
	assert.Equal(t, "villa", *lead.PropertyType)
	assert.Equal(t, 4, *lead.BedroomsMin)
	assert.NotEmpty(t, lead.Notes, "notes carry the preference snapshot when no message is given")

	conv := store.conversations["s1"]
	assert.True(t, conv.LeadCaptured)
	assert.Equal(t, model.ConversationStatusCompleted, conv.Status)
	require.NotNil(t, conv.LeadID)
	assert.Equal(t, lead.ID, *conv.LeadID)
}

func TestChatService_CaptureLead_NotFound(t *testing.T) {
	svc := newTestChatService(newFakeConversationStore(), &fakeLeadStore{}, &fakeEntityStore{}, nil, nil, nil)

	_, err := svc.CaptureLead(context.Background(), &model.LeadCaptureRequest{
		SessionID: "missing",
		Name:      "Nora",
		Email:     "nora@example.com",
		Phone:     "+201000000000",
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestChatService_CaptureLead_DoubleCaptureRejected(t *testing.T) {
	store := newFakeConversationStore()
	leads := &fakeLeadStore{}
	svc := newTestChatService(store, leads, &fakeEntityStore{}, nil, nil, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	req := &model.LeadCaptureRequest{SessionID: "s1", Name: "Nora", Email: "nora@example.com", Phone: "+201000000000"}
	_, err = svc.CaptureLead(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CaptureLead(context.Background(), req)
	assert.ErrorIs(t, err, ErrLeadAlreadyCaptured)
	assert.Len(t, leads.leads, 1, "second capture must not create another lead")
}

func TestChatService_CaptureLead_LeadStoreFailureLeavesConversationActive(t *testing.T) {
	store := newFakeConversationStore()
	leads := &fakeLeadStore{createErr: errors.New("insert failed")}
	svc := newTestChatService(store, leads, &fakeEntityStore{}, nil, nil, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	_, err = svc.CaptureLead(context.Background(), &model.LeadCaptureRequest{
		SessionID: "s1", Name: "Nora", Email: "nora@example.com", Phone: "+201000000000",
	})
	require.Error(t, err)

	conv := store.conversations["s1"]
	assert.False(t, conv.LeadCaptured, "conversation must not complete when the lead insert fails")
	assert.Equal(t, model.ConversationStatusActive, conv.Status)
}

func TestChatService_CaptureLead_UsesCallerMessageAsNotes(t *testing.T) {
	store := newFakeConversationStore()
	leads := &fakeLeadStore{}
	svc := newTestChatService(store, leads, &fakeEntityStore{}, nil, nil, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	note := "Call me after 6pm"
	lead, err := svc.CaptureLead(context.Background(), &model.LeadCaptureRequest{
		SessionID: "s1", Name: "Nora", Email: "nora@example.com", Phone: "+201000000000",
		Message: &note,
	})
	require.NoError(t, err)
	assert.Equal(t, note, lead.Notes)
}

func TestChatService_ListConversations_Pagination(t *testing.T) {
	store := newFakeConversationStore()
	svc := newTestChatService(store, &fakeLeadStore{}, &fakeEntityStore{}, nil, nil, nil)

	for _, sessionID := range []string{"a", "b", "c"} {
		_, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: sessionID, Message: "hi"})
		require.NoError(t, err)
	}

	resp, err := svc.ListConversations(context.Background(), model.ConversationFilter{Page: 0, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.Page, "page normalizes to 1")
	assert.Equal(t, 2, resp.PageSize)
	assert.Equal(t, 2, resp.TotalPages)
}

func TestChatService_DeleteConversation(t *testing.T) {
	store := newFakeConversationStore()
	svc := newTestChatService(store, &fakeLeadStore{}, &fakeEntityStore{}, nil, nil, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatMessageRequest{SessionID: "s1", Message: "hi"})
	require.NoError(t, err)
	id := store.conversations["s1"].ID

	require.NoError(t, svc.DeleteConversation(context.Background(), id))
	assert.ErrorIs(t, svc.DeleteConversation(context.Background(), id), repository.ErrNotFound)
}

// Test helpers

func str(s string) *string { return &s }

func f64(v float64) *float64 { return &v }

func i(v int) *int { return &v }
