package service

import (
	"context"

	"estatechat/internal/model"
)

// PreferenceExtractor turns one inbound message into a partial preference
// fragment. Implementations may fail; the orchestrator treats any error as
// an empty fragment.
type PreferenceExtractor interface {
	Extract(ctx context.Context, messageText string) (*model.PreferenceSnapshot, error)
}

// SearchResult carries the ranked candidates for one chat turn
type SearchResult struct {
	Properties []model.PropertySummary
	Launches   []model.LaunchSummary
}

// SmartSearcher ranks candidate properties and launches against the
// accumulated preferences and the raw message text
type SmartSearcher interface {
	Search(ctx context.Context, prefs *model.PreferenceSnapshot, messageText string) (*SearchResult, error)
}

// CompletionProvider produces the assistant reply for a transcript with
// candidate context. It must degrade gracefully: on any internal failure it
// returns fallback=true with a generic reply instead of an error.
type CompletionProvider interface {
	Reply(ctx context.Context, transcript []model.ChatMessage, properties []model.PropertySummary, launches []model.LaunchSummary) (message string, fallback bool)
}
