package service

import (
	"context"
	"log"
	"strings"

	"estatechat/internal/model"
	"estatechat/internal/repository"
)

// SmartSearchService ranks candidate properties and launches against the
// accumulated preference snapshot
type SmartSearchService struct {
	properties    *repository.PropertyRepository
	ranker        *Ranker
	aiClient      *OpenAIClient
	maxCandidates int
	maxLaunches   int
}

// NewSmartSearchService creates a new smart search service
func NewSmartSearchService(
	properties *repository.PropertyRepository,
	ranker *Ranker,
	aiClient *OpenAIClient,
	maxCandidates, maxLaunches int,
) *SmartSearchService {
	return &SmartSearchService{
		properties:    properties,
		ranker:        ranker,
		aiClient:      aiClient,
		maxCandidates: maxCandidates,
		maxLaunches:   maxLaunches,
	}
}

// Search returns ranked property and launch candidates for one chat turn
func (s *SmartSearchService) Search(ctx context.Context, prefs *model.PreferenceSnapshot, messageText string) (*SearchResult, error) {
	keywords := s.buildKeywords(prefs, messageText)

	// Over-fetch so the ranker has something to reorder
	candidates, err := s.properties.Search(ctx, prefs, keywords, s.maxCandidates*4)
	if err != nil {
		return nil, err
	}

	// Backfill from vector similarity when the filtered search comes up short
	if len(candidates) < s.maxCandidates && s.aiClient.IsEnabled() {
		candidates = s.backfillSemantic(ctx, candidates, messageText)
	}

	ranked := s.ranker.Rank(candidates, prefs)
	if len(ranked) > s.maxCandidates {
		ranked = ranked[:s.maxCandidates]
	}

	launches, err := s.properties.SearchLaunches(ctx, prefs, s.maxLaunches)
	if err != nil {
		return nil, err
	}

	launchSummaries := make([]model.LaunchSummary, 0, len(launches))
	for i := range launches {
		summary := launches[i].Summary()
		// Repository order is newest first; decay score with position
		summary.Score = 1.0 - float64(i)/float64(len(launches)+1)
		launchSummaries = append(launchSummaries, summary)
	}

	return &SearchResult{
		Properties: ranked,
		Launches:   launchSummaries,
	}, nil
}

// buildKeywords combines extracted keywords with the raw message for the
// full-text ranking pass
func (s *SmartSearchService) buildKeywords(prefs *model.PreferenceSnapshot, messageText string) []string {
	var keywords []string
	if prefs != nil {
		keywords = append(keywords, prefs.Keywords...)
	}
	if trimmed := strings.TrimSpace(messageText); trimmed != "" {
		keywords = append(keywords, trimmed)
	}
	return keywords
}

// backfillSemantic appends vector-similarity matches not already present
func (s *SmartSearchService) backfillSemantic(ctx context.Context, candidates []model.Property, messageText string) []model.Property {
	embeddings, err := s.aiClient.CreateEmbeddings(ctx, []string{messageText})
	if err != nil || len(embeddings) == 0 || len(embeddings[0]) == 0 {
		if err != nil {
			log.Printf("Warning: semantic backfill embedding failed: %v", err)
		}
		return candidates
	}

	semantic, err := s.properties.VectorSearch(ctx, embeddings[0], s.maxCandidates)
	if err != nil {
		log.Printf("Warning: semantic backfill search failed: %v", err)
		return candidates
	}

	seen := make(map[int64]bool, len(candidates))
	for _, c := range candidates {
		seen[c.ID] = true
	}
	for _, p := range semantic {
		if !seen[p.ID] {
			candidates = append(candidates, p)
		}
	}
	return candidates
}
