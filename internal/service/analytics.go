package service

import (
	"context"
	"fmt"
	"time"

	"estatechat/internal/model"
	"estatechat/internal/repository"
)

const (
	trendDays           = 7
	topRecommendedLimit = 10
)

// StatsStore is the aggregate-query surface the analytics service needs
type StatsStore interface {
	CountByStatus(ctx context.Context) ([]repository.StatusCount, error)
	CountLeadsCaptured(ctx context.Context) (int, error)
	DailyCounts(ctx context.Context, since time.Time) ([]model.DailyCount, error)
	TopRecommendedProperties(ctx context.Context, limit int) ([]model.RecommendedPropertyCount, error)
}

// AnalyticsService computes the admin stats rollup
type AnalyticsService struct {
	stats    StatsStore
	entities EntityStore
	now      func() time.Time
}

// NewAnalyticsService creates the analytics aggregator
func NewAnalyticsService(stats StatsStore, entities EntityStore) *AnalyticsService {
	return &AnalyticsService{
		stats:    stats,
		entities: entities,
		now:      time.Now,
	}
}

// ComputeStats aggregates conversation, lead, trend and recommendation
// rollups into a single snapshot
func (s *AnalyticsService) ComputeStats(ctx context.Context) (*model.ChatStats, error) {
	byStatus, err := s.stats.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.ChatStats{
		ConversionRate:     "0%",
		DailyConversations: []model.DailyCount{},
		TopRecommended:     []model.RecommendedPropertyCount{},
	}
	for _, row := range byStatus {
		stats.TotalConversations += row.Count
		stats.TotalMessages += row.Messages
		switch row.Status {
		case model.ConversationStatusActive:
			stats.ActiveConversations = row.Count
		case model.ConversationStatusCompleted:
			stats.CompletedConversations = row.Count
		case model.ConversationStatusAbandoned:
			stats.AbandonedConversations = row.Count
		}
	}

	leads, err := s.stats.CountLeadsCaptured(ctx)
	if err != nil {
		return nil, err
	}
	stats.LeadsCaptured = leads

	if stats.TotalConversations > 0 {
		stats.AvgMessagesPerConv = float64(stats.TotalMessages) / float64(stats.TotalConversations)
		rate := float64(leads) / float64(stats.TotalConversations) * 100
		stats.ConversionRate = fmt.Sprintf("%.1f%%", rate)
	}

	trend, err := s.dailyTrend(ctx)
	if err != nil {
		return nil, err
	}
	stats.DailyConversations = trend

	top, err := s.topRecommended(ctx)
	if err != nil {
		return nil, err
	}
	stats.TopRecommended = top

	return stats, nil
}

// dailyTrend returns the trailing week of daily conversation counts,
// zero-filled so every day appears even when nothing happened
func (s *AnalyticsService) dailyTrend(ctx context.Context) ([]model.DailyCount, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(trendDays - 1))

	rows, err := s.stats.DailyCounts(ctx, since)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Date] = row.Count
	}

	trend := make([]model.DailyCount, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		trend = append(trend, model.DailyCount{Date: day, Count: counts[day]})
	}
	return trend, nil
}

// topRecommended resolves the most-recommended property IDs to titles.
// Properties deleted since recommendation keep their count with a nil title.
func (s *AnalyticsService) topRecommended(ctx context.Context) ([]model.RecommendedPropertyCount, error) {
	top, err := s.stats.TopRecommendedProperties(ctx, topRecommendedLimit)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return []model.RecommendedPropertyCount{}, nil
	}

	ids := make([]int64, len(top))
	for i, entry := range top {
		ids[i] = entry.PropertyID
	}
	byID, err := s.entities.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range top {
		if prop, ok := byID[top[i].PropertyID]; ok {
			top[i].Title = prop.Title
		}
	}
	return top, nil
}
