package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"estatechat/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCompletionProvider_DisabledClientFallsBack(t *testing.T) {
	provider := NewOpenAICompletionProvider(nil, "Please try again shortly.", 5*time.Second, 20)

	reply, fallback := provider.Reply(context.Background(), nil, nil, nil)

	assert.True(t, fallback)
	assert.Equal(t, "Please try again shortly.", reply)
}

func TestCompletionProvider_CandidateContext(t *testing.T) {
	provider := NewOpenAICompletionProvider(nil, "fallback", 5*time.Second, 20)

	t.Run("empty candidates", func(t *testing.T) {
		out := provider.candidateContext(nil, nil)
		assert.Contains(t, out, "No matching candidates")
	})

	t.Run("properties and launches", func(t *testing.T) {
		properties := []model.PropertySummary{{
			ID:       12,
			Title:    str("Lake View Apartment"),
			Price:    f64(4_500_000),
			Bedrooms: i(3),
			City:     str("new cairo"),
		}}
		launches := []model.LaunchSummary{{
			ID:        5,
			Name:      str("Zed East"),
			Developer: str("Ora"),
			PriceFrom: f64(6_000_000),
		}}

		out := provider.candidateContext(properties, launches)

		assert.Contains(t, out, "Candidate properties:")
		assert.Contains(t, out, "#12, Lake View Apartment, 3 bed, 4500000 EGP, new cairo")
		assert.Contains(t, out, "Candidate launches:")
		assert.Contains(t, out, "#5, Zed East, by Ora, from 6000000 EGP")
	})
}

func TestFormatProperty_SkipsUnknownFields(t *testing.T) {
	out := formatProperty(model.PropertySummary{ID: 9})
	assert.Equal(t, "#9", out)
	assert.False(t, strings.Contains(out, "EGP"))
}
