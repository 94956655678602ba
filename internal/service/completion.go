package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"estatechat/internal/model"
)

// OpenAICompletionProvider generates the assistant reply from the transcript
// and the candidate context. Failures never escape this boundary: the caller
// always receives a usable reply plus a fallback flag.
type OpenAICompletionProvider struct {
	aiClient      *OpenAIClient
	fallbackReply string
	timeout       time.Duration
	windowSize    int
}

// NewOpenAICompletionProvider creates a new completion provider
func NewOpenAICompletionProvider(aiClient *OpenAIClient, fallbackReply string, timeout time.Duration, windowSize int) *OpenAICompletionProvider {
	return &OpenAICompletionProvider{
		aiClient:      aiClient,
		fallbackReply: fallbackReply,
		timeout:       timeout,
		windowSize:    windowSize,
	}
}

const completionSystemPrompt = `You are a friendly real estate consultant for the Egyptian market. You help visitors find properties and new development launches matching their needs.

Guidelines:
- Answer in the language the visitor writes in (Arabic or English)
- When candidate properties are provided below, present the best ones briefly: title, price, location, bedrooms
- When no candidates are provided, ask one clarifying question about budget, location or property type
- Keep replies short and conversational, at most three sentences plus the property mentions
- Never invent properties that are not in the candidate list
- If the visitor seems ready to proceed, suggest leaving their contact details so an agent can follow up`

// Reply produces the assistant message for one chat turn
func (p *OpenAICompletionProvider) Reply(ctx context.Context, transcript []model.ChatMessage, properties []model.PropertySummary, launches []model.LaunchSummary) (string, bool) {
	if !p.aiClient.IsEnabled() {
		return p.fallbackReply, true
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := []APIMessage{
		{Role: "system", Content: completionSystemPrompt + "\n\n" + p.candidateContext(properties, launches)},
	}

	window := transcript
	if len(window) > p.windowSize {
		window = window[len(window)-p.windowSize:]
	}
	for _, msg := range window {
		messages = append(messages, APIMessage{Role: msg.Role, Content: msg.Content})
	}

	resp, err := p.aiClient.ChatCompletion(ctx, ChatCompletionRequest{Messages: messages})
	if err != nil {
		log.Printf("Warning: chat completion failed, using fallback reply: %v", err)
		return p.fallbackReply, true
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		log.Printf("Warning: chat completion returned no content, using fallback reply")
		return p.fallbackReply, true
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), false
}

// candidateContext serializes the current candidates for the model
func (p *OpenAICompletionProvider) candidateContext(properties []model.PropertySummary, launches []model.LaunchSummary) string {
	var sb strings.Builder

	if len(properties) == 0 && len(launches) == 0 {
		sb.WriteString("No matching candidates were found for the current preferences.")
		return sb.String()
	}

	if len(properties) > 0 {
		sb.WriteString("Candidate properties:\n")
		for _, prop := range properties {
			sb.WriteString("- ")
			sb.WriteString(formatProperty(prop))
			sb.WriteString("\n")
		}
	}
	if len(launches) > 0 {
		sb.WriteString("Candidate launches:\n")
		for _, l := range launches {
			sb.WriteString("- ")
			sb.WriteString(formatLaunch(l))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatProperty(p model.PropertySummary) string {
	parts := []string{fmt.Sprintf("#%d", p.ID)}
	if p.Title != nil {
		parts = append(parts, *p.Title)
	}
	if p.PropertyType != nil {
		parts = append(parts, *p.PropertyType)
	}
	if p.Bedrooms != nil {
		parts = append(parts, fmt.Sprintf("%d bed", *p.Bedrooms))
	}
	if p.Price != nil {
		currency := "EGP"
		if p.Currency != nil {
			currency = *p.Currency
		}
		parts = append(parts, fmt.Sprintf("%.0f %s", *p.Price, currency))
	}
	if p.City != nil {
		parts = append(parts, *p.City)
	}
	return strings.Join(parts, ", ")
}

func formatLaunch(l model.LaunchSummary) string {
	parts := []string{fmt.Sprintf("#%d", l.ID)}
	if l.Name != nil {
		parts = append(parts, *l.Name)
	}
	if l.Developer != nil {
		parts = append(parts, "by "+*l.Developer)
	}
	if l.PriceFrom != nil {
		currency := "EGP"
		if l.Currency != nil {
			currency = *l.Currency
		}
		parts = append(parts, fmt.Sprintf("from %.0f %s", *l.PriceFrom, currency))
	}
	if l.City != nil {
		parts = append(parts, *l.City)
	}
	return strings.Join(parts, ", ")
}
