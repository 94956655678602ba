package service

import (
	"context"
	"fmt"
	"strings"

	"estatechat/internal/model"
	"estatechat/internal/utils"
)

// AIPreferenceExtractor derives preference fragments from chat messages
// using an OpenAI-compatible model
type AIPreferenceExtractor struct {
	aiClient *OpenAIClient
}

// NewAIPreferenceExtractor creates a new AI-backed preference extractor
func NewAIPreferenceExtractor(aiClient *OpenAIClient) *AIPreferenceExtractor {
	return &AIPreferenceExtractor{aiClient: aiClient}
}

const extractorSystemPrompt = `You are a real estate assistant for the Egyptian property market. Extract structured buyer preferences from the user's message.

Return a JSON object with ONLY the fields actually mentioned in the message:
- budget: {"min": number, "max": number, "currency": "EGP"} - amounts in EGP unless another currency is named. "under 5M" means max 5000000. "5M" alone means max 5000000.
- location: {"city": string, "district": string} - lowercase city/compound names (e.g. "new cairo", "sheikh zayed", "north coast")
- property_type: one of "apartment", "villa", "townhouse", "duplex", "penthouse", "chalet", "studio"
- purpose: "buy" or "rent"
- bedrooms: {"min": integer} - "3 bedroom" means min 3
- bathrooms: {"min": integer}
- area: {"min": number, "max": number} - square meters
- amenities: array of requested features (e.g. ["pool", "garden", "security"])
- keywords: array of search keywords from the message (e.g. ["sea view", "finished", "quiet"])

Rules:
- Respond ONLY with valid JSON
- Omit every field the message does not mention; an empty message of intent gives {}
- "5M" = 5000000, "750K" = 750000
- "flat" and "unit" mean "apartment"; "compound house" means "villa"

Examples:
Message: "I want a 3 bedroom apartment under 5,000,000 EGP"
Response: {"bedrooms": {"min": 3}, "property_type": "apartment", "budget": {"max": 5000000, "currency": "EGP"}, "keywords": ["apartment"]}

Message: "in New Cairo"
Response: {"location": {"city": "new cairo"}}

Message: "something with a pool and garden to rent"
Response: {"purpose": "rent", "amenities": ["pool", "garden"]}

Message: "thanks, that looks great"
Response: {}`

// Extract derives a partial preference fragment from one inbound message.
// Returns an empty fragment when the message carries no intent or when the
// AI client is not configured.
func (e *AIPreferenceExtractor) Extract(ctx context.Context, messageText string) (*model.PreferenceSnapshot, error) {
	messageText = strings.TrimSpace(messageText)
	if messageText == "" {
		return &model.PreferenceSnapshot{}, nil
	}

	if !e.aiClient.IsEnabled() {
		return &model.PreferenceSnapshot{}, nil
	}

	req := ChatCompletionRequest{
		Messages: []APIMessage{
			{Role: "system", Content: extractorSystemPrompt},
			{Role: "user", Content: messageText},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	resp, err := e.aiClient.ChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("preference extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from completion API")
	}

	var fragment model.PreferenceSnapshot
	content := resp.Choices[0].Message.Content
	if err := utils.ParseAIJSON(content, &fragment); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	if err := validateFragment(&fragment); err != nil {
		return nil, fmt.Errorf("extraction validation failed: %w", err)
	}

	normalizeFragment(&fragment)
	return &fragment, nil
}

// validateFragment applies business-rule bounds to the AI output
func validateFragment(f *model.PreferenceSnapshot) error {
	if f.Budget != nil && f.Budget.Min != nil && f.Budget.Max != nil {
		if *f.Budget.Min > *f.Budget.Max {
			return fmt.Errorf("budget min (%f) cannot exceed budget max (%f)", *f.Budget.Min, *f.Budget.Max)
		}
	}
	if f.Bedrooms != nil && f.Bedrooms.Min != nil && (*f.Bedrooms.Min < 0 || *f.Bedrooms.Min > 15) {
		return fmt.Errorf("bedrooms must be between 0 and 15")
	}
	if f.Bathrooms != nil && f.Bathrooms.Min != nil && (*f.Bathrooms.Min < 0 || *f.Bathrooms.Min > 15) {
		return fmt.Errorf("bathrooms must be between 0 and 15")
	}
	if f.PropertyType != nil {
		validTypes := map[string]bool{
			"apartment": true, "villa": true, "townhouse": true, "duplex": true,
			"penthouse": true, "chalet": true, "studio": true,
		}
		if !validTypes[strings.ToLower(*f.PropertyType)] {
			return fmt.Errorf("invalid property_type: %s", *f.PropertyType)
		}
	}
	if f.Purpose != nil {
		p := strings.ToLower(*f.Purpose)
		if p != "buy" && p != "rent" {
			return fmt.Errorf("invalid purpose: %s", *f.Purpose)
		}
	}
	return nil
}

// normalizeFragment lowercases enumerated fields so merging and filtering
// compare like with like
func normalizeFragment(f *model.PreferenceSnapshot) {
	if f.PropertyType != nil {
		t := strings.ToLower(strings.TrimSpace(*f.PropertyType))
		f.PropertyType = &t
	}
	if f.Purpose != nil {
		p := strings.ToLower(strings.TrimSpace(*f.Purpose))
		f.Purpose = &p
	}
	if f.Location != nil {
		if f.Location.City != nil {
			c := strings.ToLower(strings.TrimSpace(*f.Location.City))
			f.Location.City = &c
		}
		if f.Location.District != nil {
			d := strings.ToLower(strings.TrimSpace(*f.Location.District))
			f.Location.District = &d
		}
	}
}
