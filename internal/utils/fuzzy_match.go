package utils

import (
	"fmt"
	"strings"
)

// amenityAliases maps a search keyword to the amenity spellings that
// commonly appear in listing data
var amenityAliases = map[string][]string{
	"pool":      {"Swimming pool", "Pool", "Private pool"},
	"gym":       {"Gym", "Gymnasium", "Fitness"},
	"garden":    {"Garden", "Private garden", "Landscaped garden"},
	"parking":   {"Parking", "Garage", "Covered parking"},
	"security":  {"Security", "24-hour security", "Gated community"},
	"elevator":  {"Elevator", "Lift"},
	"balcony":   {"Balcony", "Terrace", "Roof terrace"},
	"aircon":    {"Air conditioner", "Air conditioning", "Central AC", "A/C"},
	"kitchen":   {"Kitchen", "Fitted kitchen", "Open kitchen"},
	"clubhouse": {"Clubhouse", "Club house", "Community center"},
	"sea view":  {"Sea view", "Lagoon view", "Water view"},
	"furnished": {"Furnished", "Fully furnished", "Semi furnished"},
}

// MatchesAmenity reports whether a search term fuzzy-matches an amenity name
func MatchesAmenity(searchTerm, amenity string) bool {
	searchLower := strings.ToLower(strings.TrimSpace(searchTerm))
	amenityLower := strings.ToLower(strings.TrimSpace(amenity))

	if searchLower == amenityLower || strings.Contains(amenityLower, searchLower) {
		return true
	}

	for key, values := range amenityAliases {
		if !strings.Contains(searchLower, key) {
			continue
		}
		for _, alias := range values {
			if strings.Contains(amenityLower, strings.ToLower(alias)) {
				return true
			}
		}
	}

	return false
}

// BuildAmenityConditions builds JSONB conditions for fuzzy amenity matching.
// Each search term becomes one EXISTS clause ORing its known aliases.
// Returns SQL conditions, their parameters and the next free parameter index.
func BuildAmenityConditions(searchTerms []string, paramIndex int) ([]string, []interface{}, int) {
	if len(searchTerms) == 0 {
		return nil, nil, paramIndex
	}

	var conditions []string
	var params []interface{}

	for _, term := range searchTerms {
		termLower := strings.ToLower(strings.TrimSpace(term))
		if termLower == "" {
			continue
		}

		patterns := []string{term}
		for key, values := range amenityAliases {
			if strings.Contains(termLower, key) {
				patterns = values
				break
			}
		}

		var orConditions []string
		for _, pattern := range patterns {
			orConditions = append(orConditions, fmt.Sprintf("elem ILIKE $%d", paramIndex))
			params = append(params, "%"+pattern+"%")
			paramIndex++
		}

		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(amenities) elem WHERE "+strings.Join(orConditions, " OR ")+")")
	}

	return conditions, params, paramIndex
}
