package service

import (
	"math"
	"sort"
	"time"

	"estatechat/internal/model"
)

// Match reason constants
const (
	ReasonBedroomsMatch   = "Bedrooms match"
	ReasonBathroomsMatch  = "Bathrooms match"
	ReasonTypeMatch       = "Property type match"
	ReasonLocationMatch   = "Location match"
	ReasonPriceMatch      = "Price within budget"
	ReasonContentRelevant = "Content relevant"
	ReasonNewlyListed     = "Newly listed"
	ReasonGeneralMatch    = "General match"
)

// Ranker scores candidate properties against the accumulated preferences
type Ranker struct {
	weightText    float64
	weightPrice   float64
	weightRecency float64
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightText, weightPrice, weightRecency float64) *Ranker {
	return &Ranker{
		weightText:    weightText,
		weightPrice:   weightPrice,
		weightRecency: weightRecency,
	}
}

// Rank scores properties against the preference snapshot and returns
// summaries sorted by score descending
func (r *Ranker) Rank(properties []model.Property, prefs *model.PreferenceSnapshot) []model.PropertySummary {
	results := make([]model.PropertySummary, 0, len(properties))

	for i := range properties {
		p := &properties[i]
		summary := p.Summary()

		textScore := r.normalizeTextScore(p.TextRank)
		priceScore := r.calculatePriceScore(p.Price, prefs)
		recencyScore := r.calculateRecencyScore(p.ListedDate)

		summary.Score = (r.weightText * textScore) +
			(r.weightPrice * priceScore) +
			(r.weightRecency * recencyScore)
		summary.MatchedReasons = r.matchedReasons(p, prefs, textScore, priceScore)

		results = append(results, summary)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// normalizeTextScore caps PostgreSQL ts_rank output to the 0-1 range
func (r *Ranker) normalizeTextScore(rank *float64) float64 {
	if rank == nil {
		return 0
	}
	if *rank > 1.0 {
		return 1.0
	}
	if *rank < 0 {
		return 0
	}
	return *rank
}

// calculatePriceScore calculates how well the price fits the budget window
func (r *Ranker) calculatePriceScore(price *float64, prefs *model.PreferenceSnapshot) float64 {
	if price == nil {
		return 0.5 // Neutral score if no price
	}

	if prefs == nil || prefs.Budget == nil || (prefs.Budget.Min == nil && prefs.Budget.Max == nil) {
		return 1.0 // Full score if no budget known
	}

	actualPrice := *price
	budget := prefs.Budget

	if budget.Min != nil && budget.Max != nil {
		minPrice := *budget.Min
		maxPrice := *budget.Max

		if actualPrice < minPrice || actualPrice > maxPrice {
			return 0.0
		}

		// Within range, score based on distance from midpoint
		midpoint := (minPrice + maxPrice) / 2
		priceRange := maxPrice - minPrice
		if priceRange == 0 {
			return 1.0
		}

		distance := math.Abs(actualPrice - midpoint)
		score := 1.0 - (distance / (priceRange / 2))
		if score < 0 {
			score = 0
		}
		return score
	}

	if budget.Min != nil {
		if actualPrice < *budget.Min {
			return 0.0
		}
		return 1.0
	}

	if actualPrice > *budget.Max {
		return 0.0
	}
	// Closer to the ceiling is better value for the stated budget
	score := actualPrice / *budget.Max
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// calculateRecencyScore decays exponentially with listing age
func (r *Ranker) calculateRecencyScore(listedDate *time.Time) float64 {
	if listedDate == nil {
		return 0.5 // Neutral score if no date
	}

	daysSinceListed := time.Since(*listedDate).Hours() / 24

	// Score = e^(-0.01 * days)
	// After 30 days: ~0.74, after 60 days: ~0.55, after 90 days: ~0.41
	score := math.Exp(-0.01 * daysSinceListed)
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

// matchedReasons generates human-readable reasons for why the property matched
func (r *Ranker) matchedReasons(p *model.Property, prefs *model.PreferenceSnapshot, textScore, priceScore float64) []string {
	reasons := []string{}

	if prefs != nil {
		if prefs.Bedrooms != nil && prefs.Bedrooms.Min != nil && p.Bedrooms != nil && *p.Bedrooms >= *prefs.Bedrooms.Min {
			reasons = append(reasons, ReasonBedroomsMatch)
		}
		if prefs.Bathrooms != nil && prefs.Bathrooms.Min != nil && p.Bathrooms != nil && *p.Bathrooms >= *prefs.Bathrooms.Min {
			reasons = append(reasons, ReasonBathroomsMatch)
		}
		if prefs.PropertyType != nil && p.PropertyType != nil {
			reasons = append(reasons, ReasonTypeMatch)
		}
		if prefs.Location != nil && (p.City != nil || p.District != nil) {
			reasons = append(reasons, ReasonLocationMatch)
		}
		if priceScore > 0.8 {
			reasons = append(reasons, ReasonPriceMatch)
		}
	}

	if textScore > 0.1 {
		reasons = append(reasons, ReasonContentRelevant)
	}

	if p.ListedDate != nil {
		daysSince := time.Since(*p.ListedDate).Hours() / 24
		if daysSince < 7 {
			reasons = append(reasons, ReasonNewlyListed)
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}

	return reasons
}
