package model

import (
	"database/sql/driver"
	"encoding/json"
)

// PreferenceSnapshot is the cumulative set of everything inferred about a
// visitor's property needs over a conversation. Every field is optional;
// a nil field means "not known yet", never "not wanted".
type PreferenceSnapshot struct {
	Budget       *BudgetRange        `json:"budget,omitempty"`
	Location     *LocationPreference `json:"location,omitempty"`
	PropertyType *string             `json:"property_type,omitempty"`
	Purpose      *string             `json:"purpose,omitempty"` // buy or rent
	Bedrooms     *CountRange         `json:"bedrooms,omitempty"`
	Bathrooms    *CountRange         `json:"bathrooms,omitempty"`
	Area         *AreaRange          `json:"area,omitempty"`
	Amenities    []string            `json:"amenities,omitempty"`
	Keywords     []string            `json:"keywords,omitempty"`
}

// BudgetRange holds the inferred budget window
type BudgetRange struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency *string  `json:"currency,omitempty"`
}

// LocationPreference holds the inferred desired location
type LocationPreference struct {
	City     *string `json:"city,omitempty"`
	District *string `json:"district,omitempty"`
}

// CountRange holds an inferred room-count window
type CountRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// AreaRange holds an inferred area window in square meters
type AreaRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// MergePreferences combines a partial preference fragment into the current
// snapshot. Nested sections merge field by field: a set field in updates
// overwrites the same field in current, an unset field preserves what is
// already known. Scalars and lists replace wholesale when set in updates.
// A key present in current is never deleted. Pure: neither input is mutated.
func MergePreferences(current, updates *PreferenceSnapshot) *PreferenceSnapshot {
	merged := &PreferenceSnapshot{}
	if current != nil {
		*merged = *current
	}
	if updates == nil {
		return merged
	}

	merged.Budget = mergeBudget(merged.Budget, updates.Budget)
	merged.Location = mergeLocation(merged.Location, updates.Location)
	merged.Bedrooms = mergeCount(merged.Bedrooms, updates.Bedrooms)
	merged.Bathrooms = mergeCount(merged.Bathrooms, updates.Bathrooms)
	merged.Area = mergeArea(merged.Area, updates.Area)

	if updates.PropertyType != nil {
		merged.PropertyType = updates.PropertyType
	}
	if updates.Purpose != nil {
		merged.Purpose = updates.Purpose
	}
	if updates.Amenities != nil {
		merged.Amenities = updates.Amenities
	}
	if updates.Keywords != nil {
		merged.Keywords = updates.Keywords
	}

	return merged
}

func mergeBudget(current, updates *BudgetRange) *BudgetRange {
	if updates == nil {
		return current
	}
	merged := &BudgetRange{}
	if current != nil {
		*merged = *current
	}
	if updates.Min != nil {
		merged.Min = updates.Min
	}
	if updates.Max != nil {
		merged.Max = updates.Max
	}
	if updates.Currency != nil {
		merged.Currency = updates.Currency
	}
	return merged
}

func mergeLocation(current, updates *LocationPreference) *LocationPreference {
	if updates == nil {
		return current
	}
	merged := &LocationPreference{}
	if current != nil {
		*merged = *current
	}
	if updates.City != nil {
		merged.City = updates.City
	}
	if updates.District != nil {
		merged.District = updates.District
	}
	return merged
}

func mergeCount(current, updates *CountRange) *CountRange {
	if updates == nil {
		return current
	}
	merged := &CountRange{}
	if current != nil {
		*merged = *current
	}
	if updates.Min != nil {
		merged.Min = updates.Min
	}
	if updates.Max != nil {
		merged.Max = updates.Max
	}
	return merged
}

func mergeArea(current, updates *AreaRange) *AreaRange {
	if updates == nil {
		return current
	}
	merged := &AreaRange{}
	if current != nil {
		*merged = *current
	}
	if updates.Min != nil {
		merged.Min = updates.Min
	}
	if updates.Max != nil {
		merged.Max = updates.Max
	}
	return merged
}

// IsEmpty reports whether the snapshot carries no inferred facts
func (p *PreferenceSnapshot) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Budget == nil &&
		p.Location == nil &&
		p.PropertyType == nil &&
		p.Purpose == nil &&
		p.Bedrooms == nil &&
		p.Bathrooms == nil &&
		p.Area == nil &&
		len(p.Amenities) == 0 &&
		len(p.Keywords) == 0
}

// Value implements driver.Valuer interface
func (p PreferenceSnapshot) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface
func (p *PreferenceSnapshot) Scan(value interface{}) error {
	if value == nil {
		*p = PreferenceSnapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), p)
	}
	return json.Unmarshal(bytes, p)
}
