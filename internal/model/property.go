package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Property represents a resale/rental property listing
type Property struct {
	ID           int64           `json:"id" db:"id"`
	Title        *string         `json:"title,omitempty" db:"title"`
	PropertyType *string         `json:"property_type,omitempty" db:"property_type"`
	Purpose      *string         `json:"purpose,omitempty" db:"purpose"` // sale or rent
	Price        *float64        `json:"price,omitempty" db:"price"`
	Currency     *string         `json:"currency,omitempty" db:"currency"`
	Bedrooms     *int            `json:"bedrooms,omitempty" db:"bedrooms"`
	Bathrooms    *int            `json:"bathrooms,omitempty" db:"bathrooms"`
	AreaSqm      *float64        `json:"area_sqm,omitempty" db:"area_sqm"`
	City         *string         `json:"city,omitempty" db:"city"`
	District     *string         `json:"district,omitempty" db:"district"`
	Description  *string         `json:"description,omitempty" db:"description"`
	Amenities    JSONArray       `json:"amenities,omitempty" db:"amenities"`
	Images       JSONArray       `json:"images,omitempty" db:"images"`
	Status       string          `json:"status" db:"status"` // available, reserved, sold
	ListedDate   *time.Time      `json:"listed_date,omitempty" db:"listed_date"`
	Embedding    pgvector.Vector `json:"-" db:"embedding"`
	TextRank     *float64        `json:"text_rank,omitempty" db:"text_rank"` // full-text search ranking
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Launch represents a new-development launch project
type Launch struct {
	ID            int64     `json:"id" db:"id"`
	Name          *string   `json:"name,omitempty" db:"name"`
	Developer     *string   `json:"developer,omitempty" db:"developer"`
	City          *string   `json:"city,omitempty" db:"city"`
	District      *string   `json:"district,omitempty" db:"district"`
	PriceFrom     *float64  `json:"price_from,omitempty" db:"price_from"`
	Currency      *string   `json:"currency,omitempty" db:"currency"`
	PropertyTypes JSONArray `json:"property_types,omitempty" db:"property_types"`
	DeliveryYear  *int      `json:"delivery_year,omitempty" db:"delivery_year"`
	Images        JSONArray `json:"images,omitempty" db:"images"`
	Status        string    `json:"status" db:"status"` // upcoming, selling, delivered
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// PropertySummary is the trimmed property view surfaced in chat replies
type PropertySummary struct {
	ID             int64    `json:"id"`
	Title          *string  `json:"title,omitempty"`
	PropertyType   *string  `json:"property_type,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	Currency       *string  `json:"currency,omitempty"`
	Bedrooms       *int     `json:"bedrooms,omitempty"`
	Bathrooms      *int     `json:"bathrooms,omitempty"`
	AreaSqm        *float64 `json:"area_sqm,omitempty"`
	City           *string  `json:"city,omitempty"`
	District       *string  `json:"district,omitempty"`
	Images         []string `json:"images,omitempty"`
	Status         string   `json:"status"`
	Score          float64  `json:"score"`
	MatchedReasons []string `json:"matched_reasons,omitempty"`
}

// LaunchSummary is the trimmed launch view surfaced in chat replies
type LaunchSummary struct {
	ID            int64    `json:"id"`
	Name          *string  `json:"name,omitempty"`
	Developer     *string  `json:"developer,omitempty"`
	City          *string  `json:"city,omitempty"`
	District      *string  `json:"district,omitempty"`
	PriceFrom     *float64 `json:"price_from,omitempty"`
	Currency      *string  `json:"currency,omitempty"`
	PropertyTypes []string `json:"property_types,omitempty"`
	DeliveryYear  *int     `json:"delivery_year,omitempty"`
	Images        []string `json:"images,omitempty"`
	Status        string   `json:"status"`
	Score         float64  `json:"score"`
}

// Summary converts a Property row into its chat-facing view
func (p *Property) Summary() PropertySummary {
	return PropertySummary{
		ID:           p.ID,
		Title:        p.Title,
		PropertyType: p.PropertyType,
		Price:        p.Price,
		Currency:     p.Currency,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		AreaSqm:      p.AreaSqm,
		City:         p.City,
		District:     p.District,
		Images:       p.Images,
		Status:       p.Status,
	}
}

// Summary converts a Launch row into its chat-facing view
func (l *Launch) Summary() LaunchSummary {
	return LaunchSummary{
		ID:            l.ID,
		Name:          l.Name,
		Developer:     l.Developer,
		City:          l.City,
		District:      l.District,
		PriceFrom:     l.PriceFrom,
		Currency:      l.Currency,
		PropertyTypes: l.PropertyTypes,
		DeliveryYear:  l.DeliveryYear,
		Images:        l.Images,
		Status:        l.Status,
	}
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}
