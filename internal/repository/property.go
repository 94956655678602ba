package repository

import (
	"context"
	"fmt"
	"strings"

	"estatechat/internal/model"
	"estatechat/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
)

// PropertyRepository handles property and launch reads plus embedding writes
type PropertyRepository struct {
	db *sqlx.DB
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *sqlx.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

const propertyColumns = `
	id, title, property_type, purpose, price, currency, bedrooms, bathrooms,
	area_sqm, city, district, description, amenities, images, status,
	listed_date, created_at, updated_at`

// Search performs a filtered property search driven by the accumulated
// preference snapshot, ranked by full-text relevance against the keywords
func (r *PropertyRepository) Search(ctx context.Context, prefs *model.PreferenceSnapshot, keywords []string, limit int) ([]model.Property, error) {
	whereClauses := []string{"status = 'available'"}
	args := []interface{}{}
	argIndex := 1

	if prefs != nil {
		if prefs.Budget != nil {
			if prefs.Budget.Min != nil {
				whereClauses = append(whereClauses, fmt.Sprintf("price >= $%d", argIndex))
				args = append(args, *prefs.Budget.Min)
				argIndex++
			}
			if prefs.Budget.Max != nil {
				whereClauses = append(whereClauses, fmt.Sprintf("price <= $%d", argIndex))
				args = append(args, *prefs.Budget.Max)
				argIndex++
			}
		}
		if prefs.Bedrooms != nil && prefs.Bedrooms.Min != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("bedrooms >= $%d", argIndex))
			args = append(args, *prefs.Bedrooms.Min)
			argIndex++
		}
		if prefs.Bedrooms != nil && prefs.Bedrooms.Max != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("bedrooms <= $%d", argIndex))
			args = append(args, *prefs.Bedrooms.Max)
			argIndex++
		}
		if prefs.Bathrooms != nil && prefs.Bathrooms.Min != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("bathrooms >= $%d", argIndex))
			args = append(args, *prefs.Bathrooms.Min)
			argIndex++
		}
		if prefs.Area != nil && prefs.Area.Min != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("area_sqm >= $%d", argIndex))
			args = append(args, *prefs.Area.Min)
			argIndex++
		}
		if prefs.Area != nil && prefs.Area.Max != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("area_sqm <= $%d", argIndex))
			args = append(args, *prefs.Area.Max)
			argIndex++
		}
		if prefs.PropertyType != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("property_type ILIKE $%d", argIndex))
			args = append(args, "%"+*prefs.PropertyType+"%")
			argIndex++
		}
		if prefs.Purpose != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("purpose = $%d", argIndex))
			args = append(args, strings.ToLower(*prefs.Purpose))
			argIndex++
		}
		if prefs.Location != nil {
			if prefs.Location.City != nil {
				whereClauses = append(whereClauses, fmt.Sprintf("city ILIKE $%d", argIndex))
				args = append(args, "%"+*prefs.Location.City+"%")
				argIndex++
			}
			if prefs.Location.District != nil {
				whereClauses = append(whereClauses, fmt.Sprintf("district ILIKE $%d", argIndex))
				args = append(args, "%"+*prefs.Location.District+"%")
				argIndex++
			}
		}
		// JSONB amenities filtering - fuzzy matching with common aliases
		if len(prefs.Amenities) > 0 {
			amenityConds, amenityParams, newIndex := utils.BuildAmenityConditions(prefs.Amenities, argIndex)
			whereClauses = append(whereClauses, amenityConds...)
			args = append(args, amenityParams...)
			argIndex = newIndex
		}
	}

	whereClause := strings.Join(whereClauses, " AND ")

	selectQuery := fmt.Sprintf(`
		SELECT %s,
			ts_rank(search_vector, plainto_tsquery('english', $%d)) AS text_rank
		FROM properties
		WHERE %s
		ORDER BY text_rank DESC, listed_date DESC NULLS LAST
		LIMIT $%d
	`, propertyColumns, argIndex, whereClause, argIndex+1)

	searchText := strings.Join(keywords, " ")
	args = append(args, searchText, limit)

	var properties []model.Property
	if err := r.db.SelectContext(ctx, &properties, selectQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	return properties, nil
}

// GetByIDs batch-fetches properties for hydration. Missing IDs simply
// produce no row; callers handle the gap.
func (r *PropertyRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]model.Property, error) {
	if len(ids) == 0 {
		return map[int64]model.Property{}, nil
	}

	query, args, err := sqlx.In(
		fmt.Sprintf(`SELECT %s FROM properties WHERE id IN (?)`, propertyColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build property batch query: %w", err)
	}
	query = r.db.Rebind(query)

	var properties []model.Property
	if err := r.db.SelectContext(ctx, &properties, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch properties: %w", err)
	}

	byID := make(map[int64]model.Property, len(properties))
	for _, p := range properties {
		byID[p.ID] = p
	}
	return byID, nil
}

const launchColumns = `
	id, name, developer, city, district, price_from, currency,
	property_types, delivery_year, images, status, created_at, updated_at`

// SearchLaunches returns selling launch projects matching the preference
// snapshot's location and budget
func (r *PropertyRepository) SearchLaunches(ctx context.Context, prefs *model.PreferenceSnapshot, limit int) ([]model.Launch, error) {
	whereClauses := []string{"status IN ('upcoming', 'selling')"}
	args := []interface{}{}
	argIndex := 1

	if prefs != nil {
		if prefs.Budget != nil && prefs.Budget.Max != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("price_from <= $%d", argIndex))
			args = append(args, *prefs.Budget.Max)
			argIndex++
		}
		if prefs.Location != nil && prefs.Location.City != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("city ILIKE $%d", argIndex))
			args = append(args, "%"+*prefs.Location.City+"%")
			argIndex++
		}
		if prefs.PropertyType != nil {
			whereClauses = append(whereClauses, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM jsonb_array_elements_text(property_types) pt WHERE pt ILIKE $%d)", argIndex))
			args = append(args, "%"+*prefs.PropertyType+"%")
			argIndex++
		}
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s FROM launches
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d
	`, launchColumns, strings.Join(whereClauses, " AND "), argIndex)
	args = append(args, limit)

	var launches []model.Launch
	if err := r.db.SelectContext(ctx, &launches, selectQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to search launches: %w", err)
	}
	return launches, nil
}

// GetLaunchesByIDs batch-fetches launches for hydration
func (r *PropertyRepository) GetLaunchesByIDs(ctx context.Context, ids []int64) (map[int64]model.Launch, error) {
	if len(ids) == 0 {
		return map[int64]model.Launch{}, nil
	}

	query, args, err := sqlx.In(
		fmt.Sprintf(`SELECT %s FROM launches WHERE id IN (?)`, launchColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build launch batch query: %w", err)
	}
	query = r.db.Rebind(query)

	var launches []model.Launch
	if err := r.db.SelectContext(ctx, &launches, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch launches: %w", err)
	}

	byID := make(map[int64]model.Launch, len(launches))
	for _, l := range launches {
		byID[l.ID] = l
	}
	return byID, nil
}

// VectorSearch returns available properties nearest to the query embedding
func (r *PropertyRepository) VectorSearch(ctx context.Context, queryEmbedding []float32, limit int) ([]model.Property, error) {
	vec := pgvector.NewVector(queryEmbedding)
	query := fmt.Sprintf(`
		SELECT %s FROM properties
		WHERE status = 'available' AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`, propertyColumns)

	var properties []model.Property
	if err := r.db.SelectContext(ctx, &properties, query, vec, limit); err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	return properties, nil
}

// BatchUpdateEmbeddings updates embeddings for multiple properties
func (r *PropertyRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.PropertyEmbedding) (int, []string) {
	success := 0
	var errors []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errors
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE properties SET embedding = $1, updated_at = NOW() WHERE id = $2`)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errors
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		if _, err := stmt.ExecContext(ctx, vec, item.PropertyID); err != nil {
			errors = append(errors, fmt.Sprintf("property_id %d: %v", item.PropertyID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errors = append(errors, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errors
	}

	return success, errors
}
