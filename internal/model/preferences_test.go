package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func TestMergePreferences_NestedPartialUpdate(t *testing.T) {
	current := &PreferenceSnapshot{
		Budget: &BudgetRange{
			Min:      floatPtr(2_000_000),
			Max:      floatPtr(5_000_000),
			Currency: strPtr("EGP"),
		},
		Location: &LocationPreference{City: strPtr("new cairo")},
	}
	updates := &PreferenceSnapshot{
		Budget: &BudgetRange{Max: floatPtr(6_000_000)},
	}

	merged := MergePreferences(current, updates)

	require.NotNil(t, merged.Budget)
	assert.Equal(t, 2_000_000.0, *merged.Budget.Min, "unset field in update must preserve current value")
	assert.Equal(t, 6_000_000.0, *merged.Budget.Max, "set field in update must overwrite")
	assert.Equal(t, "EGP", *merged.Budget.Currency)
	require.NotNil(t, merged.Location)
	assert.Equal(t, "new cairo", *merged.Location.City, "untouched section must survive")
}

func TestMergePreferences_ScalarsReplaceWholesale(t *testing.T) {
	current := &PreferenceSnapshot{
		PropertyType: strPtr("apartment"),
		Amenities:    []string{"pool", "gym"},
	}
	updates := &PreferenceSnapshot{
		PropertyType: strPtr("villa"),
		Amenities:    []string{"garden"},
	}

	merged := MergePreferences(current, updates)

	assert.Equal(t, "villa", *merged.PropertyType)
	assert.Equal(t, []string{"garden"}, merged.Amenities, "lists replace, not union")
}

func TestMergePreferences_NeverDeletes(t *testing.T) {
	current := &PreferenceSnapshot{
		Budget:       &BudgetRange{Max: floatPtr(3_000_000)},
		PropertyType: strPtr("apartment"),
		Purpose:      strPtr("buy"),
		Bedrooms:     &CountRange{Min: intPtr(3)},
		Keywords:     []string{"sea view"},
	}

	merged := MergePreferences(current, &PreferenceSnapshot{})

	assert.Equal(t, current.Budget.Max, merged.Budget.Max)
	assert.Equal(t, "apartment", *merged.PropertyType)
	assert.Equal(t, "buy", *merged.Purpose)
	assert.Equal(t, 3, *merged.Bedrooms.Min)
	assert.Equal(t, []string{"sea view"}, merged.Keywords)
}

func TestMergePreferences_Idempotent(t *testing.T) {
	updates := &PreferenceSnapshot{
		Budget:   &BudgetRange{Min: floatPtr(1_000_000), Currency: strPtr("EGP")},
		Location: &LocationPreference{District: strPtr("el rehab")},
	}

	once := MergePreferences(&PreferenceSnapshot{}, updates)
	twice := MergePreferences(once, updates)

	assert.Equal(t, once, twice, "applying the same fragment twice must not change the result")
}

func TestMergePreferences_IndependentKeysOrderInvariant(t *testing.T) {
	budgetOnly := &PreferenceSnapshot{
		Budget: &BudgetRange{Max: floatPtr(4_000_000), Currency: strPtr("EGP")},
	}
	locationOnly := &PreferenceSnapshot{
		Location: &LocationPreference{City: strPtr("sheikh zayed")},
	}

	ab := MergePreferences(MergePreferences(&PreferenceSnapshot{}, budgetOnly), locationOnly)
	ba := MergePreferences(MergePreferences(&PreferenceSnapshot{}, locationOnly), budgetOnly)

	assert.Equal(t, ab, ba, "fragments touching different keys must commute")
}

func TestMergePreferences_NilInputs(t *testing.T) {
	updates := &PreferenceSnapshot{Purpose: strPtr("rent")}

	merged := MergePreferences(nil, updates)
	require.NotNil(t, merged)
	assert.Equal(t, "rent", *merged.Purpose)

	merged = MergePreferences(updates, nil)
	require.NotNil(t, merged)
	assert.Equal(t, "rent", *merged.Purpose)
}

func TestMergePreferences_Pure(t *testing.T) {
	current := &PreferenceSnapshot{
		Budget: &BudgetRange{Min: floatPtr(1_000_000)},
	}
	updates := &PreferenceSnapshot{
		Budget: &BudgetRange{Max: floatPtr(4_000_000)},
	}

	_ = MergePreferences(current, updates)

	assert.Nil(t, current.Budget.Max, "merge must not mutate current")
	assert.Nil(t, updates.Budget.Min, "merge must not mutate updates")
}

func TestPreferenceSnapshot_IsEmpty(t *testing.T) {
	var nilSnapshot *PreferenceSnapshot
	assert.True(t, nilSnapshot.IsEmpty())
	assert.True(t, (&PreferenceSnapshot{}).IsEmpty())
	assert.False(t, (&PreferenceSnapshot{Purpose: strPtr("buy")}).IsEmpty())
	assert.False(t, (&PreferenceSnapshot{Keywords: []string{"compound"}}).IsEmpty())
}
