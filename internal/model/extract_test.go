package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPlaceDetails(t *testing.T) {
	details := map[string]any{
		"name":                   "Casa Lolea",
		"formatted_phone_number": "932 37 05 98",
		"formatted_address":      "Carrer de Sant Pere Més Alt 49, Barcelona",
		"website":                "https://casalolea.com",
		"rating":                 4.5,
		"user_ratings_total":     float64(1208),
		"price_level":            float64(2),
		"photos":                 []any{map[string]any{}, map[string]any{}, map[string]any{}},
		"types":                  []any{"restaurant", "food", "point_of_interest"},
		"serves_dinner":          true,
		"reservable":             true,
		"opening_hours": map[string]any{
			"weekday_text": []any{"Monday: 12:00–23:00", "Tuesday: 12:00–23:00"},
		},
	}

	r := FromPlaceDetails(details, "ChIJd8BlQ2BZwokRAFUEcm_qrcA")

	assert.NotEmpty(t, r.UUID)
	assert.Equal(t, "Casa Lolea", r.Name)
	assert.Equal(t, "https://www.google.com/maps/place/?q=place_id:ChIJd8BlQ2BZwokRAFUEcm_qrcA", r.GMapsURL)
	assert.Equal(t, "4.5", r.Rating)
	assert.Equal(t, 1208, r.RatingCount)
	assert.Equal(t, "$$", r.PriceTier)
	assert.Equal(t, 3, r.PhotoCount)
	assert.Equal(t, "Monday: 12:00–23:00; Tuesday: 12:00–23:00", r.OpeningHours)
	assert.Equal(t, []string{"Accepts Reservations", "Serves Dinner"}, r.Amenities)
	assert.Equal(t, "Restaurant", r.BusinessType)
	require.NotNil(t, r.SocialMedia)
	assert.Empty(t, r.SocialMedia)
}

func TestFromPlaceDetailsMissingFields(t *testing.T) {
	r := FromPlaceDetails(map[string]any{}, "abc123")

	assert.NotEmpty(t, r.UUID)
	assert.Equal(t, "NA", r.Rating)
	assert.Equal(t, "", r.PriceTier)
	assert.Equal(t, "", r.BusinessType)
	assert.Equal(t, 0, r.PhotoCount)
	assert.Empty(t, r.Amenities)
	assert.Empty(t, r.DeliveryOptions)
}

func TestPriceTier(t *testing.T) {
	tests := []struct {
		name    string
		details map[string]any
		want    string
	}{
		{"free", map[string]any{"price_level": float64(0)}, "Free"},
		{"moderate", map[string]any{"price_level": float64(2)}, "$$"},
		{"expensive", map[string]any{"price_level": float64(4)}, "$$$$"},
		{"absent", map[string]any{}, ""},
		{"out of range", map[string]any{"price_level": float64(9)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, priceTier(tt.details))
		})
	}
}

func TestDeliveryOptionsFromCategoriesOnly(t *testing.T) {
	details := map[string]any{
		"types": []any{"meal_takeaway", "restaurant"},
	}
	r := FromPlaceDetails(details, "x")
	assert.Equal(t, []string{"Takeout", "Dine-in"}, r.DeliveryOptions)
}

func TestDeliveryOptionsFlagBeatsFallback(t *testing.T) {
	details := map[string]any{
		"takeout": true,
		"types":   []any{"meal_takeaway", "restaurant"},
	}
	r := FromPlaceDetails(details, "x")
	// Takeout came from the flag; the meal_takeaway fallback must not
	// add it a second time.
	assert.Equal(t, []string{"Takeout", "Dine-in"}, r.DeliveryOptions)
}

func TestAmenityCategoryFallbackGuard(t *testing.T) {
	details := map[string]any{
		"delivery": true,
		"types":    []any{"meal_delivery", "meal_takeaway"},
	}
	r := FromPlaceDetails(details, "x")
	assert.Equal(t, []string{"Delivery", "Takeout"}, r.Amenities)
}

func TestBusinessType(t *testing.T) {
	tests := []struct {
		name       string
		categories []string
		want       string
	}{
		{"first table hit wins", []string{"point_of_interest", "cafe", "restaurant"}, "Cafe"},
		{"restaurant", []string{"restaurant"}, "Restaurant"},
		{"food maps to restaurant", []string{"food"}, "Restaurant"},
		{"store", []string{"store"}, "Retail Store"},
		{"fallback humanizes first category", []string{"hair_care", "establishment"}, "Hair Care"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, businessType(tt.categories))
		})
	}
}
