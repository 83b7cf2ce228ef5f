package model

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// priceTiers maps the API's ordinal price_level (0-4) to a symbolic tier.
var priceTiers = []string{"Free", "$", "$$", "$$$", "$$$$"}

// amenityFlags are checked in this order; each true flag appends its label.
var amenityFlags = []struct{ field, label string }{
	{"wheelchair_accessible_entrance", "Wheelchair Accessible"},
	{"reservable", "Accepts Reservations"},
	{"serves_beer", "Serves Beer"},
	{"serves_wine", "Serves Wine"},
	{"serves_breakfast", "Serves Breakfast"},
	{"serves_brunch", "Serves Brunch"},
	{"serves_lunch", "Serves Lunch"},
	{"serves_dinner", "Serves Dinner"},
	{"serves_vegetarian_food", "Vegetarian Options"},
	{"curbside_pickup", "Curbside Pickup"},
	{"delivery", "Delivery"},
	{"takeout", "Takeout"},
}

// amenityCategoryFallback adds delivery/takeout labels when the flag was
// absent but the category list implies them. Unlike the flag pass, these
// are guarded against labels already present.
var amenityCategoryFallback = []struct{ category, label string }{
	{"meal_delivery", "Delivery"},
	{"meal_takeaway", "Takeout"},
}

var deliveryFlags = []struct{ field, label string }{
	{"delivery", "Delivery"},
	{"takeout", "Takeout"},
	{"dine_in", "Dine-in"},
	{"curbside_pickup", "Curbside Pickup"},
}

var deliveryCategoryFallback = []struct{ category, label string }{
	{"meal_delivery", "Delivery"},
	{"meal_takeaway", "Takeout"},
	{"restaurant", "Dine-in"},
}

// businessTypes is the priority table for the single business-type label.
// The first payload category found in this table wins.
var businessTypes = map[string]string{
	"restaurant":             "Restaurant",
	"food":                   "Restaurant",
	"cafe":                   "Cafe",
	"bar":                    "Bar",
	"bakery":                 "Bakery",
	"store":                  "Retail Store",
	"shopping_mall":          "Retail Store",
	"supermarket":            "Grocery Store",
	"grocery_or_supermarket": "Grocery Store",
	"lodging":                "Hotel",
	"gym":                    "Gym",
	"hospital":               "Hospital",
	"pharmacy":               "Pharmacy",
	"beauty_salon":           "Beauty Salon",
	"car_repair":             "Auto Repair",
}

// FromPlaceDetails builds a record from a raw detail payload. The id is
// assigned here, once, and survives every later reload.
func FromPlaceDetails(details map[string]any, placeID string) BusinessRecord {
	categories := stringList(details["types"])

	return BusinessRecord{
		UUID:            uuid.NewString(),
		Name:            strField(details, "name"),
		Phone:           strField(details, "formatted_phone_number"),
		Address:         strField(details, "formatted_address"),
		GMapsURL:        PlaceURL(placeID),
		Website:         strField(details, "website"),
		Rating:          ratingField(details),
		RatingCount:     intField(details, "user_ratings_total"),
		OpeningHours:    openingHours(details),
		PriceTier:       priceTier(details),
		PhotoCount:      photoCount(details),
		Amenities:       extractAmenities(details, categories),
		SocialMedia:     map[string]string{}, // no extraction source in this API
		DeliveryOptions: extractDeliveryOptions(details, categories),
		BusinessType:    businessType(categories),
	}
}

func extractAmenities(details map[string]any, categories []string) []string {
	var amenities []string
	for _, f := range amenityFlags {
		if boolField(details, f.field) {
			amenities = append(amenities, f.label)
		}
	}
	for _, f := range amenityCategoryFallback {
		if containsString(categories, f.category) && !containsString(amenities, f.label) {
			amenities = append(amenities, f.label)
		}
	}
	return amenities
}

func extractDeliveryOptions(details map[string]any, categories []string) []string {
	var opts []string
	for _, f := range deliveryFlags {
		if boolField(details, f.field) {
			opts = append(opts, f.label)
		}
	}
	for _, f := range deliveryCategoryFallback {
		if containsString(categories, f.category) && !containsString(opts, f.label) {
			opts = append(opts, f.label)
		}
	}
	return opts
}

func businessType(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	for _, c := range categories {
		if label, ok := businessTypes[c]; ok {
			return label
		}
	}
	// No table hit: humanize the first category.
	return cases.Title(language.English).String(strings.ReplaceAll(categories[0], "_", " "))
}

func priceTier(details map[string]any) string {
	v, ok := details["price_level"]
	if !ok {
		return ""
	}
	level := int(toFloat(v))
	if level < 0 || level >= len(priceTiers) {
		return ""
	}
	return priceTiers[level]
}

func ratingField(details map[string]any) string {
	v, ok := details["rating"]
	if !ok {
		return "NA"
	}
	return strconv.FormatFloat(toFloat(v), 'f', -1, 64)
}

func openingHours(details map[string]any) string {
	hours, ok := details["opening_hours"].(map[string]any)
	if !ok {
		return ""
	}
	lines := stringList(hours["weekday_text"])
	return strings.Join(lines, "; ")
}

func photoCount(details map[string]any) int {
	photos, ok := details["photos"].([]any)
	if !ok {
		return 0
	}
	return len(photos)
}

// strField extracts a string value without panicking on missing or
// mistyped fields.
func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func intField(m map[string]any, key string) int {
	return int(toFloat(m[key]))
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	}
	return 0
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func containsString(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
