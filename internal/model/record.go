package model

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

const placeURLBase = "https://www.google.com/maps/place/?q=place_id:"

// BusinessRecord represents one collected listing.
type BusinessRecord struct {
	UUID            string            `json:"uuid"`
	Name            string            `json:"name"`
	Phone           string            `json:"phone"`
	Address         string            `json:"address"`
	GMapsURL        string            `json:"gmaps_url"`
	Website         string            `json:"website"`
	Rating          string            `json:"rating"` // formatted number, or "NA"
	RatingCount     int               `json:"rating_count"`
	OpeningHours    string            `json:"opening_hours"`
	PriceTier       string            `json:"price_tier"`
	PhotoCount      int               `json:"photo_count"`
	Amenities       []string          `json:"amenities"`
	SocialMedia     map[string]string `json:"social_media"`
	DeliveryOptions []string          `json:"delivery_options"`
	BusinessType    string            `json:"business_type"`
}

// PlaceURL builds the canonical listing URL from a Place ID.
// The URL depends only on the place id, which makes it a stable dedup key.
func PlaceURL(placeID string) string {
	if placeID == "" {
		return ""
	}
	return placeURLBase + placeID
}

// EnsureID assigns a fresh id if the record has none. Records reloaded
// from a persisted form keep their stored id.
func (r *BusinessRecord) EnsureID() {
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}
}

// JoinList flattens a list field to one cell for tabular formats.
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

// SplitList reverses JoinList. The split is naive: values that themselves
// contain "," do not round-trip.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// JoinPairs flattens a platform→URL mapping as "key: value" pairs.
// Keys are sorted so output is deterministic.
func JoinPairs(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+": "+m[k])
	}
	return strings.Join(pairs, ", ")
}

// SplitPairs reverses JoinPairs. Naive split on "," and ":"; values
// containing either character do not round-trip.
func SplitPairs(s string) map[string]string {
	if strings.TrimSpace(s) == "" {
		return map[string]string{}
	}
	m := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, ":", 2)
		k := strings.TrimSpace(kv[0])
		if k == "" {
			continue
		}
		v := ""
		if len(kv) == 2 {
			v = strings.TrimSpace(kv[1])
		}
		m[k] = v
	}
	return m
}
