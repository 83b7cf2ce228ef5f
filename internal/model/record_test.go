package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureID(t *testing.T) {
	r := BusinessRecord{UUID: "existing-id"}
	r.EnsureID()
	assert.Equal(t, "existing-id", r.UUID)

	var fresh BusinessRecord
	fresh.EnsureID()
	assert.NotEmpty(t, fresh.UUID)
}

func TestPlaceURL(t *testing.T) {
	assert.Equal(t, "https://www.google.com/maps/place/?q=place_id:abc", PlaceURL("abc"))
	assert.Equal(t, "", PlaceURL(""))
}

func TestJoinSplitList(t *testing.T) {
	items := []string{"Delivery", "Takeout"}
	joined := JoinList(items)
	assert.Equal(t, "Delivery, Takeout", joined)
	assert.Equal(t, items, SplitList(joined))

	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("  "))
}

func TestSplitListLossy(t *testing.T) {
	// Values containing "," do not survive the naive split.
	joined := JoinList([]string{"Beer, Wine", "Takeout"})
	assert.Equal(t, []string{"Beer", "Wine", "Takeout"}, SplitList(joined))
}

func TestJoinSplitPairs(t *testing.T) {
	m := map[string]string{"instagram": "https://instagram.com/x", "facebook": "https://facebook.com/x"}
	joined := JoinPairs(m)
	// Sorted by key.
	assert.Equal(t, "facebook: https://facebook.com/x, instagram: https://instagram.com/x", joined)

	assert.Equal(t, "", JoinPairs(nil))
	assert.Empty(t, SplitPairs(""))
}

func TestSplitPairsLossy(t *testing.T) {
	// A "," inside a value is read back as a separate, valueless key.
	got := SplitPairs("blog: posts, drafts")
	assert.Equal(t, map[string]string{"blog": "posts", "drafts": ""}, got)
}
