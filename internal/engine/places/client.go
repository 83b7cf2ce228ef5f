package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const baseURL = "https://maps.googleapis.com/maps/api/place"

// detailFields is the fixed field list requested on every detail lookup.
var detailFields = []string{
	"name", "formatted_address", "formatted_phone_number",
	"website", "rating", "place_id", "user_ratings_total",
	"opening_hours", "price_level", "photo", "type",
	"business_status", "geometry", "icon", "plus_code",
	"vicinity", "permanently_closed", "url", "delivery",
	"takeout", "dine_in", "serves_beer", "serves_wine",
	"serves_breakfast", "serves_lunch", "serves_dinner",
	"serves_brunch", "serves_vegetarian_food", "reservable",
	"wheelchair_accessible_entrance", "curbside_pickup",
}

// APIError is a non-OK status returned by the Places API.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("places api: %s", e.Status)
	}
	return fmt.Sprintf("places api: %s: %s", e.Status, e.Message)
}

// SearchResult is one entry of a text-search page.
type SearchResult struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name"`
}

// SearchResponse is one page of text-search results.
type SearchResponse struct {
	Results       []SearchResult
	NextPageToken string
}

type Client struct {
	http    *http.Client
	key     string
	lang    string
	baseURL string
}

func NewClient(key, lang string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		key:     key,
		lang:    lang,
		baseURL: baseURL,
	}
}

// TextSearch performs one text-search call. A non-empty pageToken continues
// a previous search; the query is still sent but the API ignores it then.
func (c *Client) TextSearch(ctx context.Context, query, pageToken string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("key", c.key)
	params.Set("query", query)
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	}
	if c.lang != "" {
		params.Set("language", c.lang)
	}

	var payload struct {
		Results       []SearchResult `json:"results"`
		NextPageToken string         `json:"next_page_token"`
		Status        string         `json:"status"`
		ErrorMessage  string         `json:"error_message"`
	}
	if err := c.get(ctx, "/textsearch/json", params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		return nil, &APIError{Status: payload.Status, Message: payload.ErrorMessage}
	}

	return &SearchResponse{
		Results:       payload.Results,
		NextPageToken: payload.NextPageToken,
	}, nil
}

// PlaceDetails fetches the flat detail payload for one place.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (map[string]any, error) {
	params := url.Values{}
	params.Set("key", c.key)
	params.Set("place_id", placeID)
	params.Set("fields", strings.Join(detailFields, ","))
	if c.lang != "" {
		params.Set("language", c.lang)
	}

	var payload struct {
		Result       map[string]any `json:"result"`
		Status       string         `json:"status"`
		ErrorMessage string         `json:"error_message"`
	}
	if err := c.get(ctx, "/details/json", params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" {
		return nil, &APIError{Status: payload.Status, Message: payload.ErrorMessage}
	}
	return payload.Result, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
