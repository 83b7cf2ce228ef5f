package places

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("AIzaTestKey1234567890abc", "en")
	c.baseURL = srv.URL
	return c
}

func TestTextSearchOK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/textsearch/json", r.URL.Path)
		assert.Equal(t, "tapas in Barcelona", r.URL.Query().Get("query"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		fmt.Fprint(w, `{
			"status": "OK",
			"results": [
				{"place_id": "p1", "name": "Casa Lolea"},
				{"place_id": "p2", "name": "Bar Mut"}
			],
			"next_page_token": "tok-2"
		}`)
	})

	resp, err := c.TextSearch(context.Background(), "tapas in Barcelona", "")
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "p1", resp.Results[0].PlaceID)
	assert.Equal(t, "tok-2", resp.NextPageToken)
}

func TestTextSearchSendsPageToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-2", r.URL.Query().Get("pagetoken"))
		fmt.Fprint(w, `{"status": "OK", "results": [{"place_id": "p3", "name": "Quimet"}]}`)
	})

	resp, err := c.TextSearch(context.Background(), "tapas", "tok-2")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Empty(t, resp.NextPageToken)
}

func TestTextSearchZeroResultsIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": []}`)
	})

	resp, err := c.TextSearch(context.Background(), "nothing here", "")
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestTextSearchAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid."}`)
	})

	_, err := c.TextSearch(context.Background(), "tapas", "")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "REQUEST_DENIED", apiErr.Status)
	assert.Contains(t, apiErr.Error(), "invalid")
}

func TestPlaceDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		assert.Equal(t, "p1", r.URL.Query().Get("place_id"))
		assert.NotEmpty(t, r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"status": "OK", "result": {"name": "Casa Lolea", "rating": 4.5}}`)
	})

	details, err := c.PlaceDetails(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Casa Lolea", details["name"])
	assert.Equal(t, 4.5, details["rating"])
}

func TestPlaceDetailsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "NOT_FOUND"}`)
	})

	_, err := c.PlaceDetails(context.Background(), "gone")
	require.Error(t, err)
}

func TestValidateAPIKey(t *testing.T) {
	assert.NoError(t, ValidateAPIKey("AIzaSyB1234567890-_abcdefg"))
	assert.Error(t, ValidateAPIKey(""))
	assert.Error(t, ValidateAPIKey("short"))
	assert.Error(t, ValidateAPIKey("AIzaSyB1234567890 space key"))
}

func TestValidateQuery(t *testing.T) {
	assert.NoError(t, ValidateQuery("restaurants in Madrid"))
	assert.Error(t, ValidateQuery(""))
	assert.Error(t, ValidateQuery(" a "))
}
