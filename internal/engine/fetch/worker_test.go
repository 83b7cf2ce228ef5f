package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placetap/internal/engine/places"
	"placetap/internal/model"
)

type fakeAPI struct {
	pages       map[string]*places.SearchResponse // keyed by page token, "" = fresh search
	detailErr   map[string]error
	searchErr   error
	searchCalls int
	detailCalls []string
}

func (f *fakeAPI) TextSearch(_ context.Context, _, pageToken string) (*places.SearchResponse, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.pages[pageToken], nil
}

func (f *fakeAPI) PlaceDetails(_ context.Context, placeID string) (map[string]any, error) {
	f.detailCalls = append(f.detailCalls, placeID)
	if err := f.detailErr[placeID]; err != nil {
		return nil, err
	}
	return map[string]any{
		"name":   "biz-" + placeID,
		"rating": 4.0,
		"types":  []any{"restaurant"},
	}, nil
}

type sink struct {
	batches  [][]model.BusinessRecord
	progress []string
	counts   []int
	errors   []string
	hasMore  bool
	success  bool
	done     int
}

func (s *sink) callbacks() Callbacks {
	return Callbacks{
		OnBatch: func(b []model.BusinessRecord) { s.batches = append(s.batches, b) },
		OnProgress: func(l string, n int) {
			s.progress = append(s.progress, l)
			s.counts = append(s.counts, n)
		},
		OnError:    func(m string) { s.errors = append(s.errors, m) },
		OnDone: func(hasMore, success bool) {
			s.hasMore = hasMore
			s.success = success
			s.done++
		},
	}
}

func page(token string, ids ...string) *places.SearchResponse {
	resp := &places.SearchResponse{NextPageToken: token}
	for _, id := range ids {
		resp.Results = append(resp.Results, places.SearchResult{PlaceID: id, Name: "biz-" + id})
	}
	return resp
}

func testParams(target int) Params {
	return Params{Query: "restaurants", Target: target, PaginationDelay: time.Millisecond}
}

func TestRunNoMoreDataNeeded(t *testing.T) {
	api := &fakeAPI{}
	acc := []model.BusinessRecord{{UUID: "a"}, {UUID: "b"}}
	s := &sink{}

	w := New(api, testParams(2), nil, acc, nil, s.callbacks())
	w.Run(context.Background())

	assert.Equal(t, 0, api.searchCalls, "must terminate before any search call")
	assert.Empty(t, s.batches)
	assert.Equal(t, 1, s.done)
	assert.False(t, s.hasMore)
	assert.True(t, s.success)
}

func TestRunEmptyResultSetIsTerminalError(t *testing.T) {
	api := &fakeAPI{pages: map[string]*places.SearchResponse{"": {}}}
	s := &sink{}

	w := New(api, testParams(5), nil, nil, nil, s.callbacks())
	w.Run(context.Background())

	require.Len(t, s.errors, 1)
	assert.Contains(t, s.errors[0], "no results")
	assert.False(t, s.hasMore)
	assert.False(t, s.success)
	assert.Equal(t, 1, api.searchCalls, "no retry")
}

func TestRunSearchErrorSurfaced(t *testing.T) {
	api := &fakeAPI{searchErr: &places.APIError{Status: "REQUEST_DENIED", Message: "bad key"}}
	s := &sink{}

	w := New(api, testParams(5), nil, nil, nil, s.callbacks())
	w.Run(context.Background())

	require.Len(t, s.errors, 1)
	assert.Contains(t, s.errors[0], "REQUEST_DENIED")
	assert.False(t, s.success)
}

func TestRunCollectsAndDedups(t *testing.T) {
	api := &fakeAPI{pages: map[string]*places.SearchResponse{"": page("", "p1", "p2", "p3")}}
	existing := map[string]struct{}{model.PlaceURL("p2"): {}}
	s := &sink{}

	w := New(api, testParams(10), existing, nil, nil, s.callbacks())
	w.Run(context.Background())

	require.Len(t, s.batches, 1)
	batch := s.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, model.PlaceURL("p1"), batch[0].GMapsURL)
	assert.Equal(t, model.PlaceURL("p3"), batch[1].GMapsURL)
	assert.Equal(t, []string{"Fetched: 1", "Fetched: 2"}, s.progress)
	assert.Equal(t, []int{1, 2}, s.counts)
	assert.True(t, s.success)
	assert.False(t, s.hasMore, "no continuation token on the page")
}

func TestRunStopsAtTarget(t *testing.T) {
	api := &fakeAPI{pages: map[string]*places.SearchResponse{"": page("tok", "p1", "p2", "p3", "p4", "p5")}}
	acc := []model.BusinessRecord{{UUID: "have", GMapsURL: model.PlaceURL("p0")}}
	s := &sink{}

	w := New(api, testParams(3), map[string]struct{}{model.PlaceURL("p0"): {}}, acc, nil, s.callbacks())
	w.Run(context.Background())

	require.Len(t, s.batches, 1)
	assert.Len(t, s.batches[0], 2, "target minus already accumulated")
	assert.Len(t, api.detailCalls, 2, "remaining page entries are not processed")
	assert.False(t, s.hasMore, "target met, token dropped")
	assert.Equal(t, "", w.NextPageToken())
}

func TestRunSkipsMissingPlaceID(t *testing.T) {
	resp := &places.SearchResponse{Results: []places.SearchResult{
		{PlaceID: "", Name: "anonymous"},
		{PlaceID: "p1", Name: "biz-p1"},
	}}
	api := &fakeAPI{pages: map[string]*places.SearchResponse{"": resp}}
	s := &sink{}

	w := New(api, testParams(5), nil, nil, nil, s.callbacks())
	w.Run(context.Background())

	assert.Equal(t, []string{"p1"}, api.detailCalls)
	require.Len(t, s.batches, 1)
	assert.Len(t, s.batches[0], 1)
}

func TestRunSwallowsDetailFailures(t *testing.T) {
	api := &fakeAPI{
		pages:     map[string]*places.SearchResponse{"": page("", "p1", "p2", "p3")},
		detailErr: map[string]error{"p2": errors.New("boom")},
	}
	s := &sink{}

	w := New(api, testParams(5), nil, nil, nil, s.callbacks())
	w.Run(context.Background())

	assert.Empty(t, s.errors, "per-entry failures are not surfaced")
	require.Len(t, s.batches, 1)
	assert.Len(t, s.batches[0], 2)
	assert.True(t, s.success)
}

func TestRunRetainsContinuationToken(t *testing.T) {
	api := &fakeAPI{pages: map[string]*places.SearchResponse{"": page("tok-2", "p1", "p2")}}
	s := &sink{}

	w := New(api, testParams(5), nil, nil, nil, s.callbacks())
	w.Run(context.Background())

	assert.True(t, s.hasMore)
	assert.True(t, s.success)
	assert.Equal(t, "tok-2", w.NextPageToken())

	// Next invocation resumes from the token.
	api.pages["tok-2"] = page("", "p3", "p4", "p5")
	s2 := &sink{}
	w2 := New(api, Params{Query: "restaurants", Target: 5, PageToken: w.NextPageToken(), PaginationDelay: time.Millisecond},
		map[string]struct{}{model.PlaceURL("p1"): {}, model.PlaceURL("p2"): {}},
		s.batches[0], nil, s2.callbacks())
	w2.Run(context.Background())

	require.Len(t, s2.batches, 1)
	assert.Len(t, s2.batches[0], 3)
	assert.False(t, s2.hasMore)
}

func TestRunCooperativeStop(t *testing.T) {
	api := &fakeAPI{pages: map[string]*places.SearchResponse{"": page("tok", "p1", "p2", "p3")}}
	s := &sink{}
	cb := s.callbacks()

	var w *Worker
	onProgress := cb.OnProgress
	cb.OnProgress = func(l string, n int) {
		onProgress(l, n)
		w.Stop() // request stop after the first accepted record
	}
	w = New(api, testParams(10), nil, nil, nil, cb)
	w.Run(context.Background())

	require.Len(t, s.batches, 1)
	assert.Len(t, s.batches[0], 1)
	assert.Equal(t, 1, s.done)
}

func TestRunNeverShrinksDedupSet(t *testing.T) {
	api := &fakeAPI{pages: map[string]*places.SearchResponse{"": page("", "p1")}}
	existing := map[string]struct{}{model.PlaceURL("old"): {}}
	s := &sink{}

	w := New(api, testParams(5), existing, nil, nil, s.callbacks())
	w.Run(context.Background())

	// The worker's copy grew; the caller's set is untouched.
	assert.Len(t, existing, 1)
	assert.GreaterOrEqual(t, len(w.seen), len(existing))
}

func TestRunRecoversFromPanic(t *testing.T) {
	s := &sink{}
	w := New(panicAPI{}, testParams(5), nil, nil, nil, s.callbacks())
	w.Run(context.Background())

	require.Len(t, s.errors, 1)
	assert.Contains(t, s.errors[0], "unexpected error")
	assert.False(t, s.success)
	assert.Equal(t, 1, s.done)
}

func TestRunStopDuringPaginationDelay(t *testing.T) {
	api := &fakeAPI{pages: map[string]*places.SearchResponse{"tok": page("", "p1")}}
	s := &sink{}

	w := New(api, Params{Query: "restaurants", Target: 5, PageToken: "tok", PaginationDelay: 5 * time.Second},
		nil, nil, nil, s.callbacks())
	w.Stop()

	start := time.Now()
	w.Run(context.Background())

	assert.Less(t, time.Since(start), time.Second, "stop must not wait out the delay")
	assert.Equal(t, 0, api.searchCalls)
	assert.Empty(t, s.batches)
	assert.Empty(t, s.errors, "a requested stop is not a failure")
	assert.Equal(t, 1, s.done)
	assert.True(t, s.success)
	assert.False(t, s.hasMore)
}

func TestRunContextCancelDuringPaginationDelay(t *testing.T) {
	api := &fakeAPI{pages: map[string]*places.SearchResponse{"tok": page("", "p1")}}
	s := &sink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(api, Params{Query: "restaurants", Target: 5, PageToken: "tok", PaginationDelay: 5 * time.Second},
		nil, nil, nil, s.callbacks())

	start := time.Now()
	w.Run(ctx)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, api.searchCalls)
	assert.Equal(t, 1, s.done)
	assert.True(t, s.success)
}

type panicAPI struct{}

func (panicAPI) TextSearch(context.Context, string, string) (*places.SearchResponse, error) {
	panic(fmt.Errorf("wire explosion"))
}

func (panicAPI) PlaceDetails(context.Context, string) (map[string]any, error) {
	return nil, nil
}
