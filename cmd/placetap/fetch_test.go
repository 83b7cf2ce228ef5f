package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placetap/internal/engine/fetch"
	"placetap/internal/engine/places"
	"placetap/internal/model"
)

type stubAPI struct {
	resp        *places.SearchResponse
	detailCalls int
}

func (s *stubAPI) TextSearch(context.Context, string, string) (*places.SearchResponse, error) {
	return s.resp, nil
}

func (s *stubAPI) PlaceDetails(_ context.Context, placeID string) (map[string]any, error) {
	s.detailCalls++
	return map[string]any{"name": "biz-" + placeID}, nil
}

func newStubWorker(api *stubAPI, cb fetch.Callbacks) *fetch.Worker {
	return fetch.New(api, fetch.Params{
		Query:           "restaurants",
		Target:          10,
		PaginationDelay: time.Millisecond,
	}, nil, nil, nil, cb)
}

func TestCurrentWorkerStopBeforeAnyWorker(t *testing.T) {
	cur := &currentWorker{}
	assert.False(t, cur.isStopped())

	// A signal between pages must halt the loop even with no worker set.
	cur.stop()
	assert.True(t, cur.isStopped())
}

func TestCurrentWorkerStopReachesActiveWorker(t *testing.T) {
	api := &stubAPI{resp: &places.SearchResponse{Results: []places.SearchResult{
		{PlaceID: "p1", Name: "biz-p1"},
		{PlaceID: "p2", Name: "biz-p2"},
		{PlaceID: "p3", Name: "biz-p3"},
	}}}

	cur := &currentWorker{}
	var batches [][]model.BusinessRecord
	w := newStubWorker(api, fetch.Callbacks{
		OnBatch: func(b []model.BusinessRecord) { batches = append(batches, b) },
		OnProgress: func(string, int) {
			cur.stop() // signal arrives mid-page
		},
	})
	cur.set(w)

	w.Run(context.Background())

	assert.True(t, cur.isStopped())
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 1, "worker stops after the entry in flight")
	assert.Equal(t, 1, api.detailCalls)
}

func TestCurrentWorkerSetSwapsPointer(t *testing.T) {
	api := &stubAPI{resp: &places.SearchResponse{}}
	cur := &currentWorker{}

	w1 := newStubWorker(api, fetch.Callbacks{})
	cur.set(w1)
	cur.set(nil)

	// Stop with the finished worker cleared still marks the loop stopped.
	cur.stop()
	assert.True(t, cur.isStopped())
}
