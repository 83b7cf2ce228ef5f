package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"placetap/internal/engine/places"
	"placetap/internal/model"
)

// DefaultPaginationDelay is the fixed wait the API requires before a
// continued search is valid.
const DefaultPaginationDelay = 2 * time.Second

// API is the slice of the places client the pipeline consumes.
type API interface {
	TextSearch(ctx context.Context, query, pageToken string) (*places.SearchResponse, error)
	PlaceDetails(ctx context.Context, placeID string) (map[string]any, error)
}

// Params configures a single pipeline invocation.
type Params struct {
	Query  string
	Target int // total records wanted across the session

	// PageToken continues a previous search. Session-scoped, never persisted.
	PageToken string

	// PaginationDelay overrides the fixed pre-continuation wait.
	// Zero means DefaultPaginationDelay.
	PaginationDelay time.Duration
}

// Callbacks are the four one-way notifications to the orchestrator.
// The batch is emitted once per invocation, not per record. OnProgress
// carries the running total both as the display label and as a number.
type Callbacks struct {
	OnBatch    func([]model.BusinessRecord)
	OnProgress func(label string, fetched int)
	OnError    func(msg string)
	OnDone     func(hasMore, success bool)
}

// Worker runs one fetch invocation. It operates on private copies of the
// caller's dedup set and accumulated list; the caller merges the emitted
// batch back into its own state after OnDone.
type Worker struct {
	api         API
	params      Params
	seen        map[string]struct{}
	accumulated []model.BusinessRecord
	nextToken   string
	logger      *log.Logger
	cb          Callbacks
	stop        atomic.Bool
}

// New copies existingURLs and accumulated so the worker never touches the
// caller's collections.
func New(api API, params Params, existingURLs map[string]struct{}, accumulated []model.BusinessRecord, logger *log.Logger, cb Callbacks) *Worker {
	if params.PaginationDelay == 0 {
		params.PaginationDelay = DefaultPaginationDelay
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cb.OnBatch == nil {
		cb.OnBatch = func([]model.BusinessRecord) {}
	}
	if cb.OnProgress == nil {
		cb.OnProgress = func(string, int) {}
	}
	if cb.OnError == nil {
		cb.OnError = func(string) {}
	}
	if cb.OnDone == nil {
		cb.OnDone = func(bool, bool) {}
	}

	seen := make(map[string]struct{}, len(existingURLs))
	for u := range existingURLs {
		seen[u] = struct{}{}
	}
	acc := make([]model.BusinessRecord, len(accumulated))
	copy(acc, accumulated)

	return &Worker{
		api:         api,
		params:      params,
		seen:        seen,
		accumulated: acc,
		logger:      logger,
		cb:          cb,
	}
}

// Stop requests a cooperative stop. It is polled once per result entry;
// an in-flight detail lookup is not interrupted.
func (w *Worker) Stop() {
	w.stop.Store(true)
}

// NextPageToken returns the continuation token retained by the last
// invocation, or "" when the search is exhausted.
func (w *Worker) NextPageToken() string {
	return w.nextToken
}

// Run executes one invocation. Any panic is reported as a generic error
// and the invocation is marked failed.
func (w *Worker) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.cb.OnError(fmt.Sprintf("unexpected error: %v", r))
			w.cb.OnDone(false, false)
		}
	}()
	w.fetch(ctx)
}

func (w *Worker) fetch(ctx context.Context) {
	needed := w.params.Target - len(w.accumulated)
	if needed <= 0 {
		w.cb.OnDone(false, true)
		return
	}

	var resp *places.SearchResponse
	var err error
	if w.params.PageToken != "" {
		if !w.pause(ctx) {
			w.cb.OnDone(false, true)
			return
		}
		resp, err = w.api.TextSearch(ctx, w.params.Query, w.params.PageToken)
	} else {
		resp, err = w.api.TextSearch(ctx, w.params.Query, "")
	}
	if err != nil {
		w.cb.OnError(fmt.Sprintf("search failed: %v", err))
		w.cb.OnDone(false, false)
		return
	}
	if resp == nil || len(resp.Results) == 0 {
		w.cb.OnError("no results found for the search query")
		w.cb.OnDone(false, false)
		return
	}

	var newRecords []model.BusinessRecord
	for _, res := range resp.Results {
		if w.stop.Load() {
			break
		}
		if len(w.accumulated)+len(newRecords) >= w.params.Target {
			break
		}
		if res.PlaceID == "" {
			continue
		}

		details, err := w.api.PlaceDetails(ctx, res.PlaceID)
		if err != nil || details == nil {
			// Partial failures are tolerated: log, skip, keep going.
			w.logger.Printf("DETAIL_SKIP place=%q id=%s err=%v", res.Name, res.PlaceID, err)
			continue
		}

		rec := model.FromPlaceDetails(details, res.PlaceID)
		if _, dup := w.seen[rec.GMapsURL]; dup {
			continue
		}

		newRecords = append(newRecords, rec)
		w.seen[rec.GMapsURL] = struct{}{}
		fetched := len(w.accumulated) + len(newRecords)
		w.cb.OnProgress(fmt.Sprintf("Fetched: %d", fetched), fetched)
	}

	if len(newRecords) > 0 {
		w.cb.OnBatch(newRecords)
		w.accumulated = append(w.accumulated, newRecords...)
	}

	hasMore := false
	if len(w.accumulated) < w.params.Target && resp.NextPageToken != "" {
		hasMore = true
		w.nextToken = resp.NextPageToken
	}
	w.cb.OnDone(hasMore, true)
}

// pause waits the fixed pagination delay. It returns false without
// completing the wait when a stop is requested or ctx is cancelled.
func (w *Worker) pause(ctx context.Context) bool {
	timer := time.NewTimer(w.params.PaginationDelay)
	defer timer.Stop()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for {
		if w.stop.Load() {
			return false
		}
		select {
		case <-timer.C:
			return true
		case <-ctx.Done():
			return false
		case <-poll.C:
		}
	}
}
