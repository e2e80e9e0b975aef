package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/civibook/civibook-go/internal/civibook"
)

// fakeAPI scripts feed responses per call.
type fakeAPI struct {
	mu       sync.Mutex
	pages    []*civibook.EventPage
	calls    int
	filters  []civibook.EventFilter
	ctxs     []context.Context
	likeErr  error
	liked    map[int64]bool
	tracked  map[int64]bool
	fetchErr error
	started  chan struct{} // closed on first Events call, if set
	release  chan struct{} // Events blocks on this, if set
}

func (f *fakeAPI) Events(ctx context.Context, filter civibook.EventFilter) (*civibook.EventPage, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.filters = append(f.filters, filter)
	f.ctxs = append(f.ctxs, ctx)
	started := f.started
	release := f.release
	f.started = nil
	f.release = nil
	f.mu.Unlock()

	// Only the first call blocks; later calls run to completion.
	if started != nil {
		close(started)
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pages) == 0 {
		return &civibook.EventPage{Page: filter.Page, TotalPages: 1}, nil
	}
	page := f.pages[(call-1)%len(f.pages)]
	return page, nil
}

func (f *fakeAPI) Like(ctx context.Context, id int64) error {
	if f.likeErr != nil {
		return f.likeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liked == nil {
		f.liked = map[int64]bool{}
	}
	f.liked[id] = true
	return nil
}

func (f *fakeAPI) Unlike(ctx context.Context, id int64) error {
	if f.likeErr != nil {
		return f.likeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liked == nil {
		f.liked = map[int64]bool{}
	}
	f.liked[id] = false
	return nil
}

func (f *fakeAPI) Track(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tracked == nil {
		f.tracked = map[int64]bool{}
	}
	f.tracked[id] = true
	return nil
}

func (f *fakeAPI) Untrack(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tracked == nil {
		f.tracked = map[int64]bool{}
	}
	f.tracked[id] = false
	return nil
}

type fakeCache struct {
	saved  []civibook.Event
	stored []civibook.Event
	err    error
}

func (f *fakeCache) SaveEvents(ctx context.Context, events []civibook.Event) error {
	if f.err != nil {
		return f.err
	}
	f.saved = events
	return nil
}

func (f *fakeCache) Events(ctx context.Context) ([]civibook.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stored, nil
}

func TestRefresh_LoadsPage(t *testing.T) {
	api := &fakeAPI{pages: []*civibook.EventPage{{
		Data:       []civibook.Event{{ID: 1, Name: "Fair"}},
		Page:       1,
		TotalPages: 3,
	}}}
	store := NewStore(api, nil)

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if got := store.Events(); len(got) != 1 || got[0].Name != "Fair" {
		t.Errorf("events: %+v", got)
	}
	if store.TotalPages() != 3 {
		t.Errorf("total pages: %d", store.TotalPages())
	}
	if store.Loading() {
		t.Error("loading should clear after fetch")
	}
}

func TestRefresh_SavesToCache(t *testing.T) {
	api := &fakeAPI{pages: []*civibook.EventPage{{
		Data:       []civibook.Event{{ID: 1, Name: "Fair"}},
		TotalPages: 1,
	}}}
	cache := &fakeCache{}
	store := NewStore(api, cache)

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if len(cache.saved) != 1 || cache.saved[0].Name != "Fair" {
		t.Errorf("refresh should persist the page to cache, got %+v", cache.saved)
	}
	if store.FromCache() {
		t.Error("live fetch should not be flagged as cached")
	}
}

func TestRefresh_FallsBackToCacheOnFailure(t *testing.T) {
	api := &fakeAPI{fetchErr: errors.New("offline")}
	cache := &fakeCache{stored: []civibook.Event{{ID: 9, Name: "cached"}}}
	store := NewStore(api, cache)

	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	got := store.Events()
	if len(got) != 1 || got[0].Name != "cached" {
		t.Fatalf("expected cached events, got %+v", got)
	}
	if !store.FromCache() {
		t.Error("fallback should be flagged as cached")
	}
	if store.ErrMessage() == "" {
		t.Error("error should still be surfaced")
	}
}

func TestRefresh_ReleasesFetchContext(t *testing.T) {
	api := &fakeAPI{pages: []*civibook.EventPage{{TotalPages: 1}}}
	store := NewStore(api, nil)

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// The per-fetch child context must not outlive its refresh, or a
	// long-running feed accumulates one per fetch.
	api.mu.Lock()
	fetchCtx := api.ctxs[0]
	api.mu.Unlock()
	if fetchCtx.Err() == nil {
		t.Error("fetch context should be cancelled once the refresh completes")
	}
}

func TestRefresh_ErrorSurfacesMessage(t *testing.T) {
	api := &fakeAPI{fetchErr: errors.New("boom")}
	store := NewStore(api, nil)

	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if store.ErrMessage() == "" {
		t.Error("expected error message for the UI")
	}
	if store.Loading() {
		t.Error("loading should clear after failure")
	}
}

func TestRefresh_SupersededFetchIsCancelledAndDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		started: started,
		release: release,
		pages: []*civibook.EventPage{
			{Data: []civibook.Event{{ID: 1, Name: "stale"}}, TotalPages: 1},
			{Data: []civibook.Event{{ID: 2, Name: "fresh"}}, TotalPages: 1},
		},
	}
	store := NewStore(api, nil)

	firstDone := make(chan error, 1)
	go func() { firstDone <- store.Refresh(context.Background()) }()
	<-started

	// A changed filter supersedes the fetch in flight: its context is
	// cancelled and its result discarded. The blocked first call only
	// unblocks through that cancellation; release stays closed off.
	if err := store.ApplyFilter(context.Background(), civibook.EventFilter{Category: "Arts"}); err != nil {
		t.Fatalf("superseding refresh: %v", err)
	}
	if err := <-firstDone; err != nil {
		t.Fatalf("superseded refresh should report nothing, got %v", err)
	}

	events := store.Events()
	if len(events) != 1 || events[0].Name != "fresh" {
		t.Errorf("expected fresh result to win, got %+v", events)
	}
}

func TestApplyFilter_ResetsToFirstPage(t *testing.T) {
	api := &fakeAPI{pages: []*civibook.EventPage{{TotalPages: 5}}}
	store := NewStore(api, nil)

	if err := store.ApplyFilter(context.Background(), civibook.EventFilter{Category: "Arts", Page: 9}); err != nil {
		t.Fatalf("ApplyFilter: %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	sent := api.filters[len(api.filters)-1]
	if sent.Page != 1 {
		t.Errorf("filter page should reset to 1, got %d", sent.Page)
	}
	if sent.Category != "Arts" {
		t.Errorf("category: %q", sent.Category)
	}
	if sent.PerPage != defaultPerPage {
		t.Errorf("per page default: %d", sent.PerPage)
	}
}

func TestNextPage_StopsAtLastPage(t *testing.T) {
	api := &fakeAPI{pages: []*civibook.EventPage{{TotalPages: 2}}}
	store := NewStore(api, nil)

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := store.NextPage(context.Background()); err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	if store.Page() != 2 {
		t.Fatalf("page: %d", store.Page())
	}

	// Already on the last page; no fetch happens.
	before := api.calls
	if err := store.NextPage(context.Background()); err != nil {
		t.Fatalf("NextPage at end: %v", err)
	}
	if api.calls != before {
		t.Error("NextPage past the end should not fetch")
	}
}

func TestToggleLike_Optimistic(t *testing.T) {
	api := &fakeAPI{pages: []*civibook.EventPage{{
		Data:       []civibook.Event{{ID: 4, Likes: 2, IsLiked: false}},
		TotalPages: 1,
	}}}
	store := NewStore(api, nil)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := store.ToggleLike(context.Background(), 4); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}

	events := store.Events()
	if !events[0].IsLiked || events[0].Likes != 3 {
		t.Errorf("expected liked with 3 likes, got %+v", events[0])
	}
	if !api.liked[4] {
		t.Error("backend should have received the like")
	}
}

func TestToggleLike_RollsBackOnFailure(t *testing.T) {
	api := &fakeAPI{
		pages: []*civibook.EventPage{{
			Data:       []civibook.Event{{ID: 4, Likes: 2, IsLiked: false}},
			TotalPages: 1,
		}},
		likeErr: errors.New("offline"),
	}
	store := NewStore(api, nil)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := store.ToggleLike(context.Background(), 4); err == nil {
		t.Fatal("expected error")
	}

	events := store.Events()
	if events[0].IsLiked || events[0].Likes != 2 {
		t.Errorf("expected rollback to 2 unliked, got %+v", events[0])
	}
}

func TestSetTracked(t *testing.T) {
	api := &fakeAPI{}
	store := NewStore(api, nil)

	if err := store.SetTracked(context.Background(), 9, true); err != nil {
		t.Fatalf("track: %v", err)
	}
	if !api.tracked[9] {
		t.Error("event should be tracked")
	}
	if err := store.SetTracked(context.Background(), 9, false); err != nil {
		t.Fatalf("untrack: %v", err)
	}
	if api.tracked[9] {
		t.Error("event should be untracked")
	}
}
