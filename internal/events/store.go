// Package events holds the event feed store: the filtered, paginated
// event listing with like and reminder-tracking state.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/civibook/civibook-go/internal/civibook"
)

// API is the slice of the platform client the store needs.
type API interface {
	Events(ctx context.Context, filter civibook.EventFilter) (*civibook.EventPage, error)
	Like(ctx context.Context, eventID int64) error
	Unlike(ctx context.Context, eventID int64) error
	Track(ctx context.Context, eventID int64) error
	Untrack(ctx context.Context, eventID int64) error
}

// Cache persists the last fetched page of events for offline reads.
type Cache interface {
	SaveEvents(ctx context.Context, events []civibook.Event) error
	Events(ctx context.Context) ([]civibook.Event, error)
}

const defaultPerPage = 5

// Store is the observable feed state. One fetch per logical action is
// in flight at a time: a newer Refresh cancels the superseded request
// outright instead of letting it finish and racing on the result. A
// nil cache disables the offline fallback.
type Store struct {
	client API
	cache  Cache

	mu          sync.Mutex
	filter      civibook.EventFilter
	events      []civibook.Event
	totalPages  int
	loading     bool
	fromCache   bool
	errMessage  string
	generation  int
	inflightKey string
	cancel      context.CancelFunc

	group    singleflight.Group
	onChange func()
}

// NewStore creates a feed over client with default pagination. cache
// may be nil.
func NewStore(client API, cache Cache) *Store {
	return &Store{
		client: client,
		cache:  cache,
		filter: civibook.EventFilter{Page: 1, PerPage: defaultPerPage},
	}
}

// OnChange registers a callback invoked after every observable
// mutation.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Events returns the current page contents.
func (s *Store) Events() []civibook.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]civibook.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ErrMessage returns the last fetch error message, empty when the
// last fetch succeeded.
func (s *Store) ErrMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMessage
}

// FromCache reports whether the current events came from the offline
// cache rather than the backend.
func (s *Store) FromCache() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fromCache
}

// TotalPages returns the page count reported by the last fetch.
func (s *Store) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPages
}

// Page returns the current page number.
func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Page
}

// ApplyFilter replaces the filter, resets to the first page, and
// refetches.
func (s *Store) ApplyFilter(ctx context.Context, filter civibook.EventFilter) error {
	s.mu.Lock()
	if filter.PerPage == 0 {
		filter.PerPage = defaultPerPage
	}
	filter.Page = 1
	s.filter = filter
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// ResetFilters clears every constraint and refetches the first page.
func (s *Store) ResetFilters(ctx context.Context) error {
	return s.ApplyFilter(ctx, civibook.EventFilter{})
}

// NextPage advances one page if one exists and refetches.
func (s *Store) NextPage(ctx context.Context) error {
	s.mu.Lock()
	if s.filter.Page >= s.totalPages {
		s.mu.Unlock()
		return nil
	}
	s.filter.Page++
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh fetches the current page. A Refresh with a changed filter
// while an earlier fetch is still running cancels that request; the
// stale result never reaches the store. Identical concurrent refreshes
// share one request through singleflight. On transport failure the
// store falls back to the cached copy, if any; the error is surfaced
// either way.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	filter := s.filter
	key := filterKey(filter)
	if s.cancel != nil && s.inflightKey != key {
		// Supersede: the old fetch answers a question nobody is
		// asking anymore.
		s.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.inflightKey = key
	s.generation++
	generation := s.generation
	s.loading = true
	s.errMessage = ""
	s.mu.Unlock()
	s.notify()

	// The fetch is over once group.Do returns, so releasing the child
	// context here cannot disturb a caller still sharing the flight.
	defer cancel()

	result, err, _ := s.group.Do(key, func() (any, error) {
		return s.client.Events(fetchCtx, filter)
	})

	s.mu.Lock()
	if generation != s.generation {
		// Superseded while in flight; a newer fetch owns the state.
		s.mu.Unlock()
		return nil
	}
	s.cancel = nil
	s.loading = false
	if err != nil {
		s.errMessage = fmt.Sprintf("Failed to load events: %v", err)
		s.mu.Unlock()

		if s.cache != nil {
			if cached, cacheErr := s.cache.Events(ctx); cacheErr == nil && len(cached) > 0 {
				s.mu.Lock()
				s.events = cached
				s.fromCache = true
				s.mu.Unlock()
				log.Debug().Int("count", len(cached)).Msg("Serving events from cache")
			}
		}
		s.notify()
		return err
	}
	page := result.(*civibook.EventPage)
	s.events = page.Data
	s.totalPages = page.TotalPages
	s.fromCache = false
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SaveEvents(ctx, page.Data); err != nil {
			log.Warn().Err(err).Msg("Failed to cache events")
		}
	}
	s.notify()
	return nil
}

func filterKey(f civibook.EventFilter) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%d|%d",
		f.POIID, f.Category, f.Search, f.StartDate, f.EndDate, f.Page, f.PerPage)
}

// ToggleLike optimistically flips an event's like state, then settles
// it with the backend, rolling back if the request fails.
func (s *Store) ToggleLike(ctx context.Context, eventID int64) error {
	s.mu.Lock()
	index := -1
	for i := range s.events {
		if s.events[i].ID == eventID {
			index = i
			break
		}
	}
	if index < 0 {
		s.mu.Unlock()
		return fmt.Errorf("event %d not in feed", eventID)
	}
	liked := s.events[index].IsLiked
	s.applyLike(index, !liked)
	s.mu.Unlock()
	s.notify()

	var err error
	if liked {
		err = s.client.Unlike(ctx, eventID)
	} else {
		err = s.client.Like(ctx, eventID)
	}
	if err != nil {
		log.Warn().Err(err).Int64("event_id", eventID).Msg("Like toggle failed, rolling back")
		s.mu.Lock()
		for i := range s.events {
			if s.events[i].ID == eventID {
				s.applyLike(i, liked)
				break
			}
		}
		s.mu.Unlock()
		s.notify()
		return err
	}
	return nil
}

// applyLike sets like state on one event; callers hold the lock.
func (s *Store) applyLike(index int, liked bool) {
	event := &s.events[index]
	if event.IsLiked == liked {
		return
	}
	event.IsLiked = liked
	if liked {
		event.Likes++
	} else if event.Likes > 0 {
		event.Likes--
	}
}

// SetTracked tracks or untracks an event for email reminders.
func (s *Store) SetTracked(ctx context.Context, eventID int64, tracked bool) error {
	if tracked {
		return s.client.Track(ctx, eventID)
	}
	return s.client.Untrack(ctx, eventID)
}
