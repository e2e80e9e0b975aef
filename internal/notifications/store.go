// Package notifications keeps the user's reservation notifications
// fresh: an observable store plus a background poller.
package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/civibook/civibook-go/internal/civibook"
)

// API is the slice of the platform client the store needs.
type API interface {
	Notifications(ctx context.Context) ([]civibook.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
}

// Cache persists the last fetched notifications for offline reads.
type Cache interface {
	SaveNotifications(ctx context.Context, notifications []civibook.Notification) error
	Notifications(ctx context.Context) ([]civibook.Notification, error)
}

// Store is the observable notification list. A nil cache disables the
// offline fallback.
type Store struct {
	client API
	cache  Cache

	mu            sync.Mutex
	notifications []civibook.Notification
	fromCache     bool
	errMessage    string
	onChange      func()
}

// NewStore creates a notification store over client. cache may be nil.
func NewStore(client API, cache Cache) *Store {
	return &Store{client: client, cache: cache}
}

// OnChange registers a callback invoked after every refresh or
// read-state change.
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

// Notifications returns the current list, newest first.
func (s *Store) Notifications() []civibook.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]civibook.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount returns how many notifications have no read timestamp.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if !n.Read() {
			count++
		}
	}
	return count
}

// FromCache reports whether the current list came from the offline
// cache rather than the backend.
func (s *Store) FromCache() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fromCache
}

// ErrMessage returns the last refresh error message, empty on success.
func (s *Store) ErrMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMessage
}

// Refresh fetches the notification list. On transport failure the
// store falls back to the cached copy, if any, so the UI can still
// show something; the error is surfaced either way.
func (s *Store) Refresh(ctx context.Context) error {
	notifications, err := s.client.Notifications(ctx)
	if err != nil {
		s.mu.Lock()
		s.errMessage = "Failed to load notifications."
		s.mu.Unlock()

		if s.cache != nil {
			if cached, cacheErr := s.cache.Notifications(ctx); cacheErr == nil && len(cached) > 0 {
				s.mu.Lock()
				s.notifications = cached
				s.fromCache = true
				s.mu.Unlock()
				log.Debug().Int("count", len(cached)).Msg("Serving notifications from cache")
			}
		}
		s.notify()
		return err
	}

	s.mu.Lock()
	s.notifications = notifications
	s.fromCache = false
	s.errMessage = ""
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SaveNotifications(ctx, notifications); err != nil {
			log.Warn().Err(err).Msg("Failed to cache notifications")
		}
	}
	s.notify()
	return nil
}

// MarkRead marks one notification read, locally first so the badge
// updates immediately, then on the backend.
func (s *Store) MarkRead(ctx context.Context, notificationID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	s.mu.Lock()
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID && s.notifications[i].ReadAt == nil {
			s.notifications[i].ReadAt = &now
			break
		}
	}
	s.mu.Unlock()
	s.notify()

	return s.client.MarkNotificationRead(ctx, notificationID)
}
