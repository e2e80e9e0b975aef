package civibook

import "sync"

// Session holds the bearer token for authenticated calls. It replaces
// ambient token storage with an explicit object handed to the client;
// components that need no authentication never see it.
type Session struct {
	mu    sync.RWMutex
	token string
}

// NewSession returns a session primed with token, which may be empty
// for an anonymous session.
func NewSession(token string) *Session {
	return &Session{token: token}
}

// SetToken replaces the bearer token, e.g. after a login or refresh.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Token returns the current bearer token, empty if unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}
