package oauth2session

import (
	"sync"
	"time"
)

// Tokens is an immutable snapshot of the credentials issued by the token
// endpoint. A Tokens value is either zero (nothing obtained yet) or carries a
// non-empty access token with a computable expiry instant.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`

	// ExpiresIn is the token lifetime in seconds from IssuedAt.
	ExpiresIn int64 `json:"expires_in"`
}

// IsZero reports whether no token has been issued.
func (t Tokens) IsZero() bool {
	return t.AccessToken == ""
}

// Lifetime returns the issued validity window as a duration.
func (t Tokens) Lifetime() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

// ExpiresAt returns the instant at which the access token expires.
func (t Tokens) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.Lifetime())
}

// store holds the current token snapshot. Snapshots are replaced wholesale,
// never mutated field-by-field, so readers can never observe a partial update.
type store struct {
	mu  sync.RWMutex
	tok Tokens
	now func() time.Time
}

func newStore(now func() time.Time) *store {
	return &store{now: now}
}

// Current returns the held snapshot and whether one exists.
func (s *store) Current() (Tokens, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tok, !s.tok.IsZero()
}

// Replace swaps in a new snapshot.
func (s *store) Replace(tok Tokens) {
	s.mu.Lock()
	s.tok = tok
	s.mu.Unlock()
}

// ExpiringWithin reports whether the held token is due for renewal: true when
// no token is held, or when now is within margin of the expiry instant. The
// margin is clamped to half the token lifetime so short-lived tokens keep a
// usable window.
func (s *store) ExpiringWithin(margin time.Duration) bool {
	_, _, fresh := s.Snapshot(margin)
	return !fresh
}

// Snapshot reads the held token and its freshness in one atomic step, so a
// caller can never pair an old snapshot with a newer token's freshness verdict.
func (s *store) Snapshot(margin time.Duration) (tok Tokens, held, fresh bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tok.IsZero() {
		return Tokens{}, false, false
	}
	if half := s.tok.Lifetime() / 2; half < margin {
		margin = half
	}
	return s.tok, true, s.now().Before(s.tok.ExpiresAt().Add(-margin))
}
