package oauth2session

import (
	"log"
	"time"
)

// Logger is an interface for optional logging in Session.
// Implementations can log token refresh events if desired.
// zerolog.Logger satisfies it via its Printf method.
type Logger interface {
	Printf(format string, args ...any)
}

// Config is the immutable OAuth configuration for one session.
type Config struct {
	// ClientID and ClientSecret are the application credentials. Required.
	ClientID     string
	ClientSecret string

	// RefreshToken optionally seeds the session with a stored refresh token so
	// it can warm-start without re-running an initial exchange.
	RefreshToken string

	// DisableAutoRefresh turns off the freshness guard: stale tokens are
	// returned as-is and renewal is left to explicit Refresh calls.
	DisableAutoRefresh bool

	// OnTokenRefresh is invoked after every successful token rotation, e.g. to
	// persist the new refresh token. It runs synchronously after the store
	// update; panics are swallowed and logged, never surfaced to API callers.
	OnTokenRefresh func(Tokens)
}

// Option is a functional option for configuring Session.
type Option func(*Session)

// WithLogger sets a custom logger for token lifecycle events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
// This is a convenience option that sets the logger to log.Default().
func WithLoggingEnabled() Option {
	return func(s *Session) {
		s.logger = log.Default()
	}
}

// WithRefreshMargin overrides the lead time before expiry at which tokens are
// treated as due for renewal. Default is DefaultRefreshMargin.
func WithRefreshMargin(margin time.Duration) Option {
	return func(s *Session) {
		if margin > 0 {
			s.margin = margin
		}
	}
}

// WithClock overrides the session's time source. Intended for tests that need
// to advance virtual time across token validity windows.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
			s.store.now = now
		}
	}
}
