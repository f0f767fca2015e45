package oauth2session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/carthooks/sdk-go/transport"
)

// DefaultRefreshMargin is the lead time before expiry at which tokens are
// renewed, matching the documented "refresh 5 minutes before expiration"
// guarantee. For short-lived tokens the margin is clamped to half the lifetime.
const DefaultRefreshMargin = 5 * time.Minute

const (
	tokenPath         = "/open/api/oauth/token"
	authorizeCodePath = "/api/oauth/get-authorize-code"

	// defaultExpirySeconds applies when the token endpoint omits expires_in.
	defaultExpirySeconds = 24 * 60 * 60
)

// Invoker performs HTTP calls against the API host. transport.Client
// implements it; tests substitute in-memory fakes.
type Invoker interface {
	Invoke(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Session manages the OAuth token lifecycle for one authentication mode:
// it caches the current token set, renews it before expiry with single-flight
// coordination under concurrent callers, and notifies a registered callback on
// every successful rotation. It is safe for concurrent use.
type Session struct {
	cfg     Config
	invoker Invoker
	store   *store
	flight  singleflight.Group
	margin  time.Duration
	logger  Logger // optional logger
	notify  *notifier
	now     func() time.Time

	mu     sync.Mutex // guards grant and closed
	grant  grant
	closed bool
}

// New creates a session from an immutable config and an API invoker.
// It fails fast with ErrMissingCredentials when the client credentials are
// absent; no network call is attempted at construction.
func New(cfg Config, invoker Invoker, opts ...Option) (*Session, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if invoker == nil {
		return nil, errors.New("oauth2session: invoker is required")
	}

	s := &Session{
		cfg:     cfg,
		invoker: invoker,
		margin:  DefaultRefreshMargin,
		now:     time.Now,
	}
	s.store = newStore(time.Now)

	for _, opt := range opts {
		opt(s)
	}

	s.notify = &notifier{callback: cfg.OnTokenRefresh, logger: s.logger}

	return s, nil
}

// Initialize obtains an initial token set with the client-credentials grant.
// Calling it again re-runs initialization and replaces prior state.
func (s *Session) Initialize(ctx context.Context) (Tokens, error) {
	return s.initialize(ctx, clientCredentialsGrant{})
}

// InitializeWithUserToken exchanges a caller-supplied user access token
// together with the client credentials for a session token carrying that
// user's permissions.
func (s *Session) InitializeWithUserToken(ctx context.Context, userToken string) (Tokens, error) {
	if userToken == "" {
		return Tokens{}, errors.New("oauth2session: user token is required")
	}
	return s.initialize(ctx, userTokenGrant{userToken: userToken})
}

// ExchangeAuthorizationCode redeems an authorization code received on the
// caller's redirect URI for a token set.
func (s *Session) ExchangeAuthorizationCode(ctx context.Context, code, redirectURI string) (Tokens, error) {
	if code == "" {
		return Tokens{}, errors.New("oauth2session: authorization code is required")
	}
	return s.initialize(ctx, authorizationCodeGrant{code: code, redirectURI: redirectURI})
}

func (s *Session) initialize(ctx context.Context, g grant) (Tokens, error) {
	if err := s.usable(); err != nil {
		return Tokens{}, err
	}

	tok, err := s.exchange(ctx, g.request(s.cfg))
	if err != nil {
		return Tokens{}, err
	}

	s.mu.Lock()
	s.grant = g
	s.mu.Unlock()

	s.commit(tok)
	s.logf("oauth2session: initialized with %s grant (expires: %s)", g.name(), tok.ExpiresAt().Format(time.RFC3339))
	return tok, nil
}

// GetAuthorizeCode requests a redirect URL for the authorization-code flow.
// The caller's web front end must perform the redirect and correlate the
// echoed state on callback.
func (s *Session) GetAuthorizeCode(ctx context.Context, req AuthorizeCodeRequest) (*AuthorizeCode, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if req.RedirectURI == "" {
		return nil, errors.New("oauth2session: redirect URI is required")
	}
	if req.ClientID == "" {
		req.ClientID = s.cfg.ClientID
	}
	if req.State == "" {
		req.State = uuid.NewString()
	}

	resp, err := s.invoker.Invoke(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   authorizeCodePath,
		Body:   req,
	})
	if err != nil {
		return nil, fmt.Errorf("oauth2session: authorize code request: %w", err)
	}
	if !resp.OK() {
		return nil, remoteError(resp)
	}

	var code AuthorizeCode
	if err := resp.Decode(&code); err != nil {
		return nil, err
	}
	if code.State != req.State {
		return nil, fmt.Errorf("oauth2session: authorize code state mismatch: sent %q, received %q", req.State, code.State)
	}
	return &code, nil
}

// EnsureFresh returns a token set guaranteed usable for an outbound call.
//
// The fast path is a lock-free-read check with no network call. When the token
// is within the refresh margin of expiry, one renewal exchange runs for all
// concurrent callers; everyone waits on it and receives the identical outcome.
// With auto-refresh disabled the stale token is returned as-is and renewal is
// the caller's responsibility.
func (s *Session) EnsureFresh(ctx context.Context) (Tokens, error) {
	if err := s.usable(); err != nil {
		return Tokens{}, err
	}

	tok, held, fresh := s.store.Snapshot(s.margin)
	if fresh {
		return tok, nil
	}

	if s.cfg.DisableAutoRefresh {
		if held {
			return tok, nil
		}
		return Tokens{}, ErrNotInitialized
	}

	if !held && s.cfg.RefreshToken == "" && s.activeGrant() == nil {
		return Tokens{}, ErrNotInitialized
	}

	return s.renewShared(ctx, "", true)
}

// Refresh renews the token set immediately, bypassing the expiry check but
// still collapsing into any in-flight renewal. An explicit refreshToken wins
// over stored state for this call only; pass "" to use the stored one.
// Manual refreshes are never auto-retried.
func (s *Session) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	if err := s.usable(); err != nil {
		return Tokens{}, err
	}
	return s.renewShared(ctx, refreshToken, false)
}

// CurrentTokens returns a copy of the current token set, or nil when none has
// been obtained. It never triggers a network call.
func (s *Session) CurrentTokens() *Tokens {
	if tok, ok := s.store.Current(); ok {
		return &tok
	}
	return nil
}

// Close marks the session unusable. An in-flight renewal completes on its own;
// subsequent operations fail with ErrSessionClosed. Closing does not discard
// the invoker, which the owner releases separately.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// renewShared funnels every renewal through one single-flight execution.
// Waiters joining an in-flight renewal all receive its outcome; the refresh
// callback has already fired by the time any waiter resumes.
func (s *Session) renewShared(ctx context.Context, explicit string, scheduled bool) (Tokens, error) {
	v, err, _ := s.flight.Do("renew", func() (any, error) {
		// A caller that raced a just-finished renewal should reuse its result
		// instead of burning another exchange.
		if scheduled {
			if tok, _, fresh := s.store.Snapshot(s.margin); fresh {
				return tok, nil
			}
		}
		// Keep the exchange independent from a single caller's cancellation;
		// the transport timeout still bounds it.
		return s.renew(context.WithoutCancel(ctx), explicit, scheduled)
	})
	if err != nil {
		return Tokens{}, err
	}
	return v.(Tokens), nil
}

// renew performs one renewal exchange and commits the result. On failure the
// previously stored token set is left untouched as the last-known value.
func (s *Session) renew(ctx context.Context, explicit string, scheduled bool) (Tokens, error) {
	refreshToken := explicit
	if refreshToken == "" {
		if cur, ok := s.store.Current(); ok {
			refreshToken = cur.RefreshToken
		}
	}
	if refreshToken == "" {
		refreshToken = s.cfg.RefreshToken
	}

	var req tokenRequest
	switch {
	case refreshToken != "":
		req = tokenRequest{
			GrantType:    grantRefreshToken,
			ClientID:     s.cfg.ClientID,
			ClientSecret: s.cfg.ClientSecret,
			RefreshToken: refreshToken,
		}
	default:
		g := s.activeGrant()
		if g == nil || !g.reissuable() {
			return Tokens{}, ErrNoRefreshToken
		}
		req = g.request(s.cfg)
	}

	tok, err := s.exchange(ctx, req)
	if err != nil && scheduled && !isRemote(err) {
		// Transient transport failure on a scheduled renewal: retry once
		// inline before surfacing. Remote rejections are not retried.
		s.logf("oauth2session: renewal failed, retrying once: %v", err)
		tok, err = s.exchange(ctx, req)
	}
	if err != nil {
		return Tokens{}, err
	}

	s.commit(tok)
	s.logf("oauth2session: rotated access token (expires: %s)", tok.ExpiresAt().Format(time.RFC3339))
	return tok, nil
}

// exchange performs one call against the token endpoint.
func (s *Session) exchange(ctx context.Context, req tokenRequest) (Tokens, error) {
	resp, err := s.invoker.Invoke(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   tokenPath,
		Body:   req,
	})
	if err != nil {
		return Tokens{}, fmt.Errorf("oauth2session: token request: %w", err)
	}
	if !resp.OK() {
		return Tokens{}, remoteError(resp)
	}

	var body tokenResponse
	if err := resp.Decode(&body); err != nil {
		return Tokens{}, err
	}
	if body.AccessToken == "" {
		return Tokens{}, errors.New("oauth2session: token response missing access_token")
	}

	expiresIn := body.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpirySeconds
	}
	tokenType := body.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return Tokens{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		TokenType:    tokenType,
		Scope:        body.Scope,
		IssuedAt:     s.now(),
		ExpiresIn:    expiresIn,
	}, nil
}

// commit makes the new snapshot visible to all readers, then notifies the
// callback. Ordering matters: the callback must observe the committed state,
// and waiters resume only after the callback returns.
func (s *Session) commit(tok Tokens) {
	s.store.Replace(tok)
	s.notify.rotated(tok)
}

func (s *Session) usable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) activeGrant() grant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grant
}

func (s *Session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// remoteError maps a non-2xx token/authorize endpoint response to a RemoteError.
func remoteError(resp *transport.Response) error {
	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		TraceID          string `json:"trace_id"`
	}
	// A body that fails to parse still yields a usable RemoteError with the status.
	_ = resp.Decode(&body)

	traceID := body.TraceID
	if traceID == "" {
		traceID = resp.TraceID
	}
	code := body.Error
	if code == "" {
		code = http.StatusText(resp.StatusCode)
	}

	return &RemoteError{
		Status:      resp.StatusCode,
		Code:        code,
		Description: body.ErrorDescription,
		TraceID:     traceID,
	}
}
