package carthooks

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carthooks/sdk-go/oauth2session"
	"github.com/carthooks/sdk-go/transport"
)

var (
	// ErrNoCredentials indicates an authenticated call on a client configured
	// with neither an OAuth config nor a static API token.
	ErrNoCredentials = errors.New("carthooks: no oauth config or API token configured")

	// ErrNoOAuthConfig indicates an OAuth operation on a client without an
	// OAuth config.
	ErrNoOAuthConfig = errors.New("carthooks: no oauth config set")
)

// Client is the Carthooks API client. It owns its transport and, when an
// OAuth config is set, an oauth2session.Session that keeps the access token
// fresh for every outbound call. Release it with Close (defer-friendly).
type Client struct {
	transport   *transport.Client
	logger      zerolog.Logger
	staticToken string
	sessionOpts []oauth2session.Option

	mu       sync.RWMutex // guards oauthCfg and session
	oauthCfg *OAuthConfig
	session  *oauth2session.Session
}

// New creates a client. With no options it targets the production host
// anonymously; combine WithOAuthConfig or WithStaticToken with the transport
// options as needed.
func New(opts ...Option) (*Client, error) {
	o := options{
		baseURL: DefaultBaseURL,
		timeout: 30 * time.Second,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	builder := transport.NewBuilder(o.baseURL).
		WithTimeout(o.timeout).
		WithLogger(o.logger)
	if o.maxConns > 0 || o.maxIdlePerHost > 0 {
		builder = builder.WithConnectionLimits(o.maxConns, o.maxIdlePerHost)
	}
	if o.http2 {
		builder = builder.WithHTTP2()
	}
	if o.tlsEnabled {
		builder = builder.WithTLS(o.tlsCAFile, o.tlsCertFile, o.tlsKeyFile)
	}
	if o.baseTransport != nil {
		builder = builder.WithBaseTransport(o.baseTransport)
	}

	inv, err := builder.Build()
	if err != nil {
		return nil, err
	}

	c := &Client{
		transport:   inv,
		logger:      o.logger,
		staticToken: o.staticToken,
		sessionOpts: o.sessionOpts,
	}

	if o.oauth != nil {
		if err := c.SetOAuthConfig(*o.oauth); err != nil {
			inv.Close()
			return nil, err
		}
	}

	return c, nil
}

// SetOAuthConfig installs a new OAuth configuration, rebuilding the session
// from scratch: any previously held tokens and grant state are discarded.
func (c *Client) SetOAuthConfig(cfg OAuthConfig) error {
	session, err := oauth2session.New(cfg, c.transport, c.sessionOpts...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.session
	c.oauthCfg = &cfg
	c.session = session
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// GetOAuthConfig returns a copy of the active OAuth configuration, or nil.
func (c *Client) GetOAuthConfig() *OAuthConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.oauthCfg == nil {
		return nil
	}
	cfg := *c.oauthCfg
	return &cfg
}

// InitializeOAuth obtains the initial token set. Without arguments it runs the
// client-credentials grant; with a user access token it exchanges that token
// for a session scoped to the user's permissions. Re-running it replaces any
// prior token state.
func (c *Client) InitializeOAuth(ctx context.Context, userToken ...string) Result[*OAuthTokens] {
	session, err := c.oauthSession()
	if err != nil {
		return failed[*OAuthTokens](err)
	}

	var tok OAuthTokens
	if len(userToken) > 0 && userToken[0] != "" {
		tok, err = session.InitializeWithUserToken(ctx, userToken[0])
	} else {
		tok, err = session.Initialize(ctx)
	}
	if err != nil {
		return failed[*OAuthTokens](err)
	}
	return succeed(&tok, "")
}

// GetOAuthAuthorizeCode starts the authorization-code flow: it returns the
// redirect URL for the caller's web front end together with the echoed state.
func (c *Client) GetOAuthAuthorizeCode(ctx context.Context, req OAuthAuthorizeCodeRequest) Result[*OAuthAuthorizeCode] {
	session, err := c.oauthSession()
	if err != nil {
		return failed[*OAuthAuthorizeCode](err)
	}

	code, err := session.GetAuthorizeCode(ctx, req)
	if err != nil {
		return failed[*OAuthAuthorizeCode](err)
	}
	return succeed(code, "")
}

// ExchangeAuthorizationCode redeems the authorization code received on the
// redirect URI for a token set.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code, redirectURI string) Result[*OAuthTokens] {
	session, err := c.oauthSession()
	if err != nil {
		return failed[*OAuthTokens](err)
	}

	tok, err := session.ExchangeAuthorizationCode(ctx, code, redirectURI)
	if err != nil {
		return failed[*OAuthTokens](err)
	}
	return succeed(&tok, "")
}

// RefreshOAuthToken renews tokens immediately, regardless of expiry. An
// explicit refresh token wins over stored state for this call only.
func (c *Client) RefreshOAuthToken(ctx context.Context, refreshToken ...string) Result[*OAuthTokens] {
	session, err := c.oauthSession()
	if err != nil {
		return failed[*OAuthTokens](err)
	}

	explicit := ""
	if len(refreshToken) > 0 {
		explicit = refreshToken[0]
	}

	tok, err := session.Refresh(ctx, explicit)
	if err != nil {
		return failed[*OAuthTokens](err)
	}
	return succeed(&tok, "")
}

// GetCurrentTokens returns the current token snapshot, or nil when none has
// been obtained. It never triggers a network call.
func (c *Client) GetCurrentTokens() *OAuthTokens {
	session, err := c.oauthSession()
	if err != nil {
		return nil
	}
	return session.CurrentTokens()
}

// GetCurrentUser fetches the identity behind the current access token. The
// freshness guard runs first; its failure is surfaced without attempting the
// lookup.
func (c *Client) GetCurrentUser(ctx context.Context) Result[*User] {
	return invokeJSON[*User](c, ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/open/api/v1/me",
	})
}

// Close releases the OAuth session and the transport's connections. The
// client must not be used afterwards. Pair it with construction:
//
//	client, err := carthooks.New(...)
//	if err != nil { ... }
//	defer client.Close()
func (c *Client) Close() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session != nil {
		_ = session.Close()
	}
	c.transport.Close()
	return nil
}

func (c *Client) oauthSession() (*oauth2session.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, ErrNoOAuthConfig
	}
	return c.session, nil
}

// bearer resolves the credential for an outbound call: the session's
// guaranteed-fresh access token, or the static API token in legacy mode.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session != nil {
		tok, err := session.EnsureFresh(ctx)
		if err != nil {
			return "", err
		}
		return tok.AccessToken, nil
	}
	if c.staticToken != "" {
		return c.staticToken, nil
	}
	return "", ErrNoCredentials
}
