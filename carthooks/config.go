package carthooks

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/carthooks/sdk-go/oauth2session"
)

// DefaultBaseURL is the production Carthooks API host.
const DefaultBaseURL = "https://api.carthooks.com"

// Caller-facing aliases for the session types, mirroring the SDK surface.
type (
	OAuthConfig               = oauth2session.Config
	OAuthTokens               = oauth2session.Tokens
	OAuthAuthorizeCodeRequest = oauth2session.AuthorizeCodeRequest
	OAuthAuthorizeCode        = oauth2session.AuthorizeCode
)

type options struct {
	baseURL        string
	timeout        time.Duration
	maxConns       int
	maxIdlePerHost int
	http2          bool
	baseTransport  http.RoundTripper
	staticToken    string
	oauth          *OAuthConfig
	logger         zerolog.Logger
	sessionOpts    []oauth2session.Option

	tlsEnabled  bool
	tlsCAFile   string
	tlsCertFile string
	tlsKeyFile  string
}

// Option is a functional option for configuring Client.
type Option func(*options)

// WithBaseURL overrides the API host. Default is DefaultBaseURL.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithTimeout sets the request timeout. Default is 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithConnectionLimits bounds the connection pool: maximum concurrent
// connections and maximum idle (keep-alive) connections per host.
func WithConnectionLimits(maxConns, maxIdlePerHost int) Option {
	return func(o *options) {
		o.maxConns = maxConns
		o.maxIdlePerHost = maxIdlePerHost
	}
}

// WithHTTP2 forces HTTP/2 negotiation on the transport.
func WithHTTP2() Option {
	return func(o *options) { o.http2 = true }
}

// WithTLS configures a custom CA and, when both cert and key files are given,
// an mTLS client certificate for the transport.
func WithTLS(caFile, certFile, keyFile string) Option {
	return func(o *options) {
		o.tlsEnabled = true
		o.tlsCAFile = caFile
		o.tlsCertFile = certFile
		o.tlsKeyFile = keyFile
	}
}

// WithBaseTransport sets a custom base transport, e.g. to stub requests in tests.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.baseTransport = rt }
}

// WithStaticToken configures a fixed Bearer token (the legacy API-token mode).
// It is used only when no OAuth config is set.
func WithStaticToken(token string) Option {
	return func(o *options) { o.staticToken = token }
}

// WithOAuthConfig enables OAuth token management with the given config.
func WithOAuthConfig(cfg OAuthConfig) Option {
	return func(o *options) { o.oauth = &cfg }
}

// WithLogger sets the structured logger used by the client and its transport.
// Default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSessionOptions forwards options to the underlying OAuth session, e.g.
// oauth2session.WithRefreshMargin.
func WithSessionOptions(opts ...oauth2session.Option) Option {
	return func(o *options) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// envSettings is the environment configuration for the transport layer.
// Variables are prefixed with CARTHOOKS_, e.g. CARTHOOKS_API_URL.
type envSettings struct {
	APIURL       string        `envconfig:"API_URL" default:"https://api.carthooks.com"`
	APIToken     string        `envconfig:"API_TOKEN"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"30s"`
	ClientID     string        `envconfig:"CLIENT_ID"`
	ClientSecret string        `envconfig:"CLIENT_SECRET"`
}

// NewFromEnv builds a client from CARTHOOKS_* environment variables. When both
// CARTHOOKS_CLIENT_ID and CARTHOOKS_CLIENT_SECRET are set an OAuth config is
// created; otherwise CARTHOOKS_API_TOKEN, if present, is used as a static
// Bearer token. Explicit options are applied afterwards and win.
func NewFromEnv(opts ...Option) (*Client, error) {
	var env envSettings
	if err := envconfig.Process("carthooks", &env); err != nil {
		return nil, fmt.Errorf("carthooks: load environment config: %w", err)
	}

	fromEnv := []Option{
		WithBaseURL(env.APIURL),
		WithTimeout(env.Timeout),
	}
	if env.APIToken != "" {
		fromEnv = append(fromEnv, WithStaticToken(env.APIToken))
	}
	if env.ClientID != "" && env.ClientSecret != "" {
		fromEnv = append(fromEnv, WithOAuthConfig(OAuthConfig{
			ClientID:     env.ClientID,
			ClientSecret: env.ClientSecret,
		}))
	}

	return New(append(fromEnv, opts...)...)
}
