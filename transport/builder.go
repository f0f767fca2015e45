package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Builder provides a fluent interface for constructing API clients with
// configurable timeouts, connection pooling, HTTP/2 and TLS/mTLS support.
type Builder struct {
	baseURL   string
	userAgent string
	logger    zerolog.Logger

	// TLS configuration
	tlsEnabled    bool
	tlsCAFile     string
	tlsCertFile   string
	tlsKeyFile    string
	tlsSkipVerify bool

	// HTTP client configuration
	timeout         time.Duration
	maxConns        int
	maxIdlePerHost  int
	forceHTTP2      bool
	baseTransport   http.RoundTripper
	followRedirects bool
}

// NewBuilder creates a new API client builder.
func NewBuilder(baseURL string) *Builder {
	return &Builder{
		baseURL:         baseURL,
		userAgent:       "carthooks-sdk-go",
		logger:          zerolog.Nop(),
		timeout:         30 * time.Second, // Default 30s timeout
		followRedirects: true,
	}
}

// WithTimeout sets the request timeout for the HTTP client.
// Default is 30 seconds if not specified.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithConnectionLimits sets the connection pool bounds.
//
// Parameters:
//   - maxConns: maximum concurrent connections per host (0 = unlimited)
//   - maxIdlePerHost: maximum idle (keep-alive) connections per host
func (b *Builder) WithConnectionLimits(maxConns, maxIdlePerHost int) *Builder {
	b.maxConns = maxConns
	b.maxIdlePerHost = maxIdlePerHost
	return b
}

// WithHTTP2 forces HTTP/2 negotiation even when a custom TLS config is set.
func (b *Builder) WithHTTP2() *Builder {
	b.forceHTTP2 = true
	return b
}

// WithTLS enables TLS for the connection.
//
// Parameters:
//   - caFile: Path to CA certificate for server verification (optional, uses system roots if empty)
//   - certFile: Path to client certificate for mTLS (optional, must be paired with keyFile)
//   - keyFile: Path to client private key for mTLS (optional, must be paired with certFile)
func (b *Builder) WithTLS(caFile, certFile, keyFile string) *Builder {
	b.tlsEnabled = true
	b.tlsCAFile = caFile
	b.tlsCertFile = certFile
	b.tlsKeyFile = keyFile
	return b
}

// WithInsecureSkipVerify disables TLS certificate verification (NOT RECOMMENDED for production).
// This should only be used for testing or development purposes.
func (b *Builder) WithInsecureSkipVerify() *Builder {
	b.tlsSkipVerify = true
	return b
}

// WithBaseTransport sets a custom base transport.
// This is useful for adding custom middleware or stubbing requests in tests.
func (b *Builder) WithBaseTransport(transport http.RoundTripper) *Builder {
	b.baseTransport = transport
	return b
}

// WithoutRedirects disables automatic redirect following.
// By default, the client follows up to 10 redirects.
func (b *Builder) WithoutRedirects() *Builder {
	b.followRedirects = false
	return b
}

// WithUserAgent overrides the User-Agent header sent on every request.
func (b *Builder) WithUserAgent(userAgent string) *Builder {
	b.userAgent = userAgent
	return b
}

// WithLogger sets the logger used for per-request debug logging.
// If not set, logging is disabled.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build constructs the API client with the configured options.
//
// Returns:
//   - *Client: Configured API client
//   - error: Error if configuration is invalid
func (b *Builder) Build() (*Client, error) {
	baseURL, err := normalizeBaseURL(b.baseURL)
	if err != nil {
		return nil, err
	}

	transport := b.baseTransport
	if transport == nil {
		if httpTransport, ok := http.DefaultTransport.(*http.Transport); ok {
			httpTransport = httpTransport.Clone()
			httpTransport.MaxConnsPerHost = b.maxConns
			if b.maxIdlePerHost > 0 {
				httpTransport.MaxIdleConnsPerHost = b.maxIdlePerHost
			}
			if b.forceHTTP2 {
				httpTransport.ForceAttemptHTTP2 = true
			}

			if b.tlsEnabled || b.tlsSkipVerify {
				tlsConfig, err := b.buildTLSConfig()
				if err != nil {
					return nil, fmt.Errorf("transport: TLS config failed: %w", err)
				}
				httpTransport.TLSClientConfig = tlsConfig
			} else {
				// Set secure TLS defaults even when TLS is not explicitly configured
				httpTransport.TLSClientConfig = &tls.Config{
					MinVersion: tls.VersionTLS12,
				}
			}

			transport = httpTransport
		} else {
			// Fallback to whatever default transport is configured (e.g., a test stub)
			transport = http.DefaultTransport
		}
	}

	hc := &http.Client{
		Transport: transport,
		Timeout:   b.timeout,
	}

	if !b.followRedirects {
		hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Client{
		baseURL:   baseURL,
		hc:        hc,
		userAgent: b.userAgent,
		logger:    b.logger,
	}, nil
}

// buildTLSConfig constructs the TLS configuration for the HTTP client.
func (b *Builder) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: b.tlsSkipVerify, // #nosec G402
	}

	// Load CA certificate for server verification
	if b.tlsCAFile != "" {
		caCert, err := os.ReadFile(b.tlsCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = certPool
	}

	// Load client certificate for mTLS (if both cert and key are provided)
	if b.tlsCertFile != "" && b.tlsKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(b.tlsCertFile, b.tlsKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	} else if b.tlsCertFile != "" || b.tlsKeyFile != "" {
		return nil, errors.New("both TLS cert and key files must be provided for mTLS")
	}

	return tlsConfig, nil
}
