// Package transport is the HTTP invoker for the Carthooks API.
//
// It provides a fluent Builder that creates a Client bound to one API host, with
// configurable timeouts, connection-pool limits, forced HTTP/2, TLS (custom CA,
// mTLS, insecure for tests), base transport override and redirect handling.
// Client.Invoke performs a single JSON request with optional Bearer credentials,
// tags it with an X-Request-Id, and returns the raw status, body and server
// trace ID; non-2xx statuses are data, not errors.
//
// # Features
//
//   - Fluent builder for an API client bound to a base URL
//   - JSON request encoding and raw response capture with trace IDs
//   - Connection-pool sizing, forced HTTP/2 and custom timeouts
//   - TLS 1.2+ by default, with custom CA/mTLS and optional InsecureSkipVerify
//   - Optional per-request debug logging via zerolog
//
// # Quick Start
//
//	client, err := transport.NewBuilder("https://api.carthooks.com").
//	    WithTimeout(60 * time.Second).
//	    WithConnectionLimits(50, 10).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Invoke(ctx, transport.Request{
//	    Method: http.MethodGet,
//	    Path:   "/open/api/v1/me",
//	    Bearer: token,
//	})
//
// The Client is safe for concurrent use.
package transport
