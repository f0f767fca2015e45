// Package testutil provides test helpers for the Carthooks SDK packages.
//
// It includes utilities to spin up IPv4-only local HTTP servers (avoiding IPv6
// in sandboxes), inline RoundTripper stubs, and a scriptable mock of the
// Carthooks API covering the token, authorize-code, current-user and items
// endpoints with request capture and call counters.
//
// # Utilities
//
//   - NewLocalHTTPServer: start httptest server bound to 127.0.0.1
//   - RoundTripFunc and StaticJSONResponse: inline http.RoundTripper stubs
//   - APIServer: scripted token responses, recorded token request bodies,
//     Bearer capture and per-endpoint call counts
//
// These helpers are designed for tests; servers are closed via tb.Cleanup.
package testutil
