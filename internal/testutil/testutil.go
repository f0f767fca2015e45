package testutil

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// NewLocalHTTPServer starts an HTTP server bound to IPv4 loopback only.
// The sandbox blocks IPv6 listeners, so force tcp4 to keep tests runnable.
func NewLocalHTTPServer(tb testing.TB, handler http.Handler) *httptest.Server {
	tb.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to create IPv4 listener: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()

	return server
}

// RoundTripFunc allows inlining http.RoundTripper implementations.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls the underlying function.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// StaticJSONResponse returns a RoundTripper that always responds with the provided JSON body.
func StaticJSONResponse(body string) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}

// APIServer is a scriptable mock of the Carthooks API. It serves the token,
// authorize-code, current-user and items endpoints, records every token
// request body, and counts calls so tests can assert on exchange cardinality.
type APIServer struct {
	Server *httptest.Server

	mu            sync.Mutex
	tokenQueue    []scriptedResponse
	tokenRequests []map[string]any
	itemCalls     int
	meCalls       int
	bearers       []string
}

type scriptedResponse struct {
	status int
	body   string
}

// NewAPIServer starts a mock Carthooks API on IPv4 loopback. Token responses
// are served from the scripted queue; the last entry repeats once the queue
// drains. With an empty queue a generic successful token is returned.
func NewAPIServer(tb testing.TB) *APIServer {
	tb.Helper()

	api := &APIServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/open/api/oauth/token", requireMethod(http.MethodPost, api.handleToken))
	mux.HandleFunc("/api/oauth/get-authorize-code", requireMethod(http.MethodPost, api.handleAuthorizeCode))
	mux.HandleFunc("/open/api/v1/me", requireMethod(http.MethodGet, api.handleMe))
	mux.HandleFunc("/open/api/v1/apps/", api.handleItems)

	api.Server = NewLocalHTTPServer(tb, mux)
	tb.Cleanup(api.Server.Close)

	return api
}

// URL returns the mock server's base URL.
func (a *APIServer) URL() string {
	return a.Server.URL
}

// QueueToken appends a successful token response with the given fields.
func (a *APIServer) QueueToken(accessToken, refreshToken string, expiresIn int64) {
	body, _ := json.Marshal(map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    expiresIn,
	})
	a.queue(http.StatusOK, string(body))
}

// QueueTokenError appends a failing token response.
func (a *APIServer) QueueTokenError(status int, code, description string) {
	body, _ := json.Marshal(map[string]any{
		"error":             code,
		"error_description": description,
		"trace_id":          "trace-" + code,
	})
	a.queue(status, string(body))
}

func (a *APIServer) queue(status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokenQueue = append(a.tokenQueue, scriptedResponse{status: status, body: body})
}

// TokenCalls reports how many token exchanges the server has seen.
func (a *APIServer) TokenCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tokenRequests)
}

// TokenRequest returns the i-th recorded token request body.
func (a *APIServer) TokenRequest(tb testing.TB, i int) map[string]any {
	tb.Helper()

	a.mu.Lock()
	defer a.mu.Unlock()
	if i >= len(a.tokenRequests) {
		tb.Fatalf("token request %d not recorded (have %d)", i, len(a.tokenRequests))
	}
	return a.tokenRequests[i]
}

// ItemCalls reports how many item-endpoint requests the server has seen.
func (a *APIServer) ItemCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.itemCalls
}

// MeCalls reports how many current-user lookups the server has seen.
func (a *APIServer) MeCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meCalls
}

// Bearers returns the Bearer tokens presented on authenticated endpoints, in order.
func (a *APIServer) Bearers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.bearers))
	copy(out, a.bearers)
	return out
}

func (a *APIServer) handleToken(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	_ = json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	a.tokenRequests = append(a.tokenRequests, req)
	resp := scriptedResponse{status: http.StatusOK, body: `{"access_token":"mock-access-token","token_type":"Bearer","expires_in":3600}`}
	if len(a.tokenQueue) > 0 {
		resp = a.tokenQueue[0]
		if len(a.tokenQueue) > 1 {
			a.tokenQueue = a.tokenQueue[1:]
		}
	}
	a.mu.Unlock()

	writeJSON(w, resp.status, resp.body)
}

func (a *APIServer) handleAuthorizeCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID    string `json:"client_id"`
		RedirectURI string `json:"redirect_uri"`
		State       string `json:"state"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	body, _ := json.Marshal(map[string]string{
		"redirect_url": "https://auth.carthooks.test/authorize?client_id=" + req.ClientID + "&state=" + req.State,
		"state":        req.State,
	})
	writeJSON(w, http.StatusOK, string(body))
}

func (a *APIServer) handleMe(w http.ResponseWriter, r *http.Request) {
	bearer := a.recordBearer(r)
	a.mu.Lock()
	a.meCalls++
	a.mu.Unlock()

	if bearer == "" {
		writeJSON(w, http.StatusUnauthorized, `{"error":"unauthorized"}`)
		return
	}
	writeJSON(w, http.StatusOK, `{"data":{"id":42,"name":"Test User","email":"user@example.com"},"trace_id":"trace-me"}`)
}

func (a *APIServer) handleItems(w http.ResponseWriter, r *http.Request) {
	bearer := a.recordBearer(r)
	a.mu.Lock()
	a.itemCalls++
	a.mu.Unlock()

	if bearer == "" {
		writeJSON(w, http.StatusUnauthorized, `{"error":"unauthorized"}`)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if strings.Contains(r.URL.Path, "/items/") {
			writeJSON(w, http.StatusOK, `{"data":{"id":1,"fields":{"title":"First"}}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"data":[{"id":1,"fields":{"title":"First"}},{"id":2,"fields":{"title":"Second"}}]}`)
	case http.MethodPost:
		writeJSON(w, http.StatusOK, `{"data":{"id":3,"fields":{"title":"Created"}}}`)
	case http.MethodPut:
		writeJSON(w, http.StatusOK, `{"data":{"id":1,"fields":{"title":"Updated"}}}`)
	case http.MethodDelete:
		writeJSON(w, http.StatusOK, `{"data":null}`)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, `{"error":{"message":"method not allowed"}}`)
	}
}

func (a *APIServer) recordBearer(r *http.Request) string {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if bearer == r.Header.Get("Authorization") {
		bearer = ""
	}
	a.mu.Lock()
	a.bearers = append(a.bearers, bearer)
	a.mu.Unlock()
	return bearer
}

// requireMethod restricts a handler to a single HTTP method. Go 1.21's
// ServeMux has no method-prefixed patterns, so enforce the method here.
func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Trace-Id", "trace-header")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body)) // Error intentionally ignored in test helper
}
