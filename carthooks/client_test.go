package carthooks

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carthooks/sdk-go/internal/testutil"
	"github.com/carthooks/sdk-go/oauth2session"
)

// testClock is a mutable time source for driving tokens across their
// validity window without sleeping.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newOAuthClient(t *testing.T, api *testutil.APIServer, extra ...Option) *Client {
	t.Helper()

	opts := append([]Option{
		WithBaseURL(api.URL()),
		WithOAuthConfig(OAuthConfig{ClientID: "cid", ClientSecret: "secret"}),
	}, extra...)

	client, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestInitializeOAuthClientCredentials(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)
	api.QueueToken("A1", "R1", 3600)

	client := newOAuthClient(t, api)

	res := client.InitializeOAuth(ctx)
	if !res.Success {
		t.Fatalf("InitializeOAuth failed: %s", res.Error)
	}
	if res.Data.AccessToken != "A1" || res.Data.RefreshToken != "R1" {
		t.Errorf("unexpected tokens: %+v", res.Data)
	}

	req := api.TokenRequest(t, 0)
	if req["grant_type"] != "client_credentials" {
		t.Errorf("expected client_credentials grant, got %v", req["grant_type"])
	}
	if req["client_id"] != "cid" || req["client_secret"] != "secret" {
		t.Errorf("credentials not sent: %v", req)
	}

	if tok := client.GetCurrentTokens(); tok == nil || tok.AccessToken != "A1" {
		t.Errorf("current tokens not stored: %+v", tok)
	}
}

func TestInitializeOAuthWithUserToken(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)
	api.QueueToken("A-user", "R-user", 3600)

	client := newOAuthClient(t, api)

	res := client.InitializeOAuth(ctx, "user-access-token")
	if !res.Success {
		t.Fatalf("InitializeOAuth failed: %s", res.Error)
	}
	if res.Data.AccessToken != "A-user" {
		t.Errorf("unexpected token: %+v", res.Data)
	}

	req := api.TokenRequest(t, 0)
	if req["user_token"] != "user-access-token" {
		t.Errorf("user token not forwarded: %v", req)
	}
}

func TestAuthorizationCodeFlow(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)
	api.QueueToken("A-code", "R-code", 3600)

	client := newOAuthClient(t, api)

	authz := client.GetOAuthAuthorizeCode(ctx, OAuthAuthorizeCodeRequest{
		RedirectURI: "https://app.example.com/callback",
		State:       "state-1",
	})
	if !authz.Success {
		t.Fatalf("GetOAuthAuthorizeCode failed: %s", authz.Error)
	}
	if authz.Data.State != "state-1" {
		t.Errorf("state not echoed: %+v", authz.Data)
	}
	if !strings.Contains(authz.Data.RedirectURL, "state=state-1") {
		t.Errorf("redirect URL missing state: %q", authz.Data.RedirectURL)
	}

	res := client.ExchangeAuthorizationCode(ctx, "code-1", "https://app.example.com/callback")
	if !res.Success {
		t.Fatalf("ExchangeAuthorizationCode failed: %s", res.Error)
	}
	if res.Data.AccessToken != "A-code" || res.Data.RefreshToken != "R-code" {
		t.Errorf("unexpected tokens: %+v", res.Data)
	}

	req := api.TokenRequest(t, 0)
	if req["grant_type"] != "authorization_code" || req["code"] != "code-1" {
		t.Errorf("unexpected exchange request: %v", req)
	}
}

func TestAutomaticRefreshBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)
	api.QueueToken("A1", "R1", 3600)
	api.QueueToken("A2", "R2", 3600)

	clock := newTestClock()
	client := newOAuthClient(t, api, WithSessionOptions(oauth2session.WithClock(clock.Now)))

	if res := client.InitializeOAuth(ctx); !res.Success {
		t.Fatalf("InitializeOAuth failed: %s", res.Error)
	}

	if res := client.GetItems(ctx, 1, 2, ListOptions{}); !res.Success {
		t.Fatalf("GetItems failed: %s", res.Error)
	}

	// Cross into the refresh margin of the one-hour token.
	clock.Advance(56 * time.Minute)

	if res := client.GetItems(ctx, 1, 2, ListOptions{}); !res.Success {
		t.Fatalf("GetItems after expiry failed: %s", res.Error)
	}

	if got := api.TokenCalls(); got != 2 {
		t.Errorf("expected 2 token exchanges, got %d", got)
	}
	req := api.TokenRequest(t, 1)
	if req["grant_type"] != "refresh_token" || req["refresh_token"] != "R1" {
		t.Errorf("unexpected renewal request: %v", req)
	}

	bearers := api.Bearers()
	if len(bearers) != 2 || bearers[0] != "A1" || bearers[1] != "A2" {
		t.Errorf("expected bearers [A1 A2], got %v", bearers)
	}
}

func TestRefreshFailureShortCircuitsAPICalls(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)
	api.QueueToken("A1", "R1", 3600)
	api.QueueTokenError(400, "invalid_grant", "refresh token revoked")

	clock := newTestClock()
	client := newOAuthClient(t, api, WithSessionOptions(oauth2session.WithClock(clock.Now)))

	if res := client.InitializeOAuth(ctx); !res.Success {
		t.Fatalf("InitializeOAuth failed: %s", res.Error)
	}

	clock.Advance(time.Hour)

	res := client.GetItems(ctx, 1, 2, ListOptions{})
	if res.Success {
		t.Fatal("expected GetItems to fail when renewal fails")
	}
	if !strings.Contains(res.Error, "invalid_grant") {
		t.Errorf("renewal failure not surfaced: %q", res.Error)
	}
	if res.TraceID != "trace-invalid_grant" {
		t.Errorf("trace id not propagated: %q", res.TraceID)
	}
	if got := api.ItemCalls(); got != 0 {
		t.Errorf("the item endpoint must not be reached, saw %d calls", got)
	}

	// The rejection is not retried and the last-known tokens survive.
	if got := api.TokenCalls(); got != 2 {
		t.Errorf("expected 2 token exchanges, got %d", got)
	}
	if tok := client.GetCurrentTokens(); tok == nil || tok.AccessToken != "A1" {
		t.Errorf("last-known tokens lost: %+v", tok)
	}
}

func TestStaticTokenMode(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)

	client, err := New(WithBaseURL(api.URL()), WithStaticToken("legacy-token"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = client.Close() }()

	res := client.GetItems(ctx, 1, 2, ListOptions{Limit: 10})
	if !res.Success {
		t.Fatalf("GetItems failed: %s", res.Error)
	}
	if got := api.TokenCalls(); got != 0 {
		t.Errorf("static mode must not touch the token endpoint, saw %d calls", got)
	}
	if bearers := api.Bearers(); len(bearers) != 1 || bearers[0] != "legacy-token" {
		t.Errorf("expected the static token as bearer, got %v", bearers)
	}
}

func TestNoCredentials(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)

	client, err := New(WithBaseURL(api.URL()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = client.Close() }()

	res := client.GetItems(ctx, 1, 2, ListOptions{})
	if res.Success {
		t.Fatal("expected failure without credentials")
	}
	if res.Err() == nil || !strings.Contains(res.Error, "no oauth config or API token") {
		t.Errorf("unexpected error: %q", res.Error)
	}
	if got := api.ItemCalls(); got != 0 {
		t.Errorf("no request must be sent without credentials, saw %d", got)
	}
}

func TestOAuthOperationsWithoutConfig(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)

	client, err := New(WithBaseURL(api.URL()), WithStaticToken("legacy-token"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = client.Close() }()

	if res := client.InitializeOAuth(ctx); res.Success || !strings.Contains(res.Error, "no oauth config") {
		t.Errorf("expected a missing-config failure, got %+v", res)
	}
	if tok := client.GetCurrentTokens(); tok != nil {
		t.Errorf("expected no tokens, got %+v", tok)
	}
	if cfg := client.GetOAuthConfig(); cfg != nil {
		t.Errorf("expected no oauth config, got %+v", cfg)
	}
}

func TestGetCurrentUser(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)

	client, err := New(WithBaseURL(api.URL()), WithStaticToken("legacy-token"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = client.Close() }()

	res := client.GetCurrentUser(ctx)
	if !res.Success {
		t.Fatalf("GetCurrentUser failed: %s", res.Error)
	}
	if res.Data.ID != 42 || res.Data.Name != "Test User" {
		t.Errorf("unexpected user: %+v", res.Data)
	}
	if res.TraceID != "trace-me" {
		t.Errorf("expected the body trace id, got %q", res.TraceID)
	}
}

func TestItemsCRUD(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)

	client, err := New(WithBaseURL(api.URL()), WithStaticToken("legacy-token"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = client.Close() }()

	list := client.GetItems(ctx, 1, 2, ListOptions{Limit: 10, Offset: 5})
	if !list.Success || len(list.Data) != 2 {
		t.Fatalf("GetItems = %+v", list)
	}

	one := client.GetItem(ctx, 1, 2, 1)
	if !one.Success || one.Data.ID != 1 {
		t.Fatalf("GetItem = %+v", one)
	}

	created := client.CreateItem(ctx, 1, 2, map[string]any{"title": "Created"})
	if !created.Success || created.Data.ID != 3 {
		t.Fatalf("CreateItem = %+v", created)
	}

	updated := client.UpdateItem(ctx, 1, 2, 1, map[string]any{"title": "Updated"})
	if !updated.Success || updated.Data.Fields["title"] != "Updated" {
		t.Fatalf("UpdateItem = %+v", updated)
	}

	deleted := client.DeleteItem(ctx, 1, 2, 1)
	if !deleted.Success || !deleted.Data {
		t.Fatalf("DeleteItem = %+v", deleted)
	}
}

func TestSetOAuthConfigRebuildsSession(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)
	api.QueueToken("A1", "R1", 3600)

	client := newOAuthClient(t, api)

	if res := client.InitializeOAuth(ctx); !res.Success {
		t.Fatalf("InitializeOAuth failed: %s", res.Error)
	}
	if client.GetCurrentTokens() == nil {
		t.Fatal("expected tokens after initialization")
	}

	if err := client.SetOAuthConfig(OAuthConfig{ClientID: "cid-2", ClientSecret: "secret-2"}); err != nil {
		t.Fatalf("SetOAuthConfig failed: %v", err)
	}

	if tok := client.GetCurrentTokens(); tok != nil {
		t.Errorf("tokens must be discarded on reconfiguration, got %+v", tok)
	}
	if cfg := client.GetOAuthConfig(); cfg == nil || cfg.ClientID != "cid-2" {
		t.Errorf("config not replaced: %+v", cfg)
	}
}

func TestSetOAuthConfigValidation(t *testing.T) {
	api := testutil.NewAPIServer(t)

	client, err := New(WithBaseURL(api.URL()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.SetOAuthConfig(OAuthConfig{ClientID: "cid"}); err == nil {
		t.Error("expected an error for a config without a client secret")
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)
	api.QueueToken("A1", "R1", 3600)

	client := newOAuthClient(t, api)
	if res := client.InitializeOAuth(ctx); !res.Success {
		t.Fatalf("InitializeOAuth failed: %s", res.Error)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if res := client.InitializeOAuth(ctx); res.Success {
		t.Error("operations must fail after Close")
	}
}

func TestNewFromEnv(t *testing.T) {
	api := testutil.NewAPIServer(t)

	t.Run("oauth credentials", func(t *testing.T) {
		t.Setenv("CARTHOOKS_API_URL", api.URL())
		t.Setenv("CARTHOOKS_CLIENT_ID", "env-cid")
		t.Setenv("CARTHOOKS_CLIENT_SECRET", "env-secret")

		client, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv failed: %v", err)
		}
		defer func() { _ = client.Close() }()

		cfg := client.GetOAuthConfig()
		if cfg == nil || cfg.ClientID != "env-cid" || cfg.ClientSecret != "env-secret" {
			t.Errorf("oauth config not built from environment: %+v", cfg)
		}

		if res := client.InitializeOAuth(context.Background()); !res.Success {
			t.Fatalf("InitializeOAuth failed: %s", res.Error)
		}
		if req := api.TokenRequest(t, 0); req["client_id"] != "env-cid" {
			t.Errorf("env credentials not used: %v", req)
		}
	})

	t.Run("static token", func(t *testing.T) {
		t.Setenv("CARTHOOKS_API_URL", api.URL())
		t.Setenv("CARTHOOKS_API_TOKEN", "env-token")

		client, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv failed: %v", err)
		}
		defer func() { _ = client.Close() }()

		if res := client.GetCurrentUser(context.Background()); !res.Success {
			t.Fatalf("GetCurrentUser failed: %s", res.Error)
		}
		bearers := api.Bearers()
		if len(bearers) == 0 || bearers[len(bearers)-1] != "env-token" {
			t.Errorf("env token not used as bearer: %v", bearers)
		}
	})

	t.Run("explicit options win", func(t *testing.T) {
		t.Setenv("CARTHOOKS_API_URL", "https://wrong.example.com")
		t.Setenv("CARTHOOKS_API_TOKEN", "env-token")

		client, err := NewFromEnv(WithBaseURL(api.URL()))
		if err != nil {
			t.Fatalf("NewFromEnv failed: %v", err)
		}
		defer func() { _ = client.Close() }()

		if res := client.GetCurrentUser(context.Background()); !res.Success {
			t.Fatalf("GetCurrentUser failed: %s", res.Error)
		}
	})
}

func TestOnTokenRefreshCallbackThroughClient(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewAPIServer(t)
	api.QueueToken("A1", "R1", 3600)

	var mu sync.Mutex
	var rotated []string

	client, err := New(
		WithBaseURL(api.URL()),
		WithOAuthConfig(OAuthConfig{
			ClientID:     "cid",
			ClientSecret: "secret",
			OnTokenRefresh: func(tok OAuthTokens) {
				mu.Lock()
				rotated = append(rotated, tok.AccessToken)
				mu.Unlock()
			},
		}),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = client.Close() }()

	if res := client.InitializeOAuth(ctx); !res.Success {
		t.Fatalf("InitializeOAuth failed: %s", res.Error)
	}
	if res := client.RefreshOAuthToken(ctx); !res.Success {
		t.Fatalf("RefreshOAuthToken failed: %s", res.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(rotated) != 2 || rotated[0] != "A1" {
		t.Errorf("expected a callback per rotation, got %v", rotated)
	}
}
