// Package carthooks is the Carthooks API client for Go.
//
// A Client wraps the transport invoker and, when configured with an
// OAuthConfig, an oauth2session.Session that acquires, caches and proactively
// refreshes access tokens so callers never reason about expiry. Every public
// operation returns a Result carrying either data or an error string plus the
// server trace ID.
//
// # Features
//
//   - Three OAuth modes: client credentials, client credentials with a user
//     token, and the authorization-code flow
//   - Automatic refresh five minutes before expiry, with single-flight
//     coordination under concurrent callers
//   - OnTokenRefresh callback for persisting rotated tokens
//   - Legacy static API-token mode and CARTHOOKS_* environment configuration
//   - Resource pass-throughs (items CRUD) behind the token freshness guard
//
// # Quick Start
//
//	client, err := carthooks.New(
//	    carthooks.WithOAuthConfig(carthooks.OAuthConfig{
//	        ClientID:     "dvc-your-client-id",
//	        ClientSecret: "dvs-your-client-secret",
//	        OnTokenRefresh: func(tok carthooks.OAuthTokens) {
//	            saveTokensToStorage(tok)
//	        },
//	    }),
//	    carthooks.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if res := client.InitializeOAuth(ctx); !res.Success {
//	    log.Fatalf("oauth init failed: %s", res.Error)
//	}
//
//	items := client.GetItems(ctx, 123, 456, carthooks.ListOptions{Limit: 10})
//	if !items.Success {
//	    log.Printf("list failed: %s (trace %s)", items.Error, items.TraceID)
//	}
//
// The Client is safe for concurrent use.
package carthooks
