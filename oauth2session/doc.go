// Package oauth2session manages the OAuth token lifecycle for the Carthooks API.
//
// A Session owns the current token set for one authentication mode
// (client credentials, client credentials with a user token, or authorization
// code), renews it five minutes before expiry, and guarantees that concurrent
// callers racing a renewal share exactly one exchange against the token
// endpoint. Every successful rotation invokes an optional persistence callback
// after the new snapshot is committed and before any waiter resumes. Renewal
// failures leave the last-known token set in place so callers can decide to
// re-authorize.
//
// # Features
//
//   - Three grant modes with a shared refresh_token renewal path
//   - Single-flight renewal: one exchange serves all concurrent callers
//   - Freshness guard with a 5-minute margin, clamped for short-lived tokens
//   - OnTokenRefresh callback for persisting rotated refresh tokens
//   - Authorization-code helpers (GetAuthorizeCode, ExchangeAuthorizationCode)
//   - gRPC unary and stream client interceptors that inject Bearer tokens
//   - oauth2.TokenSource adapter for golang.org/x/oauth2 clients
//   - Optional logging (WithLogger, WithLoggingEnabled)
//
// # Quick Start
//
//	inv, err := transport.NewBuilder("https://api.carthooks.com").Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inv.Close()
//
//	session, err := oauth2session.New(oauth2session.Config{
//	    ClientID:     "dvc-client-id",
//	    ClientSecret: "dvs-client-secret",
//	    OnTokenRefresh: func(tok oauth2session.Tokens) {
//	        saveToStorage(tok)
//	    },
//	}, inv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	if _, err := session.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	tok, err := session.EnsureFresh(ctx) // cheap when the token is still fresh
//
// # Notes
//
//   - Renewal runs detached from any single caller's cancellation; the
//     transport timeout bounds it instead.
//   - A renewal triggered by the freshness guard retries once inline on
//     transport failures; manual Refresh calls are never auto-retried.
//   - Session is safe for concurrent use.
package oauth2session
