package oauth2session

import (
	"context"

	"golang.org/x/oauth2"
)

// OAuth2Token converts the snapshot into a *oauth2.Token so it can be used
// with golang.org/x/oauth2-based clients.
func (t Tokens) OAuth2Token() *oauth2.Token {
	if t.IsZero() {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.ExpiresAt(),
	}
}

// TokenSource returns an oauth2.TokenSource backed by the session's freshness
// guard, so x/oauth2 transports and clients can be driven by this session.
//
// Usage:
//
//	client := oauth2.NewClient(ctx, session.TokenSource(ctx))
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	if ctx == nil {
		ctx = context.Background()
	}
	return &sessionTokenSource{ctx: ctx, session: s}
}

type sessionTokenSource struct {
	ctx     context.Context
	session *Session
}

// Token implements oauth2.TokenSource.
func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.session.EnsureFresh(ts.ctx)
	if err != nil {
		return nil, err
	}
	return tok.OAuth2Token(), nil
}
