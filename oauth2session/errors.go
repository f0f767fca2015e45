package oauth2session

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials indicates the session was constructed without a
	// client ID or secret. Surfaced at construction, before any call.
	ErrMissingCredentials = errors.New("oauth2session: client_id and client_secret are required")

	// ErrNotInitialized indicates an authenticated operation was invoked
	// before any token was ever obtained.
	ErrNotInitialized = errors.New("oauth2session: no token obtained yet, initialize the session first")

	// ErrNoRefreshToken indicates a renewal was requested but no refresh token
	// is available and the active grant cannot re-run its initial exchange.
	ErrNoRefreshToken = errors.New("oauth2session: no refresh token available")

	// ErrSessionClosed indicates the session was closed and can no longer be used.
	ErrSessionClosed = errors.New("oauth2session: session is closed")
)

// RemoteError is a rejection from the OAuth or user-info endpoint, carrying
// the remote error code so callers can branch on it (e.g. re-authorize on an
// invalid refresh token instead of retrying blindly).
type RemoteError struct {
	Status      int
	Code        string
	Description string
	TraceID     string
}

func (e *RemoteError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth2session: remote error %q (status %d): %s", e.Code, e.Status, e.Description)
	}
	return fmt.Sprintf("oauth2session: remote error %q (status %d)", e.Code, e.Status)
}

// IsInvalidGrant reports whether err is a remote rejection of the presented
// credentials, code or refresh token. Callers should re-authorize rather than
// retry when this returns true.
func IsInvalidGrant(err error) bool {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	switch remote.Code {
	case "invalid_grant", "invalid_refresh_token", "invalid_client":
		return true
	}
	return false
}

func isRemote(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote)
}
