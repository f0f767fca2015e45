package carthooks

import (
	"errors"

	"github.com/carthooks/sdk-go/oauth2session"
)

// Result is the uniform outcome of every public Client operation. Failures are
// carried in Error rather than raised, so call sites can branch on Success and
// forward TraceID when reporting problems upstream.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// Err returns the failure as an error, or nil for successful results.
func (r Result[T]) Err() error {
	if r.Success || r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}

func succeed[T any](data T, traceID string) Result[T] {
	return Result[T]{Success: true, Data: data, TraceID: traceID}
}

func failed[T any](err error) Result[T] {
	res := Result[T]{Error: err.Error()}
	var remote *oauth2session.RemoteError
	if errors.As(err, &remote) {
		res.TraceID = remote.TraceID
	}
	return res
}
