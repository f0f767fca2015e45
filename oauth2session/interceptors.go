package oauth2session

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryClientInterceptor returns a gRPC unary client interceptor that
// automatically adds the session's Bearer token to request metadata.
//
// The interceptor adds the token as "authorization: Bearer <token>" to the
// outgoing context metadata. If the freshness guard fails, the RPC is aborted
// with that error. The interceptor respects the RPC context's cancellation
// and deadline.
//
// Usage:
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithUnaryInterceptor(session.UnaryClientInterceptor()),
//	)
func (s *Session) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		tok, err := s.EnsureFresh(ctx)
		if err != nil {
			return fmt.Errorf("oauth2session: failed to get token: %w", err)
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok.AccessToken)

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that
// automatically adds the session's Bearer token to request metadata.
//
// If the freshness guard fails, stream creation is aborted with that error.
func (s *Session) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		tok, err := s.EnsureFresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("oauth2session: failed to get token: %w", err)
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok.AccessToken)

		return streamer(ctx, desc, cc, method, opts...)
	}
}
