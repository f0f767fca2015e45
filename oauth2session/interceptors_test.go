package oauth2session

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestUnaryClientInterceptor(t *testing.T) {
	ctx := context.Background()
	inv := &fakeInvoker{}
	s := newTestSession(t, Config{}, inv)

	if _, err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	var captured metadata.MD
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		captured, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}

	if err := s.UnaryClientInterceptor()(ctx, "/svc/Method", nil, nil, nil, invoker); err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}

	auth := captured.Get("authorization")
	if len(auth) != 1 || auth[0] != "Bearer mock-access-token" {
		t.Errorf("expected Bearer metadata, got %v", auth)
	}
}

func TestUnaryClientInterceptorGuardFailure(t *testing.T) {
	ctx := context.Background()
	inv := &fakeInvoker{}
	s := newTestSession(t, Config{}, inv)

	invoked := false
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		invoked = true
		return nil
	}

	// Session never initialized: the RPC must be aborted.
	if err := s.UnaryClientInterceptor()(ctx, "/svc/Method", nil, nil, nil, invoker); err == nil {
		t.Fatal("expected the interceptor to fail")
	}
	if invoked {
		t.Error("the RPC must not run without a token")
	}
}

func TestStreamClientInterceptor(t *testing.T) {
	ctx := context.Background()
	inv := &fakeInvoker{}
	s := newTestSession(t, Config{}, inv)

	if _, err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	var captured metadata.MD
	streamer := func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		captured, _ = metadata.FromOutgoingContext(ctx)
		return nil, nil
	}

	if _, err := s.StreamClientInterceptor()(ctx, &grpc.StreamDesc{}, nil, "/svc/Stream", streamer); err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}

	auth := captured.Get("authorization")
	if len(auth) != 1 || auth[0] != "Bearer mock-access-token" {
		t.Errorf("expected Bearer metadata, got %v", auth)
	}
}
