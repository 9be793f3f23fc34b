package grpcx

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
)

type echoServer struct {
	seen chan string
}

var echoDesc = grpc.ServiceDesc{
	ServiceName: "test.Echo",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Ping",
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := &emptypb.Empty{}
			if err := dec(in); err != nil {
				return nil, err
			}
			h := func(ctx context.Context, _ any) (any, error) {
				srv.(*echoServer).seen <- RequestIDFromContext(ctx)
				return &emptypb.Empty{}, nil
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: "/test.Echo/Ping"}, h)
		},
	}},
}

func TestRequestIDPropagation(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		UnaryServerRequestIDInterceptor(),
		UnaryServerLoggingInterceptor(runtime.DiscardLogger()),
	))
	echo := &echoServer{seen: make(chan string, 2)}
	srv.RegisterService(&echoDesc, echo)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, lis.Addr().String(), DialOptions{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	reqCtx := httpx.ContextWithRequestID(ctx, "http-req-1")
	var header metadata.MD
	if err := conn.Invoke(reqCtx, "/test.Echo/Ping", &emptypb.Empty{}, &emptypb.Empty{}, grpc.Header(&header)); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got := <-echo.seen; got != "http-req-1" {
		t.Fatalf("expected forwarded request id, got %q", got)
	}
	if vals := header.Get(RequestIDMetadataKey); len(vals) != 1 || vals[0] != "http-req-1" {
		t.Fatalf("expected echoed request id header, got %v", vals)
	}

	if err := conn.Invoke(ctx, "/test.Echo/Ping", &emptypb.Empty{}, &emptypb.Empty{}); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got := <-echo.seen; len(got) != 36 {
		t.Fatalf("expected generated uuid request id, got %q", got)
	}
}

func TestDial_FailsWhenNothingListens(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()

	start := time.Now()
	conn, err := Dial(context.Background(), addr, DialOptions{Timeout: 300 * time.Millisecond})
	if err == nil {
		_ = conn.Close()
		t.Fatalf("expected dial to %s to fail", addr)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("dial did not honour its timeout, took %s", elapsed)
	}
}
