package directory

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type testServer struct {
	users map[string]model.User
}

func (s *testServer) getUser(req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["user_id"].GetStringValue()
	u, ok := s.users[id]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "user %s not found", id)
	}
	return structpb.NewStruct(map[string]any{
		"id":           u.ID,
		"role":         string(u.Role),
		"display_name": u.DisplayName,
	})
}

var testServiceDesc = grpc.ServiceDesc{
	ServiceName: "directory.v1.DirectoryService",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "GetUser",
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			req := &structpb.Struct{}
			if err := dec(req); err != nil {
				return nil, err
			}
			return srv.(*testServer).getUser(req)
		},
	}},
}

func TestClient_Lookup(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	srv := grpc.NewServer()
	srv.RegisterService(&testServiceDesc, &testServer{users: map[string]model.User{
		"prov-1": {ID: "prov-1", Role: model.RoleProvider, DisplayName: "Dr. Lan"},
	}})
	go func() {
		_ = srv.Serve(lis)
	}()
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewClient(ctx, lis.Addr().String())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	u, err := client.Lookup(ctx, "prov-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.Role != model.RoleProvider || u.DisplayName != "Dr. Lan" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := client.Lookup(ctx, "ghost"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}
