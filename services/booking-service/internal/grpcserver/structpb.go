//go:build !protogen

package grpcserver

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/protobuf/types/known/structpb"
)

// Register installs the availability service, the standard health service
// and reflection on srv. Without generated stubs the messages travel as
// google.protobuf.Struct values carrying the same field names as the proto.
func Register(srv *grpc.Server, svc *booking.Service) *health.Server {
	srv.RegisterService(&serviceDesc, &server{svc: svc})
	return registerHealth(srv)
}

type server struct {
	svc *booking.Service
}

type unaryFunc func(s *server, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unary(method string, fn unaryFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := &structpb.Struct{}
			if err := dec(req); err != nil {
				return nil, err
			}
			call := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(*server), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return call(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, req, info, call)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListAvailableSlots", (*server).listAvailableSlots),
		unary("CheckConflict", (*server).checkConflict),
	},
}

func (s *server) listAvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	providerID := f["provider_id"].GetStringValue()
	slots, err := listSlots(ctx, s.svc, providerID, f["from"].GetStringValue(), f["to"].GetStringValue(), int(f["duration_minutes"].GetNumberValue()))
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(slots))
	for _, sl := range slots {
		items = append(items, map[string]any{
			"start_time": sl.Start.Format(time.RFC3339),
			"end_time":   sl.End.Format(time.RFC3339),
		})
	}
	return structpb.NewStruct(map[string]any{"provider_id": providerID, "slots": items})
}

func (s *server) checkConflict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	res, err := checkConflict(ctx, s.svc, f["provider_id"].GetStringValue(), f["start"].GetStringValue(), int(f["duration_minutes"].GetNumberValue()))
	if err != nil {
		return nil, err
	}
	out := map[string]any{"free": res.Free, "reason": string(res.Reason)}
	if res.Appointment != nil {
		out["appointment_id"] = res.Appointment.ID
	}
	if res.Break != nil {
		out["break_id"] = res.Break.ID
	}
	return structpb.NewStruct(out)
}
