//go:build protogen

package grpcserver

import (
	"context"
	"time"

	bookingv1 "github.com/md-rashed-zaman/slotbook/protos/gen/booking/v1"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

type server struct {
	bookingv1.UnimplementedAvailabilityServiceServer
	svc *booking.Service
}

// Register installs the generated availability service, the standard health
// service and reflection on srv.
func Register(srv *grpc.Server, svc *booking.Service) *health.Server {
	bookingv1.RegisterAvailabilityServiceServer(srv, &server{svc: svc})
	return registerHealth(srv)
}

func (s *server) ListAvailableSlots(ctx context.Context, req *bookingv1.ListAvailableSlotsRequest) (*bookingv1.ListAvailableSlotsResponse, error) {
	slots, err := listSlots(ctx, s.svc, req.GetProviderId(), req.GetFrom(), req.GetTo(), int(req.GetDurationMinutes()))
	if err != nil {
		return nil, err
	}
	out := &bookingv1.ListAvailableSlotsResponse{
		ProviderId: req.GetProviderId(),
		Slots:      make([]*bookingv1.Slot, 0, len(slots)),
	}
	for _, sl := range slots {
		out.Slots = append(out.Slots, &bookingv1.Slot{
			StartTime: sl.Start.Format(time.RFC3339),
			EndTime:   sl.End.Format(time.RFC3339),
		})
	}
	return out, nil
}

func (s *server) CheckConflict(ctx context.Context, req *bookingv1.CheckConflictRequest) (*bookingv1.CheckConflictResponse, error) {
	res, err := checkConflict(ctx, s.svc, req.GetProviderId(), req.GetStart(), int(req.GetDurationMinutes()))
	if err != nil {
		return nil, err
	}
	out := &bookingv1.CheckConflictResponse{Free: res.Free, Reason: string(res.Reason)}
	if res.Appointment != nil {
		out.AppointmentId = res.Appointment.ID
	}
	if res.Break != nil {
		out.BreakId = res.Break.ID
	}
	return out, nil
}
