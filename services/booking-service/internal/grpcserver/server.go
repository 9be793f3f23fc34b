package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the availability API exposed to other services, declared in
// protos/booking/v1/availability.proto.
const ServiceName = "slotbook.booking.v1.AvailabilityService"

func NewServer(logger *slog.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	)
}

func registerHealth(srv *grpc.Server) *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return hs
}

// Serve runs srv on lis until ctx is done, then drains in-flight calls.
func Serve(ctx context.Context, logger *slog.Logger, srv *grpc.Server, hs *health.Server, lis net.Listener) {
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()
}

// listSlots parses the wire arguments shared by both encodings.
func listSlots(ctx context.Context, svc *booking.Service, providerID, fromRaw, toRaw string, minutes int) ([]model.Slot, error) {
	loc := svc.Location()
	from, err := time.ParseInLocation(time.DateOnly, fromRaw, loc)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid from, want YYYY-MM-DD")
	}
	to := from
	if toRaw != "" {
		if to, err = time.ParseInLocation(time.DateOnly, toRaw, loc); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid to, want YYYY-MM-DD")
		}
	}
	slots, err := svc.ListAvailableSlots(ctx, providerID, from, to, time.Duration(minutes)*time.Minute)
	if err != nil {
		return nil, toStatus(err)
	}
	return slots, nil
}

func checkConflict(ctx context.Context, svc *booking.Service, providerID, startRaw string, minutes int) (conflict.Result, error) {
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return conflict.Result{}, status.Error(codes.InvalidArgument, "invalid start, want RFC3339")
	}
	res, err := svc.CheckConflict(ctx, providerID, start, time.Duration(minutes)*time.Minute)
	if err != nil {
		return conflict.Result{}, toStatus(err)
	}
	return res, nil
}

var codeByKind = map[apperr.Kind]codes.Code{
	apperr.KindNotFound:        codes.NotFound,
	apperr.KindInvalidRole:     codes.FailedPrecondition,
	apperr.KindSlotUnavailable: codes.Aborted,
	apperr.KindInvalidState:    codes.FailedPrecondition,
	apperr.KindUnauthorized:    codes.PermissionDenied,
	apperr.KindParse:           codes.InvalidArgument,
	apperr.KindValidation:      codes.InvalidArgument,
}

func toStatus(err error) error {
	if code, ok := codeByKind[apperr.KindOf(err)]; ok {
		return status.Error(code, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
