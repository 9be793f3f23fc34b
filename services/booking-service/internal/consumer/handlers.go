package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

const (
	TopicUserUpserted = "identity.user.upserted.v1"
	TopicAttendance   = "attendance.recorded.v1"
)

type userUpserted struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// UserProjection keeps the local directory table in step with identity events.
func UserProjection(users storage.UserStore) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt userUpserted
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Topic, err)
		}
		role := model.Role(evt.Role)
		switch role {
		case model.RoleRequester, model.RoleProvider, model.RoleAdmin:
		default:
			return fmt.Errorf("user %s has unknown role %q", evt.UserID, evt.Role)
		}
		if evt.UserID == "" {
			return fmt.Errorf("user event without user_id")
		}
		return users.UpsertUser(ctx, model.User{ID: evt.UserID, Role: role, DisplayName: evt.DisplayName})
	}
}

// AttendanceRecorder applies attendance outcomes to appointments.
type AttendanceRecorder interface {
	Complete(ctx context.Context, actor lifecycle.Actor, id string) (model.Appointment, error)
	NoShow(ctx context.Context, actor lifecycle.Actor, id string) (model.Appointment, error)
}

type attendanceRecorded struct {
	AppointmentID string `json:"appointment_id"`
	Outcome       string `json:"outcome"`
}

// Attendance marks appointments COMPLETED or NO_SHOW. Outcomes that no
// longer apply (unknown or already terminal appointments) are logged and
// dropped since redelivery cannot fix them.
func Attendance(rec AttendanceRecorder, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt attendanceRecorded
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Topic, err)
		}

		var err error
		switch evt.Outcome {
		case "completed":
			_, err = rec.Complete(ctx, lifecycle.System(), evt.AppointmentID)
		case "no_show":
			_, err = rec.NoShow(ctx, lifecycle.System(), evt.AppointmentID)
		default:
			return fmt.Errorf("appointment %s: unknown outcome %q", evt.AppointmentID, evt.Outcome)
		}
		switch apperr.KindOf(err) {
		case apperr.KindNotFound, apperr.KindInvalidState:
			logger.Warn("attendance outcome skipped", "appointment_id", evt.AppointmentID, "outcome", evt.Outcome, "err", err)
			return nil
		}
		return err
	}
}
