package outbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Notifier turns appointment changes into outbox rows. It runs after the
// change has committed, so a failed insert loses the notification but never
// the appointment.
type Notifier struct {
	q    db.Querier
	repo *Repository
}

func NewNotifier(q db.Querier, repo *Repository) *Notifier {
	return &Notifier{q: q, repo: repo}
}

func (n *Notifier) Notify(ctx context.Context, appt model.Appointment, kind model.EventKind) error {
	evt, err := AppointmentEvent(appt, kind)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", kind, err)
	}
	return n.repo.Insert(ctx, n.q, evt)
}

// LogNotifier only logs. It stands in when there is no database to hold an outbox.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, appt model.Appointment, kind model.EventKind) error {
	n.logger.Info("appointment event", "topic", kind.Topic(), "appointment_id", appt.ID, "status", string(appt.Status))
	return nil
}
