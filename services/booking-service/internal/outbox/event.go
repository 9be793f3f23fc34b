package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the body of every booking.appointment.* event.
type AppointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	RequesterID   string    `json:"requester_id"`
	ProviderID    string    `json:"provider_id"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	Status        string    `json:"status"`
	Channel       string    `json:"channel"`
	MeetingRef    *string   `json:"meeting_ref,omitempty"`
	CancelReason  string    `json:"cancel_reason,omitempty"`
	CancelledBy   string    `json:"cancelled_by,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func AppointmentEvent(appt model.Appointment, kind model.EventKind) (Event, error) {
	occurred := appt.UpdatedAt
	if occurred.IsZero() {
		occurred = appt.CreatedAt
	}
	payload, err := json.Marshal(AppointmentPayload{
		AppointmentID: appt.ID,
		RequesterID:   appt.RequesterID,
		ProviderID:    appt.ProviderID,
		StartAt:       appt.StartAt.UTC(),
		EndAt:         appt.EndAt().UTC(),
		Status:        string(appt.Status),
		Channel:       string(appt.Channel),
		MeetingRef:    appt.MeetingRef,
		CancelReason:  appt.CancelReason,
		CancelledBy:   appt.CancelledBy,
		OccurredAt:    occurred.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     kind.Topic(),
		Payload:       payload,
	}, nil
}
