package model

// EventKind names a notification about an appointment. The Kafka topic for a
// kind is "booking.appointment.<kind>.v1".
type EventKind string

const (
	EventRequested EventKind = "requested"
	EventConfirmed EventKind = "confirmed"
	EventCancelled EventKind = "cancelled"
	EventCompleted EventKind = "completed"
	EventNoShow    EventKind = "no_show"
)

func (k EventKind) Topic() string {
	return "booking.appointment." + string(k) + ".v1"
}

// EventFor maps a status reached by a transition to its notification.
func EventFor(s Status) (EventKind, bool) {
	switch s {
	case StatusPending:
		return EventRequested, true
	case StatusConfirmed:
		return EventConfirmed, true
	case StatusCancelled:
		return EventCancelled, true
	case StatusCompleted:
		return EventCompleted, true
	case StatusNoShow:
		return EventNoShow, true
	}
	return "", false
}
