package model

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusNoShow    Status = "NO_SHOW"
)

// Active statuses hold a provider's time; only these take part in overlap checks.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

type Channel string

const (
	ChannelOnline   Channel = "ONLINE"
	ChannelPhone    Channel = "PHONE"
	ChannelInPerson Channel = "IN_PERSON"
)

func ParseChannel(raw string) (Channel, error) {
	c := Channel(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")))
	switch c {
	case ChannelOnline, ChannelPhone, ChannelInPerson:
		return c, nil
	case "":
		return ChannelInPerson, nil
	}
	return "", fmt.Errorf("unknown channel %q", raw)
}

type Appointment struct {
	ID           string
	RequesterID  string
	ProviderID   string
	StartAt      time.Time
	Duration     time.Duration
	Status       Status
	Channel      Channel
	MeetingRef   *string
	Notes        string
	CancelReason string
	CancelledBy  string
	CancelledAt  *time.Time
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Appointment) EndAt() time.Time {
	return a.StartAt.Add(a.Duration)
}

func (a Appointment) Interval() Interval {
	return Interval{Start: a.StartAt, End: a.EndAt()}
}

// IsParticipant reports whether userID is the requester or the provider.
func (a Appointment) IsParticipant(userID string) bool {
	return userID != "" && (userID == a.RequesterID || userID == a.ProviderID)
}

// BookingRequest is either an instant or a pair of phrases to resolve.
type BookingRequest struct {
	RequesterID string
	ProviderID  string
	StartAt     time.Time
	DatePhrase  string
	TimePhrase  string
	Duration    time.Duration
	Channel     Channel
	Notes       string
}

func (r BookingRequest) HasInstant() bool {
	return !r.StartAt.IsZero()
}

type Slot struct {
	ProviderID string    `json:"provider_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}
