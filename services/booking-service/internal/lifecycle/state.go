package lifecycle

import (
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionNoShow   Action = "no_show"
)

var targets = map[Action]model.Status{
	ActionConfirm:  model.StatusConfirmed,
	ActionCancel:   model.StatusCancelled,
	ActionComplete: model.StatusCompleted,
	ActionNoShow:   model.StatusNoShow,
}

// allowed lists the statuses each one may move to. Terminal statuses have no entry.
var allowed = map[model.Status][]model.Status{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled, model.StatusCompleted, model.StatusNoShow},
	model.StatusConfirmed: {model.StatusCancelled, model.StatusCompleted, model.StatusNoShow},
}

func CanTransition(from, to model.Status) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

func Terminal(s model.Status) bool {
	return len(allowed[s]) == 0
}

// Actor identifies who asks for a transition. System actors (attendance
// tracking) may complete or mark no-show but never confirm or cancel.
type Actor struct {
	UserID string
	System bool
}

func User(id string) Actor { return Actor{UserID: id} }

func System() Actor { return Actor{System: true} }

// Transition checks that actor may apply action to appt and returns the new status.
func Transition(appt model.Appointment, action Action, actor Actor) (model.Status, error) {
	to, ok := targets[action]
	if !ok {
		return "", apperr.Validation("unknown action %q", action)
	}

	switch action {
	case ActionConfirm:
		if actor.System || actor.UserID != appt.ProviderID {
			return "", apperr.Unauthorized("only the assigned provider can confirm appointment %s", appt.ID)
		}
	case ActionCancel:
		if actor.System || !appt.IsParticipant(actor.UserID) {
			return "", apperr.Unauthorized("only participants can cancel appointment %s", appt.ID)
		}
	case ActionComplete, ActionNoShow:
		if !actor.System && actor.UserID != appt.ProviderID {
			return "", apperr.Unauthorized("attendance for appointment %s is recorded by the provider or the system", appt.ID)
		}
	}

	if !CanTransition(appt.Status, to) {
		return "", apperr.InvalidState("appointment %s cannot go from %s to %s", appt.ID, appt.Status, to)
	}
	return to, nil
}
