package lifecycle

import (
	"strings"

	"localserve/models"
)

// Action is a transition a dashboard may offer for a booking.
type Action string

const (
	ActionAccept         Action = "accept"
	ActionReject         Action = "reject"
	ActionMarkInProgress Action = "mark-in-progress"
	ActionAddNote        Action = "add-note"
	ActionComplete       Action = "complete"
	ActionPay            Action = "pay"
)

// Input is what the viewer typed alongside an action. Amount is kept as raw
// text so that non-numeric entries are caught by BuildPayload.
type Input struct {
	Amount string
	Note   *string
}

// AvailableActions returns the actions a viewer with role may take on a
// booking in status. This is presentation policy only; the service
// re-validates every request.
func AvailableActions(status, role string) []Action {
	if IsTerminal(status) {
		return nil
	}
	switch role {
	case models.RoleProvider:
		if status == models.StatusBooked {
			return []Action{ActionAccept, ActionReject}
		}
		return []Action{ActionMarkInProgress, ActionAddNote, ActionComplete}
	case models.RoleUser:
		if status == models.StatusAwaitingPayment {
			return []Action{ActionPay}
		}
	}
	return nil
}

// Offers reports whether action is among AvailableActions(status, role).
func Offers(status, role string, action Action) bool {
	for _, a := range AvailableActions(status, role) {
		if a == action {
			return true
		}
	}
	return false
}

// BuildPayload turns a provider action into its single transition payload.
// Validation failures are returned before anything is sent.
func BuildPayload(action Action, in Input) (models.TransitionPayload, error) {
	var p models.TransitionPayload
	note := normaliseNote(in.Note)

	switch action {
	case ActionAccept:
		amount, err := ParseAmount(in.Amount)
		if err != nil {
			return p, err
		}
		p.Amount = &amount
		p.ProviderNote = note
	case ActionReject:
		p.Status = statusPtr(models.StatusRejected)
		p.ProviderNote = note
	case ActionMarkInProgress:
		p.Status = statusPtr(models.StatusInProgress)
		p.ProviderNote = note
	case ActionAddNote:
		if note == nil {
			return p, ErrNoteRequired
		}
		p.ProviderNote = note
	case ActionComplete:
		p.Status = statusPtr(models.StatusCompleted)
	default:
		return p, ErrUnknownAction
	}
	return p, nil
}

// normaliseNote drops blank notes so they are sent as absent, not "".
func normaliseNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func statusPtr(s string) *string { return &s }
