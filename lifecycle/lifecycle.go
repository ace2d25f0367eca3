// Package lifecycle holds the booking state machine shared by the service,
// which enforces it, and the client dashboards, which use it to decide what
// to offer.
package lifecycle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"localserve/models"
)

var (
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrNoteRequired      = errors.New("a note is required")
	ErrEmptyPayload      = errors.New("transition carries no changes")
	ErrTerminal          = errors.New("booking is in a terminal state")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrUnknownAction     = errors.New("unknown action")
)

// TransitionError reports a status change the state machine does not allow.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// IsValidation reports whether err is a local validation failure rather
// than a state machine refusal.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNoteRequired) ||
		errors.Is(err, ErrEmptyPayload) ||
		errors.Is(err, ErrUnknownAction)
}

// IsTerminal reports whether no transition may leave status.
func IsTerminal(status string) bool {
	return status == models.StatusRejected || status == models.StatusCompleted
}

// ParseAmount parses a provider-entered price.
func ParseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	if !ValidAmount(amount) {
		return 0, fmt.Errorf("%w: got %s", ErrInvalidAmount, raw)
	}
	return amount, nil
}

// ValidAmount reports whether amount is finite, positive and at least one
// minor currency unit.
func ValidAmount(amount float64) bool {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return false
	}
	return ToMinorUnits(amount) > 0
}

// ToMinorUnits converts a major-unit amount (rupees) to minor units (paise).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CanVerify reports whether a payment verification may be applied in status.
func CanVerify(status string) bool {
	return status == models.StatusAwaitingPayment || status == models.StatusInProgress
}

// VerifiedStatus is the status a booking moves to once its payment is verified.
func VerifiedStatus(current string) string {
	if current == models.StatusAwaitingPayment {
		return models.StatusPaid
	}
	return current
}

// Apply validates p against the current state of b and returns the updated
// booking. b is not modified.
func Apply(b models.Booking, p models.TransitionPayload) (models.Booking, error) {
	if IsTerminal(b.Status) {
		return b, fmt.Errorf("%w: %s", ErrTerminal, b.Status)
	}
	if p.Status == nil && p.ProviderNote == nil && p.Amount == nil {
		return b, ErrEmptyPayload
	}

	next := b
	if p.Amount != nil {
		if !ValidAmount(*p.Amount) {
			return b, ErrInvalidAmount
		}
		if b.Status != models.StatusBooked {
			return b, &TransitionError{From: b.Status, To: models.StatusAwaitingPayment}
		}
		if p.Status != nil && *p.Status != models.StatusAwaitingPayment {
			return b, &TransitionError{From: b.Status, To: *p.Status}
		}
		amount := *p.Amount
		next.ProviderAmount = &amount
		next.Status = models.StatusAwaitingPayment
	} else if p.Status != nil {
		to := *p.Status
		if !statusReachable(b.Status, to) {
			return b, &TransitionError{From: b.Status, To: to}
		}
		next.Status = to
	}

	if p.ProviderNote != nil {
		note := *p.ProviderNote
		next.ProviderNote = &note
	}
	return next, nil
}

// statusReachable covers the status changes a plain update may request.
// AWAITING_PAYMENT is only reachable through accept and PAID only through
// payment verification.
func statusReachable(from, to string) bool {
	switch to {
	case models.StatusRejected:
		return from == models.StatusBooked
	case models.StatusInProgress:
		return true
	case models.StatusCompleted:
		return from != models.StatusBooked
	default:
		return false
	}
}
