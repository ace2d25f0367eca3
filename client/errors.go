package client

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies client failures. A Kind is itself an error so callers can
// test with errors.Is(err, client.KindRejected).
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotOffered         Kind = "not_offered"
	KindTransport          Kind = "transport"
	KindRejected           Kind = "rejected"
	KindPaymentUnavailable Kind = "payment_unavailable"
	KindWidgetLoad         Kind = "widget_load"
	KindPaymentDismissed   Kind = "payment_dismissed"
	KindVerification       Kind = "verification"
)

func (k Kind) Error() string { return string(k) }

// Error is returned by every client operation. None of them is fatal: the
// booking view stays usable after any of them.
type Error struct {
	Kind       Kind
	Op         string
	BookingID  string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.BookingID != "" {
		fmt.Fprintf(&b, " booking %s", e.BookingID)
	}
	fmt.Fprintf(&b, ": %s", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// UserMessage is the text a dashboard shows for err.
func UserMessage(err error) string {
	var ce *Error
	if !errors.As(err, &ce) {
		return err.Error()
	}
	if ce.Message != "" {
		return ce.Message
	}
	switch ce.Kind {
	case KindTransport:
		return "The booking service could not be reached. Please try again."
	case KindPaymentUnavailable:
		return "Payment is not available for this booking yet."
	case KindWidgetLoad:
		return "The payment form could not be loaded. Please try again."
	case KindPaymentDismissed:
		return "Payment was cancelled."
	default:
		return ce.Error()
	}
}
