package notification

import (
	"context"
	"time"

	"localserve/models"
)

// TypeStatusChange is the asynq task type for booking status pushes.
const TypeStatusChange = "booking:status"

// StatusNotifier tells the parties of a booking that it changed. from is
// the status before the change, empty for a new booking.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, from string, booking models.Booking) error
}

// NoopNotifier is used when no queue is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyStatusChange(context.Context, string, models.Booking) error { return nil }

// PayloadFor builds the queued payload for booking.
func PayloadFor(booking models.Booking) models.StatusChangePayload {
	p := models.StatusChangePayload{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		ProviderID: booking.ProviderID,
		Status:     booking.Status,
		ChangedAt:  booking.UpdatedAt,
	}
	if p.ChangedAt.IsZero() {
		p.ChangedAt = time.Now()
	}
	if booking.ProviderNote != nil {
		p.Note = *booking.ProviderNote
	}
	return p
}
