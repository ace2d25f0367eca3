package booking

import (
	"context"

	"localserve/models"
	"localserve/utils"
)

// BookingService is the Booking Store: it owns booking state and re-validates
// every transition, whatever the client offered.
type BookingService interface {
	CreateBooking(ctx context.Context, caller utils.Principal, req models.CreateBookingRequest) (*models.Booking, error)
	ListBookings(ctx context.Context, caller utils.Principal, filter models.BookingFilter) ([]models.Booking, error)
	// UpdateBooking applies one transition payload. A payload carrying an
	// amount is an accept.
	UpdateBooking(ctx context.Context, caller utils.Principal, bookingID string, payload models.TransitionPayload) (*models.Booking, error)
	// GetPaymentOrder returns the outstanding order, creating one if needed.
	// It returns nil without error when payment is not available.
	GetPaymentOrder(ctx context.Context, caller utils.Principal, bookingID string) (*models.PaymentOrder, error)
	VerifyPayment(ctx context.Context, caller utils.Principal, bookingID string, result models.PaymentResult) (*models.Booking, error)
	// PaymentKeyID is the public key of the configured gateway, if any.
	PaymentKeyID() string
}
