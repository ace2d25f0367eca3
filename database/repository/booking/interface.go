package bookingRepo

import (
	"context"
	"errors"

	"localserve/models"
)

var (
	ErrNotFound = errors.New("booking not found")
	// ErrConflict means the stored booking changed since it was read.
	ErrConflict = errors.New("booking was modified concurrently")
)

// BookingRepository is the persistence boundary of the Booking Store.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	// UpdateIfUnchanged writes the mutable fields of booking only if the
	// stored status still equals expectedStatus and the stored version equals
	// booking.Version. On success booking.Version is advanced.
	UpdateIfUnchanged(ctx context.Context, expectedStatus string, booking *models.Booking) error
}
