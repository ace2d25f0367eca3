package models

import "time"

// Booking statuses known to the service. Clients must treat any other value
// as a non-terminal status that is past the negotiation step.
const (
	StatusBooked          = "BOOKED"
	StatusRejected        = "REJECTED"
	StatusAwaitingPayment = "AWAITING_PAYMENT"
	StatusPaid            = "PAID"
	StatusInProgress      = "IN_PROGRESS"
	StatusCompleted       = "COMPLETED"
)

// Payment statuses recorded on a booking.
const (
	PaymentPending  = "PENDING"
	PaymentVerified = "VERIFIED"
	PaymentFailed   = "FAILED"
)

// Booking represents one user's request for one provider's service.
type Booking struct {
	ID             string    `bson:"id" json:"id"`
	UserID         string    `bson:"user_id" json:"userId"`
	ServiceID      string    `bson:"service_id" json:"serviceId"`
	ServiceName    string    `bson:"service_name,omitempty" json:"serviceName,omitempty"`
	ProviderID     string    `bson:"provider_id" json:"providerId"`
	Status         string    `bson:"status" json:"status"`
	Date           time.Time `bson:"date" json:"date"`
	Address        string    `bson:"address" json:"address"`
	UserNote       *string   `bson:"user_note,omitempty" json:"userNote"`
	ProviderNote   *string   `bson:"provider_note,omitempty" json:"providerNote"`
	ProviderAmount *float64  `bson:"provider_amount,omitempty" json:"providerAmount"`
	PaymentOrderID string    `bson:"payment_order_id,omitempty" json:"paymentOrderId,omitempty"`
	PaymentID      string    `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	PaymentStatus  string    `bson:"payment_status,omitempty" json:"paymentStatus,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updatedAt"`
	// Version is bumped on every write and guards against lost updates.
	Version int64 `bson:"version" json:"version"`
}

// TransitionPayload is the single logical request behind every provider
// transition. Nil fields are not sent.
type TransitionPayload struct {
	Status       *string  `json:"status,omitempty"`
	ProviderNote *string  `json:"providerNote,omitempty"`
	Amount       *float64 `json:"amount,omitempty"`
}

// CreateBookingRequest is the body of POST /bookings.
type CreateBookingRequest struct {
	ServiceID string     `json:"serviceId" binding:"required"`
	Date      *time.Time `json:"date"`
	Address   string     `json:"address"`
	UserNote  *string    `json:"userNote"`
}

// AcceptRequest is the body of POST /bookings/{id}/accept.
type AcceptRequest struct {
	Amount       *float64 `json:"amount"`
	ProviderNote *string  `json:"providerNote,omitempty"`
}

// AcceptResponse wraps the accepted booking with the public gateway key.
type AcceptResponse struct {
	Booking *Booking `json:"booking"`
	KeyID   string   `json:"keyId,omitempty"`
}

// BookingEnvelope is used by endpoints answering {"booking": ...}.
type BookingEnvelope struct {
	Booking *Booking `json:"booking"`
}

// BookingFilter scopes a booking listing to one party. Empty fields are ignored.
type BookingFilter struct {
	UserID     string
	ProviderID string
}
