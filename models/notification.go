package models

import "time"

// Roles recognised by the service and the dashboards.
const (
	RoleUser     = "user"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// StatusChangePayload is queued after every successful booking mutation.
type StatusChangePayload struct {
	BookingID  string    `json:"bookingId"`
	UserID     string    `json:"userId"`
	ProviderID string    `json:"providerId"`
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	ChangedAt  time.Time `json:"changedAt"`
}

// Service is the read-only slice of the catalog the booking service needs.
type Service struct {
	ID          string `bson:"id" json:"id"`
	ProviderID  string `bson:"provider_id" json:"providerId"`
	ServiceName string `bson:"service_name" json:"serviceName"`
}

// PaymentReminderPayload is scheduled when a booking starts waiting for
// payment and fires once the reminder delay has passed.
type PaymentReminderPayload struct {
	BookingID  string    `json:"bookingId"`
	UserID     string    `json:"userId"`
	AcceptedAt time.Time `json:"acceptedAt"`
}
