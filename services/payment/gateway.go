// Package payment creates payment orders with a third-party gateway and
// verifies the results the checkout widget reports back.
package payment

import (
	"context"
	"errors"

	"localserve/models"
)

var (
	ErrInvalidSignature = errors.New("payment signature does not match")
	ErrOrderMismatch    = errors.New("payment belongs to a different order")
	ErrNotCaptured      = errors.New("payment has not been captured")
)

// Gateway is one payment provider.
type Gateway interface {
	// Name identifies the gateway in orders and logs.
	Name() string
	// KeyID is the public key the checkout widget is opened with.
	KeyID() string
	// CreateOrder registers a new order for the booking's provider amount.
	// idempotencyKey is stable for one attempt so retries do not create a
	// second charge path.
	CreateOrder(ctx context.Context, booking models.Booking, currency, idempotencyKey string) (*models.PaymentOrder, error)
	// VerifyPayment confirms result is a real, completed charge for order.
	VerifyPayment(ctx context.Context, order models.PaymentOrder, result models.PaymentResult) error
}

func checkOrder(order models.PaymentOrder, result models.PaymentResult) error {
	if result.PaymentID == "" || result.OrderID == "" || result.Signature == "" {
		return ErrInvalidSignature
	}
	if result.OrderID != order.OrderID {
		return ErrOrderMismatch
	}
	return nil
}
