package payment

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"localserve/lifecycle"
	"localserve/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// intentAPI is the part of the Stripe PaymentIntents client the gateway uses.
type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway maps orders onto Stripe PaymentIntents. The checkout reports
// the latest charge id as payment id and the intent's client secret as its
// signature; both are checked against the intent Stripe holds.
type StripeGateway struct {
	publishableKey string
	intents        intentAPI
}

func NewStripeGateway(secretKey, publishableKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{publishableKey: publishableKey, intents: sc.PaymentIntents}
}

func (g *StripeGateway) Name() string  { return "stripe" }
func (g *StripeGateway) KeyID() string { return g.publishableKey }

func (g *StripeGateway) CreateOrder(ctx context.Context, booking models.Booking, currency, idempotencyKey string) (*models.PaymentOrder, error) {
	if booking.ProviderAmount == nil {
		return nil, fmt.Errorf("booking %s has no provider amount", booking.ID)
	}
	minor := lifecycle.ToMinorUnits(*booking.ProviderAmount)

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(minor),
		Currency:    stripe.String(strings.ToLower(currency)),
		Description: stripe.String("Payment for booking " + booking.ID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("booking_id", booking.ID)
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: creating payment intent: %w", err)
	}
	return &models.PaymentOrder{
		OrderID:     pi.ID,
		BookingID:   booking.ID,
		Amount:      *booking.ProviderAmount,
		AmountMinor: minor,
		Currency:    strings.ToUpper(currency),
		KeyID:       g.publishableKey,
		Gateway:     g.Name(),
		CreatedAt:   time.Now(),
	}, nil
}

func (g *StripeGateway) VerifyPayment(ctx context.Context, order models.PaymentOrder, result models.PaymentResult) error {
	if err := checkOrder(order, result); err != nil {
		return err
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.intents.Get(result.OrderID, params)
	if err != nil {
		return fmt.Errorf("stripe: retrieving payment intent: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(pi.ClientSecret), []byte(result.Signature)) != 1 {
		return ErrInvalidSignature
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: intent status %s", ErrNotCaptured, pi.Status)
	}
	if pi.LatestCharge == nil || pi.LatestCharge.ID != result.PaymentID {
		return ErrOrderMismatch
	}
	if pi.Amount != order.AmountMinor {
		return fmt.Errorf("%w: captured %d, expected %d", ErrNotCaptured, pi.Amount, order.AmountMinor)
	}
	return nil
}
