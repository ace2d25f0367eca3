package payment

import (
	"context"
	"testing"

	"localserve/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type fakeIntents struct {
	created *stripe.PaymentIntentParams
	intent  *stripe.PaymentIntent
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.created = params
	return f.intent, nil
}

func (f *fakeIntents) Get(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return f.intent, nil
}

func TestStripeCreateOrder(t *testing.T) {
	fake := &fakeIntents{intent: &stripe.PaymentIntent{ID: "pi_1"}}
	gw := &StripeGateway{publishableKey: "pk_test", intents: fake}

	order, err := gw.CreateOrder(context.Background(), models.Booking{ID: "42", ProviderAmount: amountPtr(500)}, "INR", "order-42-1")
	require.NoError(t, err)

	assert.Equal(t, int64(50000), *fake.created.Amount)
	assert.Equal(t, "inr", *fake.created.Currency)
	assert.Equal(t, "order-42-1", *fake.created.IdempotencyKey)
	assert.Equal(t, "42", fake.created.Metadata["booking_id"])
	assert.Equal(t, "pi_1", order.OrderID)
	assert.Equal(t, "pk_test", order.KeyID)
	assert.Equal(t, "stripe", order.Gateway)
}

func TestStripeVerifyPayment(t *testing.T) {
	intent := &stripe.PaymentIntent{
		ID:           "pi_1",
		Amount:       50000,
		ClientSecret: "pi_1_secret",
		Status:       stripe.PaymentIntentStatusSucceeded,
		LatestCharge: &stripe.Charge{ID: "ch_1"},
	}
	gw := &StripeGateway{intents: &fakeIntents{intent: intent}}
	order := models.PaymentOrder{OrderID: "pi_1", AmountMinor: 50000}
	result := models.PaymentResult{PaymentID: "ch_1", OrderID: "pi_1", Signature: "pi_1_secret"}

	assert.NoError(t, gw.VerifyPayment(context.Background(), order, result))

	bad := result
	bad.Signature = "guess"
	assert.ErrorIs(t, gw.VerifyPayment(context.Background(), order, bad), ErrInvalidSignature)

	intent.Status = stripe.PaymentIntentStatusRequiresPaymentMethod
	assert.ErrorIs(t, gw.VerifyPayment(context.Background(), order, result), ErrNotCaptured)
}
