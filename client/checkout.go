package client

import (
	"context"
	"errors"
	"sync"

	"localserve/models"
)

// ErrDismissed is returned by a Checkout when the payer closes it without
// paying.
var ErrDismissed = errors.New("checkout dismissed")

// Checkout presents the payment form and waits for its single outcome: a
// payment result, or ErrDismissed.
type Checkout interface {
	Open(ctx context.Context, opts models.CheckoutOptions) (*models.PaymentResult, error)
}

// SDKLoader makes the payment form available, e.g. by fetching its script.
type SDKLoader interface {
	Load(ctx context.Context) error
}

// SDKLoaderFunc adapts a function to SDKLoader.
type SDKLoaderFunc func(ctx context.Context) error

func (f SDKLoaderFunc) Load(ctx context.Context) error { return f(ctx) }

// Widget is a callback style payment form. It calls exactly one of
// onSuccess or onDismiss per Open, though some widgets call back twice.
type Widget interface {
	Open(opts models.CheckoutOptions, onSuccess func(models.PaymentResult), onDismiss func()) error
}

// CallbackCheckout turns a Widget into a Checkout. Only the first callback
// is honoured.
type CallbackCheckout struct {
	Widget Widget
}

type checkoutOutcome struct {
	result    *models.PaymentResult
	dismissed bool
}

func (c CallbackCheckout) Open(ctx context.Context, opts models.CheckoutOptions) (*models.PaymentResult, error) {
	done := make(chan checkoutOutcome, 1)
	var once sync.Once
	settle := func(o checkoutOutcome) {
		once.Do(func() { done <- o })
	}

	err := c.Widget.Open(opts,
		func(r models.PaymentResult) { settle(checkoutOutcome{result: &r}) },
		func() { settle(checkoutOutcome{dismissed: true}) },
	)
	if err != nil {
		return nil, err
	}

	select {
	case o := <-done:
		if o.dismissed {
			return nil, ErrDismissed
		}
		return o.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
