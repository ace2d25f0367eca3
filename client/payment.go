package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"localserve/lifecycle"
	"localserve/models"

	"go.uber.org/zap"
)

// Orchestrator runs one payment: order, payment form, verification.
type Orchestrator struct {
	api      *Client
	loader   SDKLoader
	checkout Checkout
	merchant string
	keyID    string
	logger   *zap.Logger

	mu     sync.Mutex
	loaded bool
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	Loader   SDKLoader
	Checkout Checkout
	// MerchantName is shown on the payment form.
	MerchantName string
	// KeyID is used when the order does not carry the gateway's public key.
	KeyID string
}

func NewOrchestrator(api *Client, cfg OrchestratorConfig) *Orchestrator {
	loader := cfg.Loader
	if loader == nil {
		loader = SDKLoaderFunc(func(context.Context) error { return nil })
	}
	return &Orchestrator{
		api:      api,
		loader:   loader,
		checkout: cfg.Checkout,
		merchant: cfg.MerchantName,
		keyID:    cfg.KeyID,
		logger:   api.Logger(),
	}
}

// RequestOrder asks the service for the booking's outstanding order. A
// missing order is reported as KindPaymentUnavailable.
func (o *Orchestrator) RequestOrder(ctx context.Context, bookingID string) (*models.PaymentOrder, error) {
	const op = "request order"
	resp, err := o.api.do(ctx, http.MethodGet, bookingPath(bookingID, "order"), nil, "", nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, BookingID: bookingID, Err: err}
	}
	unavailable := &Error{Kind: KindPaymentUnavailable, Op: op, BookingID: bookingID, StatusCode: resp.status}
	if resp.status < 200 || resp.status >= 300 {
		unavailable.Message = statusError(op, bookingID, resp).Message
		return nil, unavailable
	}
	body := bytes.TrimSpace(resp.body)
	if resp.status == http.StatusNoContent || len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, unavailable
	}

	var order models.PaymentOrder
	if err := json.Unmarshal(body, &order); err != nil {
		unavailable.Err = fmt.Errorf("decoding order: %w", err)
		return nil, unavailable
	}
	if order.OrderID == "" {
		return nil, unavailable
	}
	return &order, nil
}

// EnsureSDKLoaded loads the payment SDK once. Concurrent callers wait for
// the same load; a failed load is retried by the next call.
func (o *Orchestrator) EnsureSDKLoaded(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loaded {
		return nil
	}
	if err := o.loader.Load(ctx); err != nil {
		o.logger.Warn("payment SDK failed to load", zap.Error(err))
		return &Error{Kind: KindWidgetLoad, Op: "load payment SDK", Err: err}
	}
	o.loaded = true
	return nil
}

// CheckoutOptions builds what the payment form is opened with.
func (o *Orchestrator) CheckoutOptions(bookingID string, order *models.PaymentOrder) models.CheckoutOptions {
	key := order.KeyID
	if key == "" {
		key = o.keyID
	}
	minor := order.AmountMinor
	if minor == 0 {
		minor = lifecycle.ToMinorUnits(order.Amount)
	}
	return models.CheckoutOptions{
		Key:         key,
		Amount:      minor,
		Currency:    order.Currency,
		OrderID:     order.OrderID,
		Name:        o.merchant,
		Description: "Payment for booking " + bookingID,
	}
}

// Pay runs the whole payment for bookingID and returns the booking as the
// service reports it after verification. The form is never opened without
// an order.
func (o *Orchestrator) Pay(ctx context.Context, bookingID string) (*models.Booking, error) {
	order, err := o.RequestOrder(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := o.EnsureSDKLoaded(ctx); err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.BookingID = bookingID
		}
		return nil, err
	}
	if o.checkout == nil {
		return nil, &Error{Kind: KindWidgetLoad, Op: "open checkout", BookingID: bookingID, Message: "no payment form configured"}
	}

	result, err := o.checkout.Open(ctx, o.CheckoutOptions(bookingID, order))
	switch {
	case errors.Is(err, ErrDismissed):
		o.logger.Info("payment dismissed", zap.String("bookingId", bookingID), zap.String("orderId", order.OrderID))
		return nil, &Error{Kind: KindPaymentDismissed, Op: "pay", BookingID: bookingID, Err: err}
	case err != nil:
		return nil, &Error{Kind: KindWidgetLoad, Op: "open checkout", BookingID: bookingID, Err: err}
	case result == nil:
		return nil, &Error{Kind: KindPaymentDismissed, Op: "pay", BookingID: bookingID}
	}

	return o.Verify(ctx, bookingID, *result)
}

// Verify forwards the checkout result unchanged to the service.
func (o *Orchestrator) Verify(ctx context.Context, bookingID string, result models.PaymentResult) (*models.Booking, error) {
	var raw json.RawMessage
	var booking *models.Booking
	err := o.api.doJSON(ctx, "verify payment", bookingID, http.MethodPost, bookingPath(bookingID, "verify"), result, &raw)
	if err == nil {
		booking, err = decodeBooking(raw)
	}
	if err != nil {
		o.logger.Error("payment verification failed",
			zap.String("bookingId", bookingID),
			zap.String("paymentId", result.PaymentID),
			zap.Error(err),
		)
		out := &Error{
			Kind:      KindVerification,
			Op:        "verify payment",
			BookingID: bookingID,
			Message: fmt.Sprintf("Payment verification failed. If you were charged, please contact support with payment id %s.",
				result.PaymentID),
			Err: err,
		}
		var ce *Error
		if errors.As(err, &ce) {
			out.StatusCode = ce.StatusCode
		}
		return nil, out
	}
	o.logger.Info("payment verified", zap.String("bookingId", bookingID), zap.String("status", booking.Status))
	return booking, nil
}
