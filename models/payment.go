package models

import "time"

// PaymentOrder is a server-issued reference authorising one amount to be
// collected through the checkout widget.
type PaymentOrder struct {
	OrderID     string    `json:"orderId"`
	BookingID   string    `json:"bookingId,omitempty"`
	Amount      float64   `json:"amount"`
	AmountMinor int64     `json:"amountMinor,omitempty"`
	Currency    string    `json:"currency"`
	KeyID       string    `json:"keyId,omitempty"`
	Gateway     string    `json:"gateway,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// PaymentResult is what the checkout widget hands back after capturing funds.
type PaymentResult struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Signature string `json:"signature"`
}

// VerifyRequest is the body of POST /bookings/{id}/verify. The razorpay_*
// names are accepted for widgets that post their callback unchanged.
type VerifyRequest struct {
	PaymentID         string `json:"paymentId"`
	OrderID           string `json:"orderId"`
	Signature         string `json:"signature"`
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	RazorpayOrderID   string `json:"razorpay_order_id,omitempty"`
	RazorpaySignature string `json:"razorpay_signature,omitempty"`
}

// Result normalises either naming scheme into a PaymentResult.
func (r VerifyRequest) Result() PaymentResult {
	res := PaymentResult{PaymentID: r.PaymentID, OrderID: r.OrderID, Signature: r.Signature}
	if res.PaymentID == "" {
		res.PaymentID = r.RazorpayPaymentID
	}
	if res.OrderID == "" {
		res.OrderID = r.RazorpayOrderID
	}
	if res.Signature == "" {
		res.Signature = r.RazorpaySignature
	}
	return res
}

// CheckoutOptions configures one checkout widget session.
type CheckoutOptions struct {
	Key         string `json:"key"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
