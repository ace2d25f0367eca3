package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"localserve/lifecycle"
	"localserve/models"
)

// RazorpayGateway creates orders over the Razorpay REST API and verifies
// checkout signatures locally.
type RazorpayGateway struct {
	apiURL     string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

func NewRazorpayGateway(apiURL, keyID, keySecret string, httpClient *http.Client) *RazorpayGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RazorpayGateway{
		apiURL:     strings.TrimRight(apiURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: httpClient,
	}
}

func (g *RazorpayGateway) Name() string  { return "razorpay" }
func (g *RazorpayGateway) KeyID() string { return g.keyID }

type razorpayOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, booking models.Booking, currency, idempotencyKey string) (*models.PaymentOrder, error) {
	if booking.ProviderAmount == nil {
		return nil, fmt.Errorf("booking %s has no provider amount", booking.ID)
	}
	minor := lifecycle.ToMinorUnits(*booking.ProviderAmount)
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:         minor,
		Currency:       currency,
		Receipt:        "booking_" + booking.ID,
		PaymentCapture: 1,
		Notes:          map[string]string{"bookingId": booking.ID, "attempt": idempotencyKey},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay: order request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("razorpay: reading order response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay: order creation failed with status %d: %s", resp.StatusCode, raw)
	}

	var out razorpayOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("razorpay: parsing order response: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("razorpay: response missing order id")
	}
	return &models.PaymentOrder{
		OrderID:     out.ID,
		BookingID:   booking.ID,
		Amount:      *booking.ProviderAmount,
		AmountMinor: minor,
		Currency:    currency,
		KeyID:       g.keyID,
		Gateway:     g.Name(),
		CreatedAt:   time.Now(),
	}, nil
}

func (g *RazorpayGateway) VerifyPayment(_ context.Context, order models.PaymentOrder, result models.PaymentResult) error {
	if err := checkOrder(order, result); err != nil {
		return err
	}
	expected := Sign(g.keySecret, result.OrderID, result.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(result.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the checkout signature hex(HMAC-SHA256(orderID|paymentID)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
