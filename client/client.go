// Package client talks to the booking service on behalf of a dashboard:
// state transitions with a fallback channel, payments and listings.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"localserve/models"
	"localserve/utils"

	"go.uber.org/zap"
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:7373/api".
	BaseURL string

	// Token is sent as a bearer token on every request.
	Token string

	// HTTPClient is used for all requests. Defaults to a client without
	// a timeout.
	HTTPClient *http.Client

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Client is a typed booking API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("client: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, token: cfg.Token, httpClient: httpClient, logger: logger}, nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *zap.Logger { return c.logger }

type response struct {
	status int
	body   []byte
}

// do sends one request. The error is non-nil only when no response was
// received; callers inspect the status themselves.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (*response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

// doJSON sends in as JSON (when non-nil) and decodes a 2xx answer into out.
func (c *Client) doJSON(ctx context.Context, op, bookingID, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindValidation, Op: op, BookingID: bookingID, Err: err}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	resp, err := c.do(ctx, method, path, nil, contentType, body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, BookingID: bookingID, Err: err}
	}
	if resp.status < 200 || resp.status >= 300 {
		return statusError(op, bookingID, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &Error{Kind: KindTransport, Op: op, BookingID: bookingID, StatusCode: resp.status,
			Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// decodeBooking reads a booking answered either wrapped as {"booking": ...}
// or bare. A bare body must carry an id.
func decodeBooking(raw json.RawMessage) (*models.Booking, error) {
	var env models.BookingEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Booking != nil {
		return env.Booking, nil
	}
	var b models.Booking
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decoding booking: %w", err)
	}
	if b.ID == "" {
		return nil, errors.New("response carried no booking")
	}
	return &b, nil
}

// statusError classifies a non-2xx answer: 4xx is a refusal by the service,
// anything else a transport failure.
func statusError(op, bookingID string, resp *response) *Error {
	kind := KindTransport
	if resp.status >= 400 && resp.status < 500 {
		kind = KindRejected
	}
	var body utils.ErrorResponse
	message := ""
	if json.Unmarshal(resp.body, &body) == nil {
		message = body.Error
	}
	return &Error{Kind: kind, Op: op, BookingID: bookingID, StatusCode: resp.status, Message: message}
}

func bookingPath(id string, suffix ...string) string {
	p := "/bookings/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// ListBookings fetches the bookings visible under filter.
func (c *Client) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	path := "/bookings"
	q := url.Values{}
	if filter.UserID != "" {
		q.Set("userId", filter.UserID)
	}
	if filter.ProviderID != "" {
		q.Set("providerId", filter.ProviderID)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.Booking
	if err := c.doJSON(ctx, "list bookings", "", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllBookings fetches every booking. Admin only.
func (c *Client) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	var out []models.Booking
	if err := c.doJSON(ctx, "list bookings", "", http.MethodGet, "/admin/bookings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBooking books a service as the authenticated user.
func (c *Client) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	if strings.TrimSpace(req.ServiceID) == "" {
		return nil, &Error{Kind: KindValidation, Op: "create booking", Message: "serviceId is required"}
	}
	var out models.Booking
	if err := c.doJSON(ctx, "create booking", "", http.MethodPost, "/bookings", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
