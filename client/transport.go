package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"localserve/models"
)

// Transport delivers one transition payload to the booking service and
// returns the booking as stored afterwards.
type Transport interface {
	Name() string
	AttemptUpdate(ctx context.Context, bookingID string, payload models.TransitionPayload) (*models.Booking, error)
}

// StructuredTransport sends JSON: PATCH /bookings/{id}, or
// POST /bookings/{id}/accept when the payload carries an amount.
type StructuredTransport struct {
	api *Client
}

func NewStructuredTransport(api *Client) *StructuredTransport {
	return &StructuredTransport{api: api}
}

func (t *StructuredTransport) Name() string { return "structured" }

func (t *StructuredTransport) AttemptUpdate(ctx context.Context, bookingID string, payload models.TransitionPayload) (*models.Booking, error) {
	if payload.Amount != nil {
		var raw json.RawMessage
		req := models.AcceptRequest{Amount: payload.Amount, ProviderNote: payload.ProviderNote}
		if err := t.api.doJSON(ctx, "accept", bookingID, http.MethodPost, bookingPath(bookingID, "accept"), req, &raw); err != nil {
			return nil, err
		}
		b, err := decodeBooking(raw)
		if err != nil {
			return nil, &Error{Kind: KindTransport, Op: "accept", BookingID: bookingID, Message: err.Error(), Err: err}
		}
		return b, nil
	}

	var out models.Booking
	if err := t.api.doJSON(ctx, "update", bookingID, http.MethodPatch, bookingPath(bookingID), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FormTransport is the fallback channel: the same payload as URL-encoded
// fields on POST /bookings/{id}/note-form. It adds no validation of its own.
type FormTransport struct {
	api *Client
}

func NewFormTransport(api *Client) *FormTransport {
	return &FormTransport{api: api}
}

func (t *FormTransport) Name() string { return "note-form" }

func (t *FormTransport) AttemptUpdate(ctx context.Context, bookingID string, payload models.TransitionPayload) (*models.Booking, error) {
	const op = "update (note-form)"
	resp, err := t.api.do(ctx, http.MethodPost, bookingPath(bookingID, "note-form"), EncodeForm(payload),
		"application/x-www-form-urlencoded", nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, BookingID: bookingID, Err: err}
	}
	if resp.status < 200 || resp.status >= 300 {
		return nil, statusError(op, bookingID, resp)
	}
	var out models.Booking
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, BookingID: bookingID, StatusCode: resp.status, Err: err}
	}
	return &out, nil
}

// EncodeForm flattens payload into the status, providerNote and amount
// fields. Absent fields are omitted.
func EncodeForm(payload models.TransitionPayload) url.Values {
	v := url.Values{}
	if payload.Status != nil {
		v.Set("status", *payload.Status)
	}
	if payload.ProviderNote != nil {
		v.Set("providerNote", *payload.ProviderNote)
	}
	if payload.Amount != nil {
		v.Set("amount", strconv.FormatFloat(*payload.Amount, 'f', -1, 64))
	}
	return v
}
