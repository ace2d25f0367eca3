package client

import (
	"context"
	"errors"

	"localserve/lifecycle"
	"localserve/models"

	"go.uber.org/zap"
)

// Gateway is the single entry point for booking state transitions. It
// validates locally, then tries each transport in order until one succeeds.
type Gateway struct {
	transports []Transport
	logger     *zap.Logger
}

// NewGateway tries the structured transport first and falls back to the
// note-form channel.
func NewGateway(api *Client) *Gateway {
	return NewGatewayWithTransports(api.Logger(), NewStructuredTransport(api), NewFormTransport(api))
}

func NewGatewayWithTransports(logger *zap.Logger, transports ...Transport) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{transports: transports, logger: logger}
}

// Accept prices a BOOKED booking. amount is the raw text the provider typed.
func (g *Gateway) Accept(ctx context.Context, bookingID, amount string, note *string) (*models.Booking, error) {
	return g.Submit(ctx, bookingID, lifecycle.ActionAccept, lifecycle.Input{Amount: amount, Note: note})
}

func (g *Gateway) Reject(ctx context.Context, bookingID string, note *string) (*models.Booking, error) {
	return g.Submit(ctx, bookingID, lifecycle.ActionReject, lifecycle.Input{Note: note})
}

func (g *Gateway) MarkInProgress(ctx context.Context, bookingID string, note *string) (*models.Booking, error) {
	return g.Submit(ctx, bookingID, lifecycle.ActionMarkInProgress, lifecycle.Input{Note: note})
}

func (g *Gateway) AddNote(ctx context.Context, bookingID, note string) (*models.Booking, error) {
	return g.Submit(ctx, bookingID, lifecycle.ActionAddNote, lifecycle.Input{Note: &note})
}

func (g *Gateway) Complete(ctx context.Context, bookingID string) (*models.Booking, error) {
	return g.Submit(ctx, bookingID, lifecycle.ActionComplete, lifecycle.Input{})
}

// Submit builds the payload for action and sends it. Nothing is sent when
// the input does not validate.
func (g *Gateway) Submit(ctx context.Context, bookingID string, action lifecycle.Action, in lifecycle.Input) (*models.Booking, error) {
	payload, err := lifecycle.BuildPayload(action, in)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: string(action), BookingID: bookingID, Message: err.Error(), Err: err}
	}
	return g.Send(ctx, bookingID, string(action), payload)
}

// Send delivers an already built payload. The first transport to succeed
// wins; otherwise the last failure is returned.
func (g *Gateway) Send(ctx context.Context, bookingID, op string, payload models.TransitionPayload) (*models.Booking, error) {
	if len(g.transports) == 0 {
		return nil, &Error{Kind: KindTransport, Op: op, BookingID: bookingID, Message: "no transport configured"}
	}

	var lastErr error
	for i, t := range g.transports {
		b, err := t.AttemptUpdate(ctx, bookingID, payload)
		if err == nil {
			if i > 0 {
				g.logger.Info("booking updated through fallback channel",
					zap.String("bookingId", bookingID), zap.String("op", op), zap.String("transport", t.Name()))
			}
			return b, nil
		}
		lastErr = err
		g.logger.Warn("booking update attempt failed",
			zap.String("bookingId", bookingID),
			zap.String("op", op),
			zap.String("transport", t.Name()),
			zap.Error(err),
		)
	}
	return nil, classify(op, bookingID, lastErr)
}

// classify makes sure the returned error is a *Error carrying op.
func classify(op, bookingID string, err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		out := *ce
		out.Op = op
		return &out
	}
	return &Error{Kind: KindTransport, Op: op, BookingID: bookingID, Err: err}
}
