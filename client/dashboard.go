package client

import (
	"context"
	"sync"

	"localserve/lifecycle"
	"localserve/models"

	"go.uber.org/zap"
)

// Dashboard is one viewer's list of bookings and the actions it offers on
// them. The booking service stays the source of truth; the view only
// changes when a call succeeds or on Refresh.
type Dashboard struct {
	api          *Client
	gateway      *Gateway
	orchestrator *Orchestrator
	role         string
	partyID      string
	logger       *zap.Logger

	mu       sync.Mutex
	bookings []models.Booking
	inFlight map[string]bool
}

// NewDashboard creates a dashboard for partyID acting as role. orchestrator
// may be nil for viewers that never pay.
func NewDashboard(api *Client, gateway *Gateway, orchestrator *Orchestrator, role, partyID string) *Dashboard {
	return &Dashboard{
		api:          api,
		gateway:      gateway,
		orchestrator: orchestrator,
		role:         role,
		partyID:      partyID,
		logger:       api.Logger(),
		inFlight:     make(map[string]bool),
	}
}

func (d *Dashboard) Role() string { return d.role }

// Refresh reloads the bookings visible to the viewer.
func (d *Dashboard) Refresh(ctx context.Context) error {
	var (
		bookings []models.Booking
		err      error
	)
	switch d.role {
	case models.RoleAdmin:
		bookings, err = d.api.ListAllBookings(ctx)
	case models.RoleProvider:
		bookings, err = d.api.ListBookings(ctx, models.BookingFilter{ProviderID: d.partyID})
	default:
		bookings, err = d.api.ListBookings(ctx, models.BookingFilter{UserID: d.partyID})
	}
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.bookings = bookings
	d.mu.Unlock()
	return nil
}

// Bookings returns a copy of the current view.
func (d *Dashboard) Bookings() []models.Booking {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Booking, len(d.bookings))
	copy(out, d.bookings)
	return out
}

// Booking returns the viewed booking with id.
func (d *Dashboard) Booking(id string) (models.Booking, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.bookings {
		if b.ID == id {
			return b, true
		}
	}
	return models.Booking{}, false
}

// Actions lists what the viewer may do with booking id right now. Nothing
// is offered while a call for that booking is in flight.
func (d *Dashboard) Actions(id string) []lifecycle.Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[id] {
		return nil
	}
	for _, b := range d.bookings {
		if b.ID == id {
			return lifecycle.AvailableActions(b.Status, d.role)
		}
	}
	return nil
}

// Perform runs a provider action on booking id. The call runs to completion
// even if ctx is cancelled, so the view never misses a change the service
// made.
func (d *Dashboard) Perform(ctx context.Context, id string, action lifecycle.Action, in lifecycle.Input) (*models.Booking, error) {
	if action == lifecycle.ActionPay {
		return d.Pay(ctx, id)
	}
	if err := d.begin(id, action); err != nil {
		return nil, err
	}
	defer d.end(id)

	b, err := d.gateway.Submit(context.WithoutCancel(ctx), id, action, in)
	if err != nil {
		return nil, err
	}
	d.replace(*b)
	return b, nil
}

// Pay runs the payment for booking id and reloads the list afterwards.
func (d *Dashboard) Pay(ctx context.Context, id string) (*models.Booking, error) {
	if d.orchestrator == nil {
		return nil, &Error{Kind: KindNotOffered, Op: string(lifecycle.ActionPay), BookingID: id, Message: "payments are not configured"}
	}
	if err := d.begin(id, lifecycle.ActionPay); err != nil {
		return nil, err
	}
	defer d.end(id)

	b, err := d.orchestrator.Pay(ctx, id)
	if err != nil {
		return nil, err
	}
	d.replace(*b)
	if err := d.Refresh(context.WithoutCancel(ctx)); err != nil {
		d.logger.Warn("refresh after payment failed", zap.String("bookingId", id), zap.Error(err))
	}
	return b, nil
}

// begin marks id busy if action is currently offered for it.
func (d *Dashboard) begin(id string, action lifecycle.Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	notOffered := &Error{Kind: KindNotOffered, Op: string(action), BookingID: id}
	if d.inFlight[id] {
		notOffered.Message = "another action on this booking is still running"
		return notOffered
	}
	var status string
	found := false
	for _, b := range d.bookings {
		if b.ID == id {
			status, found = b.Status, true
			break
		}
	}
	if !found {
		notOffered.Message = "booking is not on this dashboard"
		return notOffered
	}
	if !lifecycle.Offers(status, d.role, action) {
		notOffered.Message = string(action) + " is not available for a " + status + " booking"
		return notOffered
	}
	d.inFlight[id] = true
	return nil
}

func (d *Dashboard) end(id string) {
	d.mu.Lock()
	delete(d.inFlight, id)
	d.mu.Unlock()
}

func (d *Dashboard) replace(b models.Booking) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.bookings {
		if d.bookings[i].ID == b.ID {
			d.bookings[i] = b
			return
		}
	}
}
