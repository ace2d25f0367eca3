package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "localserve/database/repository/booking"
	catalogRepo "localserve/database/repository/catalog"
	"localserve/lifecycle"
	"localserve/models"
	"localserve/services/notification"
	"localserve/services/payment"
	"localserve/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStore is satisfied by *payment.OrderRegistry.
type OrderStore interface {
	Get(ctx context.Context, bookingID string) (*models.PaymentOrder, error)
	Put(ctx context.Context, order *models.PaymentOrder) error
	Clear(ctx context.Context, bookingID string) error
	Lock(ctx context.Context, bookingID string) (unlock func(), ok bool, err error)
}

// DefaultBookingService implements BookingService. A nil Gateway disables
// payments: orders are reported as unavailable.
type DefaultBookingService struct {
	Repo      bookingRepo.BookingRepository
	Directory catalogRepo.ServiceDirectory
	Gateway   payment.Gateway
	Orders    OrderStore
	Notifier  notification.StatusNotifier
	Currency  string
	Logger    *zap.Logger

	// LockWait is how long GetPaymentOrder waits for a concurrent order
	// creation before giving up.
	LockWait time.Duration
}

func (s *DefaultBookingService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *DefaultBookingService) PaymentKeyID() string {
	if s.Gateway == nil {
		return ""
	}
	return s.Gateway.KeyID()
}

func (s *DefaultBookingService) CreateBooking(ctx context.Context, caller utils.Principal, req models.CreateBookingRequest) (*models.Booking, error) {
	if caller.Role != models.RoleUser {
		return nil, newError(CodeForbidden, "only users can create bookings", nil)
	}
	if req.ServiceID == "" {
		return nil, newError(CodeValidation, "serviceId is required", nil)
	}
	svc, err := s.Directory.GetService(ctx, req.ServiceID)
	if errors.Is(err, catalogRepo.ErrServiceNotFound) {
		return nil, newError(CodeValidation, "invalid serviceId", err)
	}
	if err != nil {
		return nil, newError(CodeInternal, "failed to look up service", err)
	}

	now := time.Now().UTC()
	b := &models.Booking{
		ID:          uuid.New().String(),
		UserID:      caller.ID,
		ServiceID:   svc.ID,
		ServiceName: svc.ServiceName,
		ProviderID:  svc.ProviderID,
		Status:      models.StatusBooked,
		Date:        now,
		Address:     req.Address,
		UserNote:    req.UserNote,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Date != nil {
		b.Date = req.Date.UTC()
	}
	if err := s.Repo.Create(ctx, b); err != nil {
		return nil, newError(CodeInternal, "failed to create booking", err)
	}
	s.logger().Info("booking created", zap.String("bookingId", b.ID), zap.String("serviceId", b.ServiceID))
	s.notify(ctx, "", *b)
	return b, nil
}

func (s *DefaultBookingService) ListBookings(ctx context.Context, caller utils.Principal, filter models.BookingFilter) ([]models.Booking, error) {
	switch caller.Role {
	case models.RoleAdmin:
	case models.RoleUser:
		if filter.UserID != "" && filter.UserID != caller.ID {
			return nil, newError(CodeForbidden, "users may only list their own bookings", nil)
		}
		filter.UserID = caller.ID
	case models.RoleProvider:
		if filter.ProviderID != "" && filter.ProviderID != caller.ID {
			return nil, newError(CodeForbidden, "providers may only list their own bookings", nil)
		}
		filter.ProviderID = caller.ID
	default:
		return nil, newError(CodeForbidden, "unknown role", nil)
	}

	bookings, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, newError(CodeInternal, "failed to list bookings", err)
	}
	return bookings, nil
}

func (s *DefaultBookingService) UpdateBooking(ctx context.Context, caller utils.Principal, bookingID string, payload models.TransitionPayload) (*models.Booking, error) {
	current, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleProvider || current.ProviderID != caller.ID {
		return nil, newError(CodeForbidden, "only the booking's provider can update it", nil)
	}

	var order *models.PaymentOrder
	orderTried := false
	next, err := s.update(ctx, current, func(b *models.Booking) error {
		applied, err := lifecycle.Apply(*b, payload)
		if err != nil {
			return lifecycleError(err)
		}
		*b = applied
		if payload.Amount != nil && s.Gateway != nil && !orderTried {
			orderTried = true
			// Order creation is best effort here; GetPaymentOrder retries it.
			order, err = s.Gateway.CreateOrder(ctx, *b, s.Currency, idempotencyKey(*b))
			if err != nil {
				s.logger().Warn("payment order creation failed on accept",
					zap.String("bookingId", b.ID), zap.Error(err))
				order = nil
			}
		}
		if order != nil {
			b.PaymentOrderID = order.OrderID
			b.PaymentStatus = models.PaymentPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order != nil {
		s.cacheOrder(ctx, order)
	}

	s.logger().Info("booking transition applied",
		zap.String("bookingId", next.ID),
		zap.String("from", current.Status),
		zap.String("to", next.Status),
	)
	s.notify(ctx, current.Status, *next)
	return next, nil
}

func (s *DefaultBookingService) GetPaymentOrder(ctx context.Context, caller utils.Principal, bookingID string) (*models.PaymentOrder, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorizePayer(caller, b); err != nil {
		return nil, err
	}
	if !s.payable(b) {
		return nil, nil
	}
	if hasPendingOrder(b) {
		return s.pendingOrder(ctx, b), nil
	}

	unlock, ok, err := s.Orders.Lock(ctx, b.ID)
	if err != nil {
		return nil, newError(CodeInternal, "failed to lock payment order", err)
	}
	if !ok {
		return s.awaitConcurrentOrder(ctx, b.ID)
	}
	defer unlock()

	// Re-read under the lock: another request may have finished meanwhile.
	if b, err = s.load(ctx, bookingID); err != nil {
		return nil, err
	}
	if !s.payable(b) {
		return nil, nil
	}
	if hasPendingOrder(b) {
		return s.pendingOrder(ctx, b), nil
	}

	order, err := s.Gateway.CreateOrder(ctx, *b, s.Currency, idempotencyKey(*b))
	if err != nil {
		return nil, newError(CodeInternal, "payment gateway failed to create an order", err)
	}
	_, err = s.update(ctx, b, func(next *models.Booking) error {
		next.PaymentOrderID = order.OrderID
		next.PaymentStatus = models.PaymentPending
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cacheOrder(ctx, order)
	s.logger().Info("payment order created", zap.String("bookingId", b.ID), zap.String("orderId", order.OrderID))
	return order, nil
}

func (s *DefaultBookingService) VerifyPayment(ctx context.Context, caller utils.Principal, bookingID string, result models.PaymentResult) (*models.Booking, error) {
	if result.PaymentID == "" || result.OrderID == "" || result.Signature == "" {
		return nil, newError(CodeValidation, "missing payment verification parameters", nil)
	}
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorizePayer(caller, b); err != nil {
		return nil, err
	}
	if b.PaymentStatus == models.PaymentVerified && b.PaymentID == result.PaymentID {
		return b, nil
	}
	if !lifecycle.CanVerify(b.Status) {
		return nil, newError(CodeIllegalTransition, fmt.Sprintf("booking in status %s cannot be paid", b.Status), nil)
	}
	if s.Gateway == nil || !hasPendingOrder(b) {
		return nil, newError(CodeConflict, "booking has no pending payment order", nil)
	}

	order := s.pendingOrder(ctx, b)
	if err := s.Gateway.VerifyPayment(ctx, *order, result); err != nil {
		if !isRejectedPayment(err) {
			return nil, newError(CodeInternal, "payment gateway could not verify the payment", err)
		}
		s.logger().Warn("payment verification rejected",
			zap.String("bookingId", b.ID), zap.String("orderId", result.OrderID), zap.Error(err))
		if !errors.Is(err, payment.ErrOrderMismatch) {
			s.failOrder(ctx, b)
		}
		return nil, newError(CodeVerificationFailed, "payment verification failed", err)
	}

	next, err := s.update(ctx, b, func(next *models.Booking) error {
		if next.PaymentOrderID != order.OrderID || next.PaymentStatus != models.PaymentPending {
			return newError(CodeConflict, "payment order changed during verification", nil)
		}
		next.PaymentID = result.PaymentID
		next.PaymentStatus = models.PaymentVerified
		next.Status = lifecycle.VerifiedStatus(next.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.Orders.Clear(ctx, b.ID); err != nil {
		s.logger().Warn("failed to clear cached order", zap.String("bookingId", b.ID), zap.Error(err))
	}
	s.logger().Info("payment verified", zap.String("bookingId", b.ID), zap.String("paymentId", result.PaymentID))
	s.notify(ctx, b.Status, *next)
	return next, nil
}

// failOrder marks the pending order failed so the next order request
// supersedes it. The booking status is left alone.
func (s *DefaultBookingService) failOrder(ctx context.Context, b *models.Booking) {
	_, err := s.update(ctx, b, func(next *models.Booking) error {
		if next.PaymentOrderID != b.PaymentOrderID {
			return newError(CodeConflict, "payment order was superseded", nil)
		}
		next.PaymentStatus = models.PaymentFailed
		return nil
	})
	if err != nil {
		s.logger().Warn("failed to record failed payment", zap.String("bookingId", b.ID), zap.Error(err))
	}
	if err := s.Orders.Clear(ctx, b.ID); err != nil {
		s.logger().Warn("failed to clear cached order", zap.String("bookingId", b.ID), zap.Error(err))
	}
}

func (s *DefaultBookingService) awaitConcurrentOrder(ctx context.Context, bookingID string) (*models.PaymentOrder, error) {
	wait := s.LockWait
	if wait <= 0 {
		wait = time.Second
	}
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, newError(CodeInternal, "order request abandoned", ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
		b, err := s.load(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if hasPendingOrder(b) {
			return s.pendingOrder(ctx, b), nil
		}
	}
	return nil, newError(CodeConflict, "payment order creation in progress", nil)
}

// pendingOrder returns the cached order of b, rebuilding it from the booking
// when the cache has expired.
func (s *DefaultBookingService) pendingOrder(ctx context.Context, b *models.Booking) *models.PaymentOrder {
	cached, err := s.Orders.Get(ctx, b.ID)
	if err != nil {
		s.logger().Warn("failed to read cached order", zap.String("bookingId", b.ID), zap.Error(err))
	}
	if cached != nil && cached.OrderID == b.PaymentOrderID {
		return cached
	}
	order := &models.PaymentOrder{
		OrderID:     b.PaymentOrderID,
		BookingID:   b.ID,
		Amount:      *b.ProviderAmount,
		AmountMinor: lifecycle.ToMinorUnits(*b.ProviderAmount),
		Currency:    s.Currency,
		KeyID:       s.Gateway.KeyID(),
		Gateway:     s.Gateway.Name(),
		CreatedAt:   b.UpdatedAt,
	}
	s.cacheOrder(ctx, order)
	return order
}

func (s *DefaultBookingService) cacheOrder(ctx context.Context, order *models.PaymentOrder) {
	if err := s.Orders.Put(ctx, order); err != nil {
		s.logger().Warn("failed to cache order", zap.String("bookingId", order.BookingID), zap.Error(err))
	}
}

func (s *DefaultBookingService) payable(b *models.Booking) bool {
	return s.Gateway != nil &&
		b.ProviderAmount != nil &&
		lifecycle.CanVerify(b.Status) &&
		b.PaymentStatus != models.PaymentVerified
}

func (s *DefaultBookingService) load(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, newError(CodeNotFound, "booking not found", err)
	}
	if err != nil {
		return nil, newError(CodeInternal, "failed to load booking", err)
	}
	return b, nil
}

// maxWriteAttempts bounds how often update re-reads a booking that another
// request touched without changing its status.
const maxWriteAttempts = 3

// update applies change to a copy of current and writes it only if the
// stored booking is still the version that was read. When another request
// wrote in between without moving the status, change is re-applied to the
// fresh booking; a different status means the race was lost.
func (s *DefaultBookingService) update(ctx context.Context, current *models.Booking, change func(next *models.Booking) error) (*models.Booking, error) {
	for attempt := 1; ; attempt++ {
		next := *current
		next.UpdatedAt = time.Now().UTC()
		if err := change(&next); err != nil {
			return nil, err
		}
		err := s.Repo.UpdateIfUnchanged(ctx, current.Status, &next)
		if err == nil {
			return &next, nil
		}
		if !errors.Is(err, bookingRepo.ErrConflict) || attempt == maxWriteAttempts {
			return nil, saveError(err)
		}
		fresh, loadErr := s.load(ctx, current.ID)
		if loadErr != nil {
			return nil, loadErr
		}
		if fresh.Status != current.Status {
			return nil, saveError(err)
		}
		current = fresh
	}
}

func saveError(err error) error {
	switch {
	case errors.Is(err, bookingRepo.ErrNotFound):
		return newError(CodeNotFound, "booking not found", err)
	case errors.Is(err, bookingRepo.ErrConflict):
		return newError(CodeConflict, "booking was changed by someone else; reload and retry", err)
	default:
		return newError(CodeInternal, "failed to save booking", err)
	}
}

func (s *DefaultBookingService) notify(ctx context.Context, from string, b models.Booking) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.NotifyStatusChange(ctx, from, b); err != nil {
		s.logger().Warn("status notification failed", zap.String("bookingId", b.ID), zap.Error(err))
	}
}

func authorizePayer(caller utils.Principal, b *models.Booking) error {
	if caller.Role != models.RoleUser || b.UserID != caller.ID {
		return newError(CodeForbidden, "only the booking's user can pay for it", nil)
	}
	return nil
}

func hasPendingOrder(b *models.Booking) bool {
	return b.PaymentStatus == models.PaymentPending && b.PaymentOrderID != ""
}

// idempotencyKey is stable for one booking state, so a retried creation
// returns the same gateway order, and changes once an order has failed.
func idempotencyKey(b models.Booking) string {
	return fmt.Sprintf("order-%s-%d", b.ID, b.UpdatedAt.UnixNano())
}

func isRejectedPayment(err error) bool {
	return errors.Is(err, payment.ErrInvalidSignature) ||
		errors.Is(err, payment.ErrOrderMismatch) ||
		errors.Is(err, payment.ErrNotCaptured)
}

func lifecycleError(err error) error {
	if lifecycle.IsValidation(err) {
		return newError(CodeValidation, err.Error(), err)
	}
	return newError(CodeIllegalTransition, err.Error(), err)
}
