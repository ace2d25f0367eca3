package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	bookingRepo "localserve/database/repository/booking"
	catalogRepo "localserve/database/repository/catalog"
	"localserve/lifecycle"
	"localserve/models"
	"localserve/services/payment"
	"localserve/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
}

func newMemoryRepo(bookings ...models.Booking) *memoryRepo {
	r := &memoryRepo{bookings: map[string]models.Booking{}}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *memoryRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = *b
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	return &b, nil
}

func (r *memoryRepo) List(_ context.Context, f models.BookingFilter) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if (f.UserID == "" || b.UserID == f.UserID) && (f.ProviderID == "" || b.ProviderID == f.ProviderID) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateIfUnchanged(_ context.Context, expected string, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[b.ID]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if stored.Status != expected || stored.Version != b.Version {
		return bookingRepo.ErrConflict
	}
	b.Version++
	r.bookings[b.ID] = *b
	return nil
}

type staticDirectory map[string]models.Service

func (d staticDirectory) GetService(_ context.Context, id string) (*models.Service, error) {
	svc, ok := d[id]
	if !ok {
		return nil, catalogRepo.ErrServiceNotFound
	}
	return &svc, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	created   int
	createErr error
	verifyErr error
}

func (g *fakeGateway) Name() string  { return "fake" }
func (g *fakeGateway) KeyID() string { return "key_test" }

func (g *fakeGateway) CreateOrder(_ context.Context, b models.Booking, currency, _ string) (*models.PaymentOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created++
	return &models.PaymentOrder{
		OrderID:     fmt.Sprintf("order_%s_%d", b.ID, g.created),
		BookingID:   b.ID,
		Amount:      *b.ProviderAmount,
		AmountMinor: lifecycle.ToMinorUnits(*b.ProviderAmount),
		Currency:    currency,
		KeyID:       g.KeyID(),
	}, nil
}

func (g *fakeGateway) VerifyPayment(_ context.Context, order models.PaymentOrder, result models.PaymentResult) error {
	if result.OrderID != order.OrderID {
		return payment.ErrOrderMismatch
	}
	return g.verifyErr
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
}

func (n *recordingNotifier) NotifyStatusChange(_ context.Context, _ string, b models.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, b.Status)
	return nil
}

var (
	provider = utils.Principal{ID: "p1", Role: models.RoleProvider}
	user     = utils.Principal{ID: "u1", Role: models.RoleUser}
)

func newTestService(t *testing.T, gw payment.Gateway, bookings ...models.Booking) (*DefaultBookingService, *memoryRepo, *recordingNotifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	repo := newMemoryRepo(bookings...)
	notifier := &recordingNotifier{}
	svc := &DefaultBookingService{
		Repo:      repo,
		Directory: staticDirectory{"s1": {ID: "s1", ProviderID: "p1", ServiceName: "Plumbing"}},
		Gateway:   gw,
		Orders:    payment.NewOrderRegistry(cache, time.Minute),
		Notifier:  notifier,
		Currency:  "INR",
		LockWait:  300 * time.Millisecond,
	}
	return svc, repo, notifier
}

func booked(id string) models.Booking {
	return models.Booking{ID: id, UserID: "u1", ProviderID: "p1", ServiceID: "s1", Status: models.StatusBooked}
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func codeOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return ErrorCode(err)
}

func TestCreateBooking(t *testing.T) {
	svc, repo, notifier := newTestService(t, nil)

	b, err := svc.CreateBooking(context.Background(), user, models.CreateBookingRequest{
		ServiceID: "s1", Address: "123 Main St", UserNote: strPtr("please wear a mask"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusBooked, b.Status)
	assert.Equal(t, "p1", b.ProviderID)
	assert.Equal(t, "u1", b.UserID)
	assert.Equal(t, "Plumbing", b.ServiceName)
	assert.False(t, b.Date.IsZero())
	assert.Len(t, repo.bookings, 1)
	assert.Equal(t, []string{models.StatusBooked}, notifier.statuses)

	_, err = svc.CreateBooking(context.Background(), user, models.CreateBookingRequest{ServiceID: "missing"})
	assert.Equal(t, CodeValidation, codeOf(t, err))

	_, err = svc.CreateBooking(context.Background(), provider, models.CreateBookingRequest{ServiceID: "s1"})
	assert.Equal(t, CodeForbidden, codeOf(t, err))
}

func TestAcceptSetsAmountAndStatusTogether(t *testing.T) {
	gw := &fakeGateway{}
	svc, repo, _ := newTestService(t, gw, booked("42"))

	got, err := svc.UpdateBooking(context.Background(), provider, "42", models.TransitionPayload{
		Amount: floatPtr(500), ProviderNote: strPtr("bringing tools"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingPayment, got.Status)
	assert.Equal(t, 500.0, *got.ProviderAmount)
	assert.Equal(t, "bringing tools", *got.ProviderNote)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.Equal(t, "order_42_1", got.PaymentOrderID)

	stored := repo.bookings["42"]
	assert.Equal(t, models.StatusAwaitingPayment, stored.Status)
	assert.Equal(t, 500.0, *stored.ProviderAmount)
}

func TestAcceptWithoutGatewayStillAccepts(t *testing.T) {
	svc, _, _ := newTestService(t, nil, booked("42"))

	got, err := svc.UpdateBooking(context.Background(), provider, "42", models.TransitionPayload{Amount: floatPtr(500)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingPayment, got.Status)
	assert.Empty(t, got.PaymentOrderID)

	order, err := svc.GetPaymentOrder(context.Background(), user, "42")
	require.NoError(t, err)
	assert.Nil(t, order, "no gateway means payment is not available")
}

func TestUpdateBookingRevalidates(t *testing.T) {
	rejected := booked("7")
	rejected.Status = models.StatusRejected
	svc, _, _ := newTestService(t, nil, booked("9"), rejected)
	ctx := context.Background()

	_, err := svc.UpdateBooking(ctx, user, "9", models.TransitionPayload{Status: strPtr(models.StatusInProgress)})
	assert.Equal(t, CodeForbidden, codeOf(t, err))

	other := utils.Principal{ID: "p2", Role: models.RoleProvider}
	_, err = svc.UpdateBooking(ctx, other, "9", models.TransitionPayload{Status: strPtr(models.StatusInProgress)})
	assert.Equal(t, CodeForbidden, codeOf(t, err))

	_, err = svc.UpdateBooking(ctx, provider, "9", models.TransitionPayload{Status: strPtr(models.StatusCompleted)})
	assert.Equal(t, CodeIllegalTransition, codeOf(t, err))

	_, err = svc.UpdateBooking(ctx, provider, "7", models.TransitionPayload{Amount: floatPtr(10)})
	assert.Equal(t, CodeIllegalTransition, codeOf(t, err))

	_, err = svc.UpdateBooking(ctx, provider, "9", models.TransitionPayload{Amount: floatPtr(-1)})
	assert.Equal(t, CodeValidation, codeOf(t, err))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))

	_, err = svc.UpdateBooking(ctx, provider, "missing", models.TransitionPayload{Status: strPtr(models.StatusInProgress)})
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))

	got, err := svc.UpdateBooking(ctx, provider, "9", models.TransitionPayload{Status: strPtr(models.StatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
}

func TestUpdateBookingLostRace(t *testing.T) {
	svc, repo, _ := newTestService(t, nil, booked("9"))
	racing := &racingRepo{memoryRepo: repo}
	svc.Repo = racing

	_, err := svc.UpdateBooking(context.Background(), provider, "9", models.TransitionPayload{Status: strPtr(models.StatusRejected)})
	assert.Equal(t, CodeConflict, codeOf(t, err))
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

// racingRepo lets another actor reject the booking between read and write.
type racingRepo struct {
	*memoryRepo
}

func (r *racingRepo) UpdateIfUnchanged(ctx context.Context, expected string, b *models.Booking) error {
	r.mu.Lock()
	stored := r.bookings[b.ID]
	stored.Status = models.StatusInProgress
	r.bookings[b.ID] = stored
	r.mu.Unlock()
	return r.memoryRepo.UpdateIfUnchanged(ctx, expected, b)
}

// interleavingRepo runs before ahead of the first write, letting another
// request land between a read and the write based on it.
type interleavingRepo struct {
	*memoryRepo
	before func()
}

func (r *interleavingRepo) UpdateIfUnchanged(ctx context.Context, expected string, b *models.Booking) error {
	if hook := r.before; hook != nil {
		r.before = nil
		hook()
	}
	return r.memoryRepo.UpdateIfUnchanged(ctx, expected, b)
}

func TestStaleNoteKeepsPendingOrder(t *testing.T) {
	gw := &fakeGateway{}
	b := booked("42")
	b.Status = models.StatusAwaitingPayment
	b.ProviderAmount = floatPtr(500)
	svc, repo, _ := newTestService(t, gw, b)
	ctx := context.Background()

	var first *models.PaymentOrder
	svc.Repo = &interleavingRepo{memoryRepo: repo, before: func() {
		var err error
		first, err = svc.GetPaymentOrder(ctx, user, "42")
		require.NoError(t, err)
		require.NotNil(t, first)
	}}

	got, err := svc.UpdateBooking(ctx, provider, "42", models.TransitionPayload{ProviderNote: strPtr("running late")})
	require.NoError(t, err)
	assert.Equal(t, "running late", *got.ProviderNote)
	assert.Equal(t, first.OrderID, got.PaymentOrderID)

	stored := repo.bookings["42"]
	assert.Equal(t, first.OrderID, stored.PaymentOrderID)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
	assert.Equal(t, "running late", *stored.ProviderNote)

	second, err := svc.GetPaymentOrder(ctx, user, "42")
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, gw.created, "the note did not make room for a second order")
}

func TestStaleWriteConflictsWithoutRetryBudget(t *testing.T) {
	svc, repo, _ := newTestService(t, nil, booked("9"))
	bumps := 0
	svc.Repo = &bumpingRepo{memoryRepo: repo, bumps: &bumps}

	_, err := svc.UpdateBooking(context.Background(), provider, "9", models.TransitionPayload{ProviderNote: strPtr("hi")})
	assert.Equal(t, CodeConflict, codeOf(t, err))
	assert.Equal(t, maxWriteAttempts, bumps)
}

// bumpingRepo has some other writer touch the booking before every write.
type bumpingRepo struct {
	*memoryRepo
	bumps *int
}

func (r *bumpingRepo) UpdateIfUnchanged(ctx context.Context, expected string, b *models.Booking) error {
	r.mu.Lock()
	stored := r.bookings[b.ID]
	stored.Version++
	r.bookings[b.ID] = stored
	*r.bumps++
	r.mu.Unlock()
	return r.memoryRepo.UpdateIfUnchanged(ctx, expected, b)
}

func TestGetPaymentOrderIsIdempotent(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("gateway down")}
	svc, _, _ := newTestService(t, gw, booked("42"))
	ctx := context.Background()

	_, err := svc.UpdateBooking(ctx, provider, "42", models.TransitionPayload{Amount: floatPtr(500)})
	require.NoError(t, err, "accept survives a gateway failure")

	_, err = svc.GetPaymentOrder(ctx, user, "42")
	assert.Equal(t, CodeInternal, codeOf(t, err))

	gw.createErr = nil
	first, err := svc.GetPaymentOrder(ctx, user, "42")
	require.NoError(t, err)
	require.NotNil(t, first)
	second, err := svc.GetPaymentOrder(ctx, user, "42")
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, gw.created)
	assert.Equal(t, int64(50000), second.AmountMinor)

	_, err = svc.GetPaymentOrder(ctx, utils.Principal{ID: "u2", Role: models.RoleUser}, "42")
	assert.Equal(t, CodeForbidden, codeOf(t, err))
}

func TestGetPaymentOrderConcurrentCallersShareOneOrder(t *testing.T) {
	gw := &fakeGateway{}
	b := booked("42")
	b.Status = models.StatusAwaitingPayment
	b.ProviderAmount = floatPtr(500)
	svc, _, _ := newTestService(t, gw, b)

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := svc.GetPaymentOrder(context.Background(), user, "42")
			if err == nil && order != nil {
				ids[i] = order.OrderID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, gw.created)
	for _, id := range ids {
		if id != "" {
			assert.Equal(t, "order_42_1", id)
		}
	}
}

func TestGetPaymentOrderUnavailable(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeGateway{}, booked("5"))

	order, err := svc.GetPaymentOrder(context.Background(), user, "5")
	require.NoError(t, err)
	assert.Nil(t, order, "a booking without an amount has nothing to pay")
}

func TestVerifyPayment(t *testing.T) {
	gw := &fakeGateway{}
	svc, repo, notifier := newTestService(t, gw, booked("42"))
	ctx := context.Background()

	_, err := svc.UpdateBooking(ctx, provider, "42", models.TransitionPayload{Amount: floatPtr(500)})
	require.NoError(t, err)

	result := models.PaymentResult{PaymentID: "pay_1", OrderID: "order_42_1", Signature: "sig"}

	_, err = svc.VerifyPayment(ctx, user, "42", models.PaymentResult{OrderID: "order_42_1"})
	assert.Equal(t, CodeValidation, codeOf(t, err))

	mismatch := result
	mismatch.OrderID = "order_other"
	_, err = svc.VerifyPayment(ctx, user, "42", mismatch)
	assert.Equal(t, CodeVerificationFailed, codeOf(t, err))
	assert.Equal(t, models.PaymentPending, repo.bookings["42"].PaymentStatus, "a mismatched order does not fail the pending one")

	got, err := svc.VerifyPayment(ctx, user, "42", result)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
	assert.Equal(t, models.PaymentVerified, got.PaymentStatus)
	assert.Equal(t, "pay_1", got.PaymentID)
	assert.Contains(t, notifier.statuses, models.StatusPaid)

	again, err := svc.VerifyPayment(ctx, user, "42", result)
	require.NoError(t, err, "repeating a successful verification is harmless")
	assert.Equal(t, models.StatusPaid, again.Status)

	order, err := svc.GetPaymentOrder(ctx, user, "42")
	require.NoError(t, err)
	assert.Nil(t, order, "a paid booking has no outstanding order")
}

func TestVerifyPaymentRejectedSupersedesOrder(t *testing.T) {
	gw := &fakeGateway{verifyErr: payment.ErrInvalidSignature}
	svc, repo, _ := newTestService(t, gw, booked("42"))
	ctx := context.Background()

	_, err := svc.UpdateBooking(ctx, provider, "42", models.TransitionPayload{Amount: floatPtr(500)})
	require.NoError(t, err)

	_, err = svc.VerifyPayment(ctx, user, "42", models.PaymentResult{PaymentID: "pay_1", OrderID: "order_42_1", Signature: "forged"})
	assert.Equal(t, CodeVerificationFailed, codeOf(t, err))

	stored := repo.bookings["42"]
	assert.Equal(t, models.StatusAwaitingPayment, stored.Status, "status is untouched by a failed verification")
	assert.Equal(t, models.PaymentFailed, stored.PaymentStatus)

	gw.verifyErr = nil
	order, err := svc.GetPaymentOrder(ctx, user, "42")
	require.NoError(t, err)
	assert.Equal(t, "order_42_2", order.OrderID)
}

func TestVerifyPaymentGatewayOutageKeepsOrder(t *testing.T) {
	gw := &fakeGateway{verifyErr: errors.New("timeout")}
	svc, repo, _ := newTestService(t, gw, booked("42"))
	ctx := context.Background()

	_, err := svc.UpdateBooking(ctx, provider, "42", models.TransitionPayload{Amount: floatPtr(500)})
	require.NoError(t, err)

	_, err = svc.VerifyPayment(ctx, user, "42", models.PaymentResult{PaymentID: "pay_1", OrderID: "order_42_1", Signature: "sig"})
	assert.Equal(t, CodeInternal, codeOf(t, err))
	assert.Equal(t, models.PaymentPending, repo.bookings["42"].PaymentStatus)
}

func TestListBookingsIsScoped(t *testing.T) {
	mine := booked("1")
	theirs := booked("2")
	theirs.UserID = "u2"
	theirs.ProviderID = "p2"
	svc, _, _ := newTestService(t, nil, mine, theirs)
	ctx := context.Background()

	got, err := svc.ListBookings(ctx, user, models.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	_, err = svc.ListBookings(ctx, user, models.BookingFilter{UserID: "u2"})
	assert.Equal(t, CodeForbidden, codeOf(t, err))

	got, err = svc.ListBookings(ctx, utils.Principal{ID: "p2", Role: models.RoleProvider}, models.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	got, err = svc.ListBookings(ctx, utils.Principal{ID: "a", Role: models.RoleAdmin}, models.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
