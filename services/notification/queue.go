package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"localserve/models"
	"localserve/services/tasks"

	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier defers pushes to the notification worker through asynq.
type QueueNotifier struct {
	client        Enqueuer
	reminderDelay time.Duration
}

// NewQueueNotifier returns a notifier on client. A positive reminderDelay
// also schedules a payment reminder when a booking enters AWAITING_PAYMENT.
func NewQueueNotifier(client Enqueuer, reminderDelay time.Duration) *QueueNotifier {
	return &QueueNotifier{client: client, reminderDelay: reminderDelay}
}

func (n *QueueNotifier) NotifyStatusChange(ctx context.Context, from string, booking models.Booking) error {
	p := PayloadFor(booking)
	task, err := NewStatusChangeTask(p)
	if err != nil {
		return err
	}
	if _, err := n.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue status change for booking %s: %w", booking.ID, err)
	}
	entered := booking.Status == models.StatusAwaitingPayment && from != models.StatusAwaitingPayment
	if entered && n.reminderDelay > 0 {
		return n.schedulePaymentReminder(ctx, p)
	}
	return nil
}

func (n *QueueNotifier) schedulePaymentReminder(ctx context.Context, p models.StatusChangePayload) error {
	task, opts, err := tasks.NewPaymentReminderTask(models.PaymentReminderPayload{
		BookingID:  p.BookingID,
		UserID:     p.UserID,
		AcceptedAt: p.ChangedAt,
	}, p.ChangedAt.Add(n.reminderDelay))
	if err != nil {
		return err
	}
	_, err = n.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("schedule payment reminder for booking %s: %w", p.BookingID, err)
	}
	return nil
}

// NewStatusChangeTask encodes p as an asynq task.
func NewStatusChangeTask(p models.StatusChangePayload) (*asynq.Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStatusChange, raw, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}
