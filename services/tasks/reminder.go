// Package tasks holds delayed jobs scheduled on the notification queue.
package tasks

import (
	"encoding/json"
	"time"

	"localserve/models"

	"github.com/hibiken/asynq"
)

const TypePaymentReminder = "booking:payment-reminder"

// NewPaymentReminderTask schedules a reminder for fireAt. A booking is
// accepted at most once, so the task id is keyed on the booking alone and a
// repeated enqueue collapses into the pending reminder.
func NewPaymentReminderTask(payload models.PaymentReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypePaymentReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(PaymentReminderTaskID(payload.BookingID)),
		asynq.MaxRetry(3),
	}

	return task, opts, nil
}

// PaymentReminderTaskID is the asynq task id of the reminder for bookingID.
func PaymentReminderTaskID(bookingID string) string {
	return "reminder:" + bookingID
}
