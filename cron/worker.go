package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"localserve/config"
	bookingRepo "localserve/database/repository/booking"
	"localserve/models"
	"localserve/services/notification"
	"localserve/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// RedisOpt is the asynq connection shared by the notifier and the worker.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisNotifyQueueDB,
	}
}

// BookingLookup reads the current state of a booking when a delayed task
// fires.
type BookingLookup interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
}

// StartNotificationWorker runs the status push worker in the background and
// returns the server so the caller can shut it down.
func StartNotificationWorker(push *notification.PushService, bookings BookingLookup, logger *zap.Logger) (*asynq.Server, error) {
	srv := asynq.NewServer(
		RedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeStatusChange, handleStatusChangeTask(push, logger))
	mux.HandleFunc(tasks.TypePaymentReminder, handlePaymentReminderTask(push, bookings, logger))

	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("starting notification worker: %w", err)
	}
	logger.Info("notification worker started")
	return srv, nil
}

func handleStatusChangeTask(push *notification.PushService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.StatusChangePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid status change payload", zap.Error(err))
			// Retrying a malformed payload cannot succeed.
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		if err := push.SendStatusChange(ctx, p); err != nil {
			logger.Warn("status push failed",
				zap.String("bookingId", p.BookingID),
				zap.String("status", p.Status),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("status push sent", zap.String("bookingId", p.BookingID), zap.String("status", p.Status))
		return nil
	}
}

func handlePaymentReminderTask(push *notification.PushService, bookings BookingLookup, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.PaymentReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid payment reminder payload", zap.Error(err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		b, err := bookings.GetByID(ctx, p.BookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrNotFound) {
				return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
			}
			return err
		}
		if b.Status != models.StatusAwaitingPayment || b.PaymentStatus == models.PaymentVerified {
			logger.Debug("payment reminder no longer needed", zap.String("bookingId", p.BookingID), zap.String("status", b.Status))
			return nil
		}

		if err := push.SendPaymentReminder(ctx, p); err != nil {
			logger.Warn("payment reminder failed", zap.String("bookingId", p.BookingID), zap.Error(err))
			return err
		}
		logger.Debug("payment reminder sent", zap.String("bookingId", p.BookingID))
		return nil
	}
}
