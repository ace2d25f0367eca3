package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"localserve/models"

	"firebase.google.com/go/v4/messaging"
)

// MessageSender is satisfied by *messaging.Client.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushService sends booking status pushes to the user and provider topics.
type PushService struct {
	sender MessageSender
}

func NewPushService(sender MessageSender) *PushService {
	return &PushService{sender: sender}
}

// UserTopic and ProviderTopic are the FCM topics devices subscribe to.
func UserTopic(userID string) string         { return "user_" + userID }
func ProviderTopic(providerID string) string { return "provider_" + providerID }

// SendStatusChange pushes p to both parties. Both sends are attempted.
func (s *PushService) SendStatusChange(ctx context.Context, p models.StatusChangePayload) error {
	title, body := describe(p)
	data := map[string]string{
		"bookingId": p.BookingID,
		"status":    p.Status,
	}

	var errs []error
	if p.UserID != "" {
		errs = append(errs, s.send(ctx, UserTopic(p.UserID), models.RoleUser, title, body, data))
	}
	if p.ProviderID != "" {
		errs = append(errs, s.send(ctx, ProviderTopic(p.ProviderID), models.RoleProvider, title, body, data))
	}
	return errors.Join(errs...)
}

func (s *PushService) send(ctx context.Context, topic, role, title, body string, data map[string]string) error {
	payload := make(map[string]string, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["role"] = role

	msg := &messaging.Message{
		Topic:        topic,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         payload,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if _, err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("push to %s: %w", topic, err)
	}
	return nil
}

func describe(p models.StatusChangePayload) (string, string) {
	title := "Booking " + strings.ToLower(strings.ReplaceAll(p.Status, "_", " "))
	switch p.Status {
	case models.StatusAwaitingPayment:
		title = "Booking accepted, payment requested"
	case models.StatusPaid:
		title = "Payment confirmed"
	}
	body := fmt.Sprintf("Booking %s is now %s.", p.BookingID, p.Status)
	if p.Note != "" {
		body += " Note: " + p.Note
	}
	return title, body
}

// SendPaymentReminder nudges the user to pay for an accepted booking.
func (s *PushService) SendPaymentReminder(ctx context.Context, p models.PaymentReminderPayload) error {
	if p.UserID == "" {
		return nil
	}
	data := map[string]string{
		"bookingId": p.BookingID,
		"status":    models.StatusAwaitingPayment,
	}
	body := fmt.Sprintf("Booking %s is waiting for your payment.", p.BookingID)
	return s.send(ctx, UserTopic(p.UserID), models.RoleUser, "Payment pending", body, data)
}
