// Package notification delivers email and SMS messages to CareHub users:
// bed assignments, queue updates, booking confirmations, and prescription
// notices. Rendering and the delivery log live here; actual transport sits
// behind the EmailSender and SMSSender interfaces so providers can be
// swapped without touching callers.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// NotificationType selects the delivery channel.
type NotificationType string

const (
	TypeEmail NotificationType = "email"
	TypeSMS   NotificationType = "sms"
)

// Status is the delivery outcome recorded on a notification.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Notification is one outbound message and its delivery record.
type Notification struct {
	ID           string            `json:"id"`
	Type         NotificationType  `json:"type"`
	Recipient    string            `json:"recipient"`
	Subject      string            `json:"subject,omitempty"`
	Body         string            `json:"body"`
	TemplateID   string            `json:"template_id,omitempty"`
	TemplateData map[string]string `json:"template_data,omitempty"`
	Priority     string            `json:"priority"`
	Status       Status            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	SentAt       *time.Time        `json:"sent_at,omitempty"`
	Error        string            `json:"error,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// validate checks the fields a caller must supply for a direct send.
// Templated sends skip it because the template supplies the channel.
func (n *Notification) validate() error {
	if n.Recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	if n.Type != TypeEmail && n.Type != TypeSMS {
		return fmt.Errorf("type must be %s or %s", TypeEmail, TypeSMS)
	}
	return nil
}

// EmailSender delivers a rendered email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers a rendered SMS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// LogEmailSender writes email notifications to the structured log instead
// of delivering them. It stands in until an SMTP or provider API sender is
// configured.
type LogEmailSender struct {
	Logger zerolog.Logger
}

// SendEmail logs the recipient and subject. Bodies carry patient details
// and stay out of the log.
func (s *LogEmailSender) SendEmail(_ context.Context, to, subject, _ string) error {
	s.Logger.Info().Str("to", to).Str("subject", subject).Msg("email notification")
	return nil
}

// LogSMSSender writes SMS notifications to the structured log instead of
// delivering them.
type LogSMSSender struct {
	Logger zerolog.Logger
}

// SendSMS logs the recipient and message length. Bodies carry patient
// details and stay out of the log.
func (s *LogSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.Logger.Info().Str("to", to).Int("length", len(body)).Msg("sms notification")
	return nil
}
