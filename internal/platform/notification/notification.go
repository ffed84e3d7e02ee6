// Package notification delivers email/SMS messages for report lifecycle
// events: doctors are told when a report lands in their queue, patients when
// a decision is made. Delivery is best effort; a failed send is logged and
// never blocks or rolls back the lifecycle transition that triggered it.
package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender is the interface for sending SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// LogSender writes messages to the structured log instead of delivering
// them. Used in development and as the default when no provider is wired.
type LogSender struct {
	Logger zerolog.Logger
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.Logger.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("email (log only)")
	return nil
}

func (s *LogSender) SendSMS(_ context.Context, to, body string) error {
	s.Logger.Info().Str("to", to).Str("body", body).Msg("sms (log only)")
	return nil
}

// Recipient is a deliverable address for one user. Email is preferred; SMS
// is used when no email is on file.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Notifier formats and dispatches lifecycle notifications.
type Notifier struct {
	email  EmailSender
	sms    SMSSender
	logger zerolog.Logger
}

func NewNotifier(email EmailSender, sms SMSSender, logger zerolog.Logger) *Notifier {
	return &Notifier{email: email, sms: sms, logger: logger}
}

// ReportRouted tells a doctor that a new report is waiting for review.
func (n *Notifier) ReportRouted(ctx context.Context, doctor Recipient, patientName string) {
	subject := "New triage report awaiting your review"
	body := fmt.Sprintf("A triage report for %s has been routed to you and is awaiting review.", patientName)
	n.deliver(ctx, doctor, subject, body)
}

// ReportDecided tells a patient that their report has been reviewed.
func (n *Notifier) ReportDecided(ctx context.Context, patient Recipient, decision string) {
	subject := "Your triage report has been reviewed"
	body := fmt.Sprintf("A doctor has reviewed your triage report. Outcome: %s. Open the app to see the details.", decision)
	n.deliver(ctx, patient, subject, body)
}

// deliver attempts one send over the best available channel. Failures are
// logged and swallowed.
func (n *Notifier) deliver(ctx context.Context, to Recipient, subject, body string) {
	switch {
	case to.Email != "" && n.email != nil:
		if err := n.email.SendEmail(ctx, to.Email, subject, body); err != nil {
			n.logger.Error().Err(err).Str("to", to.Email).Msg("email delivery failed")
		}
	case to.Phone != "" && n.sms != nil:
		if err := n.sms.SendSMS(ctx, to.Phone, body); err != nil {
			n.logger.Error().Err(err).Str("to", to.Phone).Msg("sms delivery failed")
		}
	default:
		n.logger.Warn().Str("name", to.Name).Msg("no deliverable address for notification")
	}
}
