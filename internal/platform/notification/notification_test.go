package notification

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type captureSender struct {
	emails []string
	sms    []string
	fail   bool
}

func (s *captureSender) SendEmail(_ context.Context, to, subject, body string) error {
	if s.fail {
		return fmt.Errorf("smtp unavailable")
	}
	s.emails = append(s.emails, to+": "+subject)
	return nil
}

func (s *captureSender) SendSMS(_ context.Context, to, body string) error {
	if s.fail {
		return fmt.Errorf("gateway unavailable")
	}
	s.sms = append(s.sms, to+": "+body)
	return nil
}

func TestNotifier_ReportRouted_PrefersEmail(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(sender, sender, zerolog.Nop())

	n.ReportRouted(context.Background(), Recipient{Name: "Dr. Rao", Email: "rao@example.com", Phone: "+123"}, "A. Patel")

	if len(sender.emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.emails))
	}
	if len(sender.sms) != 0 {
		t.Errorf("expected no sms, got %d", len(sender.sms))
	}
}

func TestNotifier_ReportDecided_FallsBackToSMS(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(sender, sender, zerolog.Nop())

	n.ReportDecided(context.Background(), Recipient{Name: "A. Patel", Phone: "+123"}, "doctor-approved")

	if len(sender.sms) != 1 {
		t.Fatalf("expected 1 sms, got %d", len(sender.sms))
	}
	if !strings.Contains(sender.sms[0], "doctor-approved") {
		t.Errorf("expected decision in body: %s", sender.sms[0])
	}
}

func TestNotifier_DeliveryFailureIsSwallowed(t *testing.T) {
	var buf bytes.Buffer
	sender := &captureSender{fail: true}
	n := NewNotifier(sender, sender, zerolog.New(&buf))

	// Must not panic or error out.
	n.ReportDecided(context.Background(), Recipient{Email: "p@example.com"}, "rejected")

	if !strings.Contains(buf.String(), "email delivery failed") {
		t.Errorf("expected failure to be logged, got: %s", buf.String())
	}
}

func TestNotifier_NoAddress(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(&captureSender{}, &captureSender{}, zerolog.New(&buf))

	n.ReportRouted(context.Background(), Recipient{Name: "Dr. Rao"}, "A. Patel")

	if !strings.Contains(buf.String(), "no deliverable address") {
		t.Errorf("expected warning, got: %s", buf.String())
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := &LogSender{Logger: zerolog.New(&buf)}
	if err := s.SendEmail(context.Background(), "a@b.c", "subject", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SendSMS(context.Background(), "+1", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "log only") {
		t.Errorf("expected log output, got: %s", buf.String())
	}
}
