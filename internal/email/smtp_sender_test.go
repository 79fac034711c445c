package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type capturedMail struct {
	addr string
	to   string
	msg  string
}

func newCapturingSender(t *testing.T, sendErr error) (*SMTPSender, *capturedMail) {
	t.Helper()
	s, err := NewSMTPSender("smtp.example.com", 0, "", "", "noreply@example.com", "Auth", false)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	got := &capturedMail{}
	s.send = func(addr string, msg []byte, to string) error {
		got.addr = addr
		got.to = to
		got.msg = string(msg)
		return sendErr
	}
	return s, got
}

func TestNewSMTPSender_Validation(t *testing.T) {
	if _, err := NewSMTPSender("", 25, "", "", "a@example.com", "", false); err == nil {
		t.Fatalf("expected error for missing host")
	}
	if _, err := NewSMTPSender("smtp.example.com", 25, "", "", " ", "", false); err == nil {
		t.Fatalf("expected error for missing from")
	}
}

func TestSMTPSender_SendVerificationLink(t *testing.T) {
	s, got := newCapturingSender(t, nil)
	link := "https://app.example.com/email/verify/42/abc?expires=1&signature=sig"

	err := s.SendVerificationLink(context.Background(), "user@example.com", link, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.addr != "smtp.example.com:587" {
		t.Fatalf("expected default port, got %q", got.addr)
	}
	if got.to != "user@example.com" {
		t.Fatalf("unexpected recipient %q", got.to)
	}
	if !strings.Contains(got.msg, link) {
		t.Fatalf("expected link in body")
	}
	if !strings.Contains(got.msg, "Content-Type: text/plain; charset=\"UTF-8\"") {
		t.Fatalf("expected utf-8 content type")
	}
}

func TestSMTPSender_SendPasswordResetPropagatesError(t *testing.T) {
	s, _ := newCapturingSender(t, errors.New("relay refused"))

	err := s.SendPasswordReset(context.Background(), "user@example.com", "https://x/reset", time.Now())
	if err == nil {
		t.Fatalf("expected send error")
	}
}

func TestSMTPSender_EmptyRecipient(t *testing.T) {
	s, got := newCapturingSender(t, nil)

	if err := s.SendPasswordReset(context.Background(), " ", "https://x/reset", time.Now()); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
	if got.msg != "" {
		t.Fatalf("expected nothing sent")
	}
}

func TestDisabledSender(t *testing.T) {
	s := NewDisabledSender("smtp not configured")
	err := s.SendVerificationLink(context.Background(), "a@example.com", "l", time.Now())
	if err == nil || err.Error() != "smtp not configured" {
		t.Fatalf("unexpected error %v", err)
	}
	if err := NewDisabledSender("").SendPasswordReset(context.Background(), "a@example.com", "l", time.Now()); err == nil {
		t.Fatalf("expected default error")
	}
}
