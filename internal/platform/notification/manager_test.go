package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestManager() (*Manager, *MockEmailSender, *MockSMSSender) {
	email := &MockEmailSender{}
	sms := &MockSMSSender{}
	return NewManager(email, sms, NewTemplateEngine()), email, sms
}

func TestManager_SendEmail(t *testing.T) {
	mgr, email, _ := newTestManager()
	ctx := context.Background()

	n := &Notification{
		Type:      TypeEmail,
		Recipient: "ava.stone@example.com",
		Subject:   "Bed Assigned",
		Body:      "Your bed is ready.",
	}
	if err := mgr.Send(ctx, n); err != nil {
		t.Fatalf("send: %v", err)
	}

	if n.ID == "" {
		t.Error("expected an ID to be assigned")
	}
	if n.Status != StatusSent {
		t.Errorf("expected status sent, got %s", n.Status)
	}
	if n.SentAt == nil {
		t.Error("expected SentAt to be stamped")
	}
	if n.Priority != "normal" {
		t.Errorf("expected default priority normal, got %s", n.Priority)
	}

	calls := email.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email call, got %d", len(calls))
	}
	if calls[0].To != "ava.stone@example.com" || calls[0].Subject != "Bed Assigned" {
		t.Errorf("unexpected call: %+v", calls[0])
	}

	stored, err := mgr.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusSent {
		t.Errorf("expected stored status sent, got %s", stored.Status)
	}
}

func TestManager_SendSMS(t *testing.T) {
	mgr, email, sms := newTestManager()

	n := &Notification{Type: TypeSMS, Recipient: "+15550100", Body: "Bed 14 is ready."}
	if err := mgr.Send(context.Background(), n); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(sms.Calls()) != 1 {
		t.Fatalf("expected 1 sms call, got %d", len(sms.Calls()))
	}
	if len(email.Calls()) != 0 {
		t.Fatalf("expected no email calls, got %d", len(email.Calls()))
	}
}

func TestManager_SendUnsupportedType(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()

	n := &Notification{Type: "push", Recipient: "device-1", Body: "hello"}
	err := mgr.Send(ctx, n)
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}

	stored, getErr := mgr.Get(ctx, n.ID)
	if getErr != nil {
		t.Fatalf("get: %v", getErr)
	}
	if stored.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", stored.Status)
	}
	if !strings.Contains(stored.Error, "unsupported") {
		t.Errorf("expected unsupported-type error, got %q", stored.Error)
	}
}

func TestManager_SendTemplated(t *testing.T) {
	mgr, email, _ := newTestManager()

	n, err := mgr.SendTemplated(context.Background(), "bed-allocated", "cara.reed@example.com", map[string]string{
		"patient_name": "Cara Reed",
		"hospital":     "Riverside General",
		"bed_type":     "general",
		"bed_number":   "201",
	})
	if err != nil {
		t.Fatalf("send templated: %v", err)
	}

	if n.Type != TypeEmail {
		t.Errorf("expected email type from template, got %s", n.Type)
	}
	if n.TemplateID != "bed-allocated" {
		t.Errorf("expected template id to be recorded, got %s", n.TemplateID)
	}
	if n.Subject != "Bed Assigned at Riverside General" {
		t.Errorf("unexpected subject: %q", n.Subject)
	}
	if !strings.Contains(n.Body, "bed (number 201)") {
		t.Errorf("expected rendered bed number in body, got %q", n.Body)
	}

	calls := email.Calls()
	if len(calls) != 1 || calls[0].To != "cara.reed@example.com" {
		t.Fatalf("unexpected email calls: %+v", calls)
	}
}

func TestManager_SendTemplatedUnknown(t *testing.T) {
	mgr, email, _ := newTestManager()

	n, err := mgr.SendTemplated(context.Background(), "no-such-template", "x@example.com", nil)
	if err == nil {
		t.Fatal("expected error for unknown template")
	}
	if n != nil {
		t.Errorf("expected no notification, got %+v", n)
	}
	if len(email.Calls()) != 0 {
		t.Error("expected no delivery attempt for unknown template")
	}
}

func TestManager_RetryAfterFailure(t *testing.T) {
	mgr, email, _ := newTestManager()
	ctx := context.Background()

	email.FailWith(errors.New("smtp connection refused"))
	n := &Notification{Type: TypeEmail, Recipient: "ben@example.com", Subject: "s", Body: "b"}
	if err := mgr.Send(ctx, n); err == nil {
		t.Fatal("expected first send to fail")
	}
	if n.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", n.Status)
	}

	email.FailWith(nil)
	if err := mgr.Retry(ctx, n.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}

	stored, err := mgr.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusSent {
		t.Errorf("expected sent after retry, got %s", stored.Status)
	}
	if stored.Error != "" {
		t.Errorf("expected error to be cleared, got %q", stored.Error)
	}
	if stored.SentAt == nil {
		t.Error("expected SentAt after successful retry")
	}
	if len(email.Calls()) != 2 {
		t.Errorf("expected 2 delivery attempts, got %d", len(email.Calls()))
	}
}

func TestManager_RetryRejectsNonFailed(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()

	n := &Notification{Type: TypeEmail, Recipient: "ok@example.com", Body: "b"}
	if err := mgr.Send(ctx, n); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := mgr.Retry(ctx, n.ID); err == nil {
		t.Error("expected retry of a sent notification to fail")
	}
	if err := mgr.Retry(ctx, "missing-id"); err == nil {
		t.Error("expected retry of an unknown id to fail")
	}
}

func TestManager_ListByRecipientNewestFirst(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()

	subjects := []string{"first", "second", "third"}
	for _, s := range subjects {
		n := &Notification{Type: TypeEmail, Recipient: "elena@example.com", Subject: s, Body: "b"}
		if err := mgr.Send(ctx, n); err != nil {
			t.Fatalf("send %s: %v", s, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	other := &Notification{Type: TypeEmail, Recipient: "someone.else@example.com", Subject: "noise", Body: "b"}
	if err := mgr.Send(ctx, other); err != nil {
		t.Fatalf("send noise: %v", err)
	}

	list, total, err := mgr.ListByRecipient(ctx, "elena@example.com", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(list) != 3 {
		t.Fatalf("total = %d, len = %d, want 3 notifications", total, len(list))
	}
	if list[0].Subject != "third" || list[2].Subject != "first" {
		t.Errorf("expected newest first, got %s ... %s", list[0].Subject, list[2].Subject)
	}

	capped, total, err := mgr.ListByRecipient(ctx, "elena@example.com", 2, 0)
	if err != nil {
		t.Fatalf("list capped: %v", err)
	}
	if total != 3 {
		t.Errorf("capped total = %d, want the full count", total)
	}
	if len(capped) != 2 || capped[0].Subject != "third" {
		t.Errorf("expected 2 newest entries, got %+v", capped)
	}

	rest, _, err := mgr.ListByRecipient(ctx, "elena@example.com", 2, 2)
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(rest) != 1 || rest[0].Subject != "first" {
		t.Errorf("expected the oldest entry in the last window, got %+v", rest)
	}
}

func TestManager_GetReturnsCopy(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()

	n := &Notification{Type: TypeEmail, Recipient: "copy@example.com", Subject: "original", Body: "b"}
	if err := mgr.Send(ctx, n); err != nil {
		t.Fatalf("send: %v", err)
	}

	first, _ := mgr.Get(ctx, n.ID)
	first.Subject = "mutated"

	second, _ := mgr.Get(ctx, n.ID)
	if second.Subject != "original" {
		t.Errorf("expected stored notification to be unaffected, got %q", second.Subject)
	}
}

func TestManager_StatsByStatus(t *testing.T) {
	mgr, email, _ := newTestManager()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mgr.Send(ctx, &Notification{Type: TypeEmail, Recipient: "a@example.com", Body: "b"})
	}
	email.FailWith(errors.New("down"))
	mgr.Send(ctx, &Notification{Type: TypeEmail, Recipient: "a@example.com", Body: "b"})

	stats := mgr.StatsByStatus(ctx)
	if stats["sent"] != 3 {
		t.Errorf("expected 3 sent, got %d", stats["sent"])
	}
	if stats["failed"] != 1 {
		t.Errorf("expected 1 failed, got %d", stats["failed"])
	}
}
