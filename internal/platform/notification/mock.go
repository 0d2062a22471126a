package notification

import (
	"context"
	"sync"
)

// callLog accumulates recorded sender calls and an injectable failure. The
// zero value is ready to use.
type callLog[T any] struct {
	mu    sync.Mutex
	calls []T
	fail  error
}

func (l *callLog[T]) record(call T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
	return l.fail
}

func (l *callLog[T]) setFail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}

func (l *callLog[T]) snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.calls...)
}

// EmailCall records one SendEmail invocation.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender records calls for assertions. The zero value delivers
// successfully; use FailWith to make subsequent sends fail.
type MockEmailSender struct {
	log callLog[EmailCall]
}

func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	return m.log.record(EmailCall{To: to, Subject: subject, Body: body})
}

// FailWith sets the error returned by future sends. Pass nil to restore
// successful delivery.
func (m *MockEmailSender) FailWith(err error) { m.log.setFail(err) }

// Calls returns a copy of the recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall { return m.log.snapshot() }

// SMSCall records one SendSMS invocation.
type SMSCall struct {
	To   string
	Body string
}

// MockSMSSender records calls for assertions. The zero value delivers
// successfully; use FailWith to make subsequent sends fail.
type MockSMSSender struct {
	log callLog[SMSCall]
}

func (m *MockSMSSender) SendSMS(_ context.Context, to, body string) error {
	return m.log.record(SMSCall{To: to, Body: body})
}

// FailWith sets the error returned by future sends. Pass nil to restore
// successful delivery.
func (m *MockSMSSender) FailWith(err error) { m.log.setFail(err) }

// Calls returns a copy of the recorded SMS calls.
func (m *MockSMSSender) Calls() []SMSCall { return m.log.snapshot() }
