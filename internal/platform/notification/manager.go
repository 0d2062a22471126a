package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager renders, dispatches, and logs notifications. The delivery log
// is in-memory; entries are stored and handed out as copies so callers
// never share mutable state with the manager.
type Manager struct {
	emailSender EmailSender
	smsSender   SMSSender
	templates   *TemplateEngine

	mu  sync.RWMutex
	log map[string]*Notification
}

// NewManager constructs a manager around the given senders.
func NewManager(email EmailSender, sms SMSSender, tpl *TemplateEngine) *Manager {
	return &Manager{
		emailSender: email,
		smsSender:   sms,
		templates:   tpl,
		log:         make(map[string]*Notification),
	}
}

// Send dispatches the notification and records the outcome. Delivery
// failures are stamped on the notification and also returned.
func (m *Manager) Send(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Priority == "" {
		n.Priority = "normal"
	}
	n.CreatedAt = time.Now().UTC()

	err := m.dispatch(ctx, n)
	m.record(n)
	return err
}

// SendTemplated renders the template and delivers the result to the
// recipient over the template's channel.
func (m *Manager) SendTemplated(ctx context.Context, templateID, recipient string, data map[string]string) (*Notification, error) {
	tpl, ok := m.templates.Lookup(templateID)
	if !ok {
		return nil, fmt.Errorf("template %q not found", templateID)
	}

	n := &Notification{
		Type:         tpl.Type,
		Recipient:    recipient,
		TemplateID:   templateID,
		TemplateData: data,
	}
	n.Subject, n.Body = tpl.render(data)
	if err := m.Send(ctx, n); err != nil {
		return n, err
	}
	return n, nil
}

// Retry re-dispatches a failed notification. Only notifications in failed
// status are retryable.
func (m *Manager) Retry(ctx context.Context, id string) error {
	m.mu.RLock()
	stored, ok := m.log[id]
	var attempt Notification
	if ok {
		attempt = *stored
	}
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("notification %q not found", id)
	}
	if attempt.Status != StatusFailed {
		return fmt.Errorf("notification %q is not retryable (status %s)", id, attempt.Status)
	}

	err := m.dispatch(ctx, &attempt)
	m.record(&attempt)
	return err
}

// dispatch pushes the notification through its channel and stamps the
// outcome on it.
func (m *Manager) dispatch(ctx context.Context, n *Notification) error {
	var err error
	switch n.Type {
	case TypeEmail:
		err = m.emailSender.SendEmail(ctx, n.Recipient, n.Subject, n.Body)
	case TypeSMS:
		err = m.smsSender.SendSMS(ctx, n.Recipient, n.Body)
	default:
		err = fmt.Errorf("unsupported notification type: %s", n.Type)
	}

	if err != nil {
		n.Status = StatusFailed
		n.Error = err.Error()
		return err
	}

	n.Status = StatusSent
	n.Error = ""
	sentAt := time.Now().UTC()
	n.SentAt = &sentAt
	return nil
}

// record stores the notification, replacing any earlier entry with the
// same ID.
func (m *Manager) record(n *Notification) {
	m.mu.Lock()
	m.log[n.ID] = n
	m.mu.Unlock()
}

// Get returns a copy of the notification with the given ID.
func (m *Manager) Get(_ context.Context, id string) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.log[id]
	if !ok {
		return nil, fmt.Errorf("notification %q not found", id)
	}
	out := *n
	return &out, nil
}

// ListByRecipient returns one window of the recipient's notifications,
// newest first, along with the total number logged for them.
func (m *Manager) ListByRecipient(_ context.Context, recipient string, limit, offset int) ([]*Notification, int, error) {
	m.mu.RLock()
	matches := make([]*Notification, 0)
	for _, n := range m.log {
		if n.Recipient == recipient {
			out := *n
			matches = append(matches, &out)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	if offset >= total {
		return []*Notification{}, total, nil
	}
	matches = matches[offset:]
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, total, nil
}

// StatsByStatus counts logged notifications by delivery status.
func (m *Manager) StatsByStatus(_ context.Context) map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]int)
	for _, n := range m.log {
		stats[string(n.Status)]++
	}
	return stats
}

// Templates lists the registered templates ordered by ID.
func (m *Manager) Templates() []Template {
	return m.templates.List()
}
