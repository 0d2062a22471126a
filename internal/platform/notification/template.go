package notification

import (
	"sort"
	"strings"
	"sync"
)

// Template is a reusable message with {{key}} placeholders.
type Template struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Subject string           `json:"subject"`
	Body    string           `json:"body"`
	Type    NotificationType `json:"type"`
}

// render substitutes {{key}} tokens in the subject and body. Tokens with
// no matching data key are left untouched.
func (t Template) render(data map[string]string) (subject, body string) {
	subject, body = t.Subject, t.Body
	for key, value := range data {
		token := "{{" + key + "}}"
		subject = strings.ReplaceAll(subject, token, value)
		body = strings.ReplaceAll(body, token, value)
	}
	return subject, body
}

// TemplateEngine holds the registered templates. Templates are stored and
// returned by value.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateEngine creates an engine preloaded with the CareHub patient
// messages.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range builtinTemplates {
		e.templates[t.ID] = t
	}
	return e
}

var builtinTemplates = []Template{
	{
		ID:      "bed-allocated",
		Name:    "Bed Allocated",
		Subject: "Bed Assigned at {{hospital}}",
		Body:    "Dear {{patient_name}}, a {{bed_type}} bed (number {{bed_number}}) has been assigned to you at {{hospital}}. Please proceed to the admissions desk.",
		Type:    TypeEmail,
	},
	{
		ID:      "queue-joined",
		Name:    "Added to Bed Queue",
		Subject: "You Are in the Bed Queue at {{hospital}}",
		Body:    "Dear {{patient_name}}, your admission request at {{hospital}} has been placed in the bed queue. We will notify you as soon as a bed is assigned.",
		Type:    TypeEmail,
	},
	{
		ID:      "booking-confirmed",
		Name:    "Booking Confirmed",
		Subject: "Booking Confirmed for {{patient_name}}",
		Body:    "Dear {{patient_name}}, your {{booking_kind}} booking on {{date}} at {{time}} has been confirmed by {{hospital}}.",
		Type:    TypeEmail,
	},
	{
		ID:      "appointment-reminder",
		Name:    "Appointment Reminder",
		Subject: "Appointment Reminder for {{patient_name}}",
		Body:    "Dear {{patient_name}}, this is a reminder of your appointment on {{date}} at {{time}} with {{doctor}}.",
		Type:    TypeEmail,
	},
	{
		ID:      "prescription-issued",
		Name:    "Prescription Issued",
		Subject: "New Prescription from {{doctor}}",
		Body:    "Dear {{patient_name}}, {{doctor}} has issued a prescription for {{medication}} ({{dosage}}, {{frequency}}). It is available in your medical history.",
		Type:    TypeEmail,
	},
	{
		ID:      "document-uploaded",
		Name:    "Document Added",
		Subject: "New Document in Your Medical History",
		Body:    "Dear {{patient_name}}, a new {{category}} document ({{title}}) has been added to your medical history.",
		Type:    TypeEmail,
	},
}

// Register adds or replaces a template.
func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Lookup returns the template with the given ID.
func (e *TemplateEngine) Lookup(id string) (Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.templates[id]
	return t, ok
}

// List returns all registered templates ordered by ID.
func (e *TemplateEngine) List() []Template {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Template, 0, len(e.templates))
	for _, t := range e.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
