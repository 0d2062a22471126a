// Package medicalhistory assembles a patient's records from the booking,
// prescription, document and consultation stores into one chronological
// timeline, with utilization metrics and CSV/PDF export over it. Nothing
// in this package is persisted; every view is rebuilt per request.
package medicalhistory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Entry types a timeline can carry. These double as the accepted values
// of the type filter.
const (
	TypeBooking      = "booking"
	TypePrescription = "prescription"
	TypeDocument     = "document"
	TypeConsultation = "consultation"
)

// EntryTypes lists every entry type in canonical order. Merging and
// metrics iterate this slice so output stays deterministic.
var EntryTypes = []string{TypeBooking, TypePrescription, TypeDocument, TypeConsultation}

// ValidEntryTypes is the allowlist the type filter is checked against.
var ValidEntryTypes = map[string]bool{
	TypeBooking:      true,
	TypePrescription: true,
	TypeDocument:     true,
	TypeConsultation: true,
}

// Errors returned before any store is queried. Handlers map these to 400.
var (
	ErrInvalidType   = errors.New("invalid timeline entry type")
	ErrInvalidFormat = errors.New("invalid export format")
)

// TimelineEntry is one record projected into the common timeline shape.
// Exactly one of the four detail fields is set, matching Type. Date is
// the instant the record is pinned to: the booking's scheduled time, the
// prescription's issue time, the document's upload time, the
// consultation's start (or creation) time.
type TimelineEntry struct {
	Type  string    `json:"type"`
	Date  time.Time `json:"date"`
	Title string    `json:"title"`

	Booking      *BookingDetails      `json:"booking,omitempty"`
	Prescription *PrescriptionDetails `json:"prescription,omitempty"`
	Document     *DocumentDetails     `json:"document,omitempty"`
	Consultation *ConsultationDetails `json:"consultation,omitempty"`
}

type BookingDetails struct {
	ID         uuid.UUID  `json:"id"`
	HospitalID uuid.UUID  `json:"hospital_id"`
	DoctorID   *uuid.UUID `json:"doctor_id,omitempty"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	Department *string    `json:"department,omitempty"`
	Reason     *string    `json:"reason,omitempty"`
}

type PrescriptionDetails struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	Medication   string    `json:"medication"`
	Dosage       string    `json:"dosage"`
	Frequency    *string   `json:"frequency,omitempty"`
	DurationDays *int      `json:"duration_days,omitempty"`
	Status       string    `json:"status"`
}

type DocumentDetails struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
}

type ConsultationDetails struct {
	ID        uuid.UUID  `json:"id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	Mode      string     `json:"mode"`
	Status    string     `json:"status"`
	Diagnosis *string    `json:"diagnosis,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Filter narrows a timeline request. Type empty means all sources; From
// and To are inclusive bounds applied in each store's query. Limit zero
// or negative means no slicing.
type Filter struct {
	Type   string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Timeline is one assembled view. Total counts the merged, date-filtered
// set before slicing. Degraded names the sources that failed and were
// left out, in canonical type order.
type Timeline struct {
	Entries  []*TimelineEntry `json:"entries"`
	Total    int              `json:"total"`
	Degraded []string         `json:"degraded,omitempty"`
}

// MetricsSummary aggregates a set of timeline entries into per-type
// counts and a daily trend. The sum of Counts always equals Total.
type MetricsSummary struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
	Trend  []TrendPoint   `json:"trend"`
}

// TrendPoint is one UTC calendar day's per-type entry counts.
type TrendPoint struct {
	Date   string         `json:"date"`
	Counts map[string]int `json:"counts"`
}
