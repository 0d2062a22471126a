package medicalhistory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/domain/booking"
	"github.com/carehub/carehub/internal/domain/consultation"
	"github.com/carehub/carehub/internal/domain/document"
	"github.com/carehub/carehub/internal/domain/prescription"
)

// fullHistoryLimit caps the entry count for callers that want the whole
// history in one call, such as metrics and export.
const fullHistoryLimit = 1000

// The aggregator reads each source through the patient-window slice of
// its repository. The concrete repositories satisfy these directly.
type BookingSource interface {
	ListByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*booking.Booking, error)
}

type PrescriptionSource interface {
	ListByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*prescription.Prescription, error)
}

type DocumentSource interface {
	ListByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*document.Document, error)
}

type ConsultationSource interface {
	ListByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*consultation.Consultation, error)
}

type Service struct {
	bookings      BookingSource
	prescriptions PrescriptionSource
	documents     DocumentSource
	consultations ConsultationSource
	logger        zerolog.Logger
}

func NewService(bookings BookingSource, prescriptions PrescriptionSource, documents DocumentSource, consultations ConsultationSource) *Service {
	return &Service{
		bookings:      bookings,
		prescriptions: prescriptions,
		documents:     documents,
		consultations: consultations,
		logger:        zerolog.Nop(),
	}
}

// SetLogger replaces the service's logger, a no-op logger by default.
func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l
}

// GetTimeline assembles the patient's merged history. With no type filter
// all four sources are queried in parallel; with one, only that source.
// A source that fails is logged, named in Degraded and left out; the
// request itself never fails over it. Entries come back newest first,
// and Limit/Offset slice the merged set so ordering across types holds.
func (s *Service) GetTimeline(ctx context.Context, patientID uuid.UUID, f Filter) (*Timeline, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if f.Type != "" && !ValidEntryTypes[f.Type] {
		return nil, ErrInvalidType
	}

	types := EntryTypes
	if f.Type != "" {
		types = []string{f.Type}
	}

	// Each source writes only its own slot, so no lock is needed.
	perSource := make([][]*TimelineEntry, len(types))
	errs := make([]error, len(types))
	var wg sync.WaitGroup
	for i, typ := range types {
		wg.Add(1)
		go func(i int, typ string) {
			defer wg.Done()
			perSource[i], errs[i] = s.fetch(ctx, typ, patientID, f.From, f.To)
		}(i, typ)
	}
	wg.Wait()

	// Merge in canonical type order so equal dates rank deterministically.
	var merged []*TimelineEntry
	var degraded []string
	for i, typ := range types {
		if errs[i] != nil {
			s.logger.Warn().Err(errs[i]).
				Str("source", typ).
				Str("patient_id", patientID.String()).
				Msg("timeline source unavailable")
			degraded = append(degraded, typ)
			continue
		}
		merged = append(merged, perSource[i]...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})

	total := len(merged)
	if f.Limit > 0 {
		start := f.Offset
		if start < 0 {
			start = 0
		}
		if start > total {
			start = total
		}
		end := start + f.Limit
		if end > total {
			end = total
		}
		merged = merged[start:end]
	}

	return &Timeline{Entries: merged, Total: total, Degraded: degraded}, nil
}

// FullHistory is GetTimeline with a wide window: up to fullHistoryLimit
// entries, no offset. Metrics and export run over its result.
func (s *Service) FullHistory(ctx context.Context, patientID uuid.UUID, typ string, from, to *time.Time) (*Timeline, error) {
	return s.GetTimeline(ctx, patientID, Filter{Type: typ, From: from, To: to, Limit: fullHistoryLimit})
}

func (s *Service) fetch(ctx context.Context, typ string, patientID uuid.UUID, from, to *time.Time) ([]*TimelineEntry, error) {
	switch typ {
	case TypeBooking:
		records, err := s.bookings.ListByPatientWindow(ctx, patientID, from, to)
		if err != nil {
			return nil, err
		}
		entries := make([]*TimelineEntry, 0, len(records))
		for _, b := range records {
			entries = append(entries, bookingEntry(b))
		}
		return entries, nil
	case TypePrescription:
		records, err := s.prescriptions.ListByPatientWindow(ctx, patientID, from, to)
		if err != nil {
			return nil, err
		}
		entries := make([]*TimelineEntry, 0, len(records))
		for _, p := range records {
			entries = append(entries, prescriptionEntry(p))
		}
		return entries, nil
	case TypeDocument:
		records, err := s.documents.ListByPatientWindow(ctx, patientID, from, to)
		if err != nil {
			return nil, err
		}
		entries := make([]*TimelineEntry, 0, len(records))
		for _, d := range records {
			entries = append(entries, documentEntry(d))
		}
		return entries, nil
	case TypeConsultation:
		records, err := s.consultations.ListByPatientWindow(ctx, patientID, from, to)
		if err != nil {
			return nil, err
		}
		entries := make([]*TimelineEntry, 0, len(records))
		for _, c := range records {
			entries = append(entries, consultationEntry(c))
		}
		return entries, nil
	default:
		return nil, ErrInvalidType
	}
}

// Per-type normalizers. Each maps one source record onto the common
// entry shape; the entry's date choice is documented on TimelineEntry.

func bookingEntry(b *booking.Booking) *TimelineEntry {
	return &TimelineEntry{
		Type:  TypeBooking,
		Date:  b.ScheduledTime,
		Title: bookingTitle(b),
		Booking: &BookingDetails{
			ID:         b.ID,
			HospitalID: b.HospitalID,
			DoctorID:   b.DoctorID,
			Kind:       b.Kind,
			Status:     b.Status,
			Department: b.Department,
			Reason:     b.Reason,
		},
	}
}

func bookingTitle(b *booking.Booking) string {
	label := "Appointment"
	if b.Kind == "inpatient" {
		label = "Inpatient admission"
	}
	if b.Department != nil && *b.Department != "" {
		return fmt.Sprintf("%s (%s)", label, *b.Department)
	}
	return label
}

func prescriptionEntry(p *prescription.Prescription) *TimelineEntry {
	return &TimelineEntry{
		Type:  TypePrescription,
		Date:  p.IssuedAt,
		Title: fmt.Sprintf("%s %s", p.Medication, p.Dosage),
		Prescription: &PrescriptionDetails{
			ID:           p.ID,
			DoctorID:     p.DoctorID,
			Medication:   p.Medication,
			Dosage:       p.Dosage,
			Frequency:    p.Frequency,
			DurationDays: p.DurationDays,
			Status:       p.Status,
		},
	}
}

func documentEntry(d *document.Document) *TimelineEntry {
	return &TimelineEntry{
		Type:  TypeDocument,
		Date:  d.CreatedAt,
		Title: d.Title,
		Document: &DocumentDetails{
			ID:          d.ID,
			Category:    d.Category,
			FileName:    d.FileName,
			ContentType: d.ContentType,
			Size:        d.Size,
		},
	}
}

func consultationEntry(c *consultation.Consultation) *TimelineEntry {
	return &TimelineEntry{
		Type:  TypeConsultation,
		Date:  c.EffectiveTime(),
		Title: consultationTitle(c),
		Consultation: &ConsultationDetails{
			ID:        c.ID,
			DoctorID:  c.DoctorID,
			Mode:      c.Mode,
			Status:    c.Status,
			Diagnosis: c.Diagnosis,
			EndedAt:   c.EndedAt,
		},
	}
}

func consultationTitle(c *consultation.Consultation) string {
	switch c.Mode {
	case "video":
		return "Video consultation"
	case "phone":
		return "Phone consultation"
	default:
		return "In-person consultation"
	}
}
