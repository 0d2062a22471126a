package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/hospital"
)

// BedQueue is the admission-side hook the service calls when an
// inpatient booking is confirmed. Wired in main; nil means bed
// requests are silently not queued (useful in tests).
type BedQueue interface {
	Enqueue(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, bookingID, patientID uuid.UUID, bedType, priority string) error
}

type Service struct {
	repo     BookingRepository
	bedQueue BedQueue
}

func NewService(repo BookingRepository) *Service {
	return &Service{repo: repo}
}

// SetBedQueue attaches the admission queue hook to the service.
func (s *Service) SetBedQueue(q BedQueue) {
	s.bedQueue = q
}

var validKinds = map[string]bool{
	"appointment": true, "inpatient": true,
}

var validStatuses = map[string]bool{
	"pending": true, "confirmed": true, "completed": true, "cancelled": true,
}

var validPriorities = map[string]bool{
	"CRITICAL": true, "HIGH": true, "MEDIUM": true, "LOW": true,
}

func (s *Service) CreateBooking(ctx context.Context, b *Booking) error {
	if b.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if b.HospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if !validKinds[b.Kind] {
		return fmt.Errorf("invalid kind: %s", b.Kind)
	}
	if b.Kind == "inpatient" {
		if b.BedType == nil || *b.BedType == "" {
			return fmt.Errorf("bed_type is required for inpatient bookings")
		}
		if !hospital.ValidBedTypes[*b.BedType] {
			return fmt.Errorf("invalid bed_type: %s", *b.BedType)
		}
		if b.Priority == nil || *b.Priority == "" {
			return fmt.Errorf("priority is required for inpatient bookings")
		}
		if !validPriorities[*b.Priority] {
			return fmt.Errorf("invalid priority: %s", *b.Priority)
		}
	}
	if b.ScheduledTime.IsZero() {
		b.ScheduledTime = time.Now()
	}
	if b.Status == "" {
		b.Status = "pending"
	}
	if !validStatuses[b.Status] {
		return fmt.Errorf("invalid status: %s", b.Status)
	}
	return s.repo.Create(ctx, b)
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateBooking(ctx context.Context, b *Booking) error {
	if b.Status != "" && !validStatuses[b.Status] {
		return fmt.Errorf("invalid status: %s", b.Status)
	}
	if b.BedType != nil && *b.BedType != "" && !hospital.ValidBedTypes[*b.BedType] {
		return fmt.Errorf("invalid bed_type: %s", *b.BedType)
	}
	if b.Priority != nil && *b.Priority != "" && !validPriorities[*b.Priority] {
		return fmt.Errorf("invalid priority: %s", *b.Priority)
	}
	return s.repo.Update(ctx, b)
}

func (s *Service) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListBookings(ctx context.Context, limit, offset int) ([]*Booking, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListBookingsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListBookingsByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*Booking, error) {
	return s.repo.ListByPatientWindow(ctx, patientID, from, to)
}

func (s *Service) SearchBookings(ctx context.Context, params map[string]string, limit, offset int) ([]*Booking, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// ConfirmBooking moves a pending booking to confirmed. Confirming an
// inpatient booking also places the patient on the hospital's bed
// queue; appointments never touch the queue.
func (s *Service) ConfirmBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != "pending" {
		return nil, fmt.Errorf("only pending bookings can be confirmed, status is %s", b.Status)
	}
	b.Status = "confirmed"
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	if b.Kind == "inpatient" && s.bedQueue != nil {
		if err := s.bedQueue.Enqueue(ctx, b.HospitalID, b.LocationID, b.ID, b.PatientID, *b.BedType, *b.Priority); err != nil {
			return nil, fmt.Errorf("enqueue bed request: %w", err)
		}
	}
	return b, nil
}

// CompleteBooking closes out a confirmed booking.
func (s *Service) CompleteBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != "confirmed" {
		return nil, fmt.Errorf("only confirmed bookings can be completed, status is %s", b.Status)
	}
	b.Status = "completed"
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CancelBooking cancels a pending or confirmed booking. Any queued bed
// request is withdrawn separately through the admission queue.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != "pending" && b.Status != "confirmed" {
		return nil, fmt.Errorf("booking cannot be cancelled, status is %s", b.Status)
	}
	b.Status = "cancelled"
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
