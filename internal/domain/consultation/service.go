package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo ConsultationRepository
}

func NewService(repo ConsultationRepository) *Service {
	return &Service{repo: repo}
}

var validModes = map[string]bool{
	"in_person": true, "video": true, "phone": true,
}

var validStatuses = map[string]bool{
	"scheduled": true, "in_progress": true, "completed": true, "cancelled": true,
}

func (s *Service) CreateConsultation(ctx context.Context, c *Consultation) error {
	if c.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if c.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if !validModes[c.Mode] {
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	if c.Status == "" {
		c.Status = "scheduled"
	}
	if !validStatuses[c.Status] {
		return fmt.Errorf("invalid status: %s", c.Status)
	}
	if c.StartedAt != nil && c.EndedAt != nil && c.EndedAt.Before(*c.StartedAt) {
		return fmt.Errorf("ended_at precedes started_at")
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateConsultation(ctx context.Context, c *Consultation) error {
	if c.Mode != "" && !validModes[c.Mode] {
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	if c.Status != "" && !validStatuses[c.Status] {
		return fmt.Errorf("invalid status: %s", c.Status)
	}
	if c.StartedAt != nil && c.EndedAt != nil && c.EndedAt.Before(*c.StartedAt) {
		return fmt.Errorf("ended_at precedes started_at")
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) DeleteConsultation(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListConsultations(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListConsultationsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListConsultationsByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*Consultation, error) {
	return s.repo.ListByPatientWindow(ctx, patientID, from, to)
}

func (s *Service) SearchConsultations(ctx context.Context, params map[string]string, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// StartConsultation stamps the start time and moves the consultation
// to in_progress.
func (s *Service) StartConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != "scheduled" {
		return nil, fmt.Errorf("only scheduled consultations can be started, status is %s", c.Status)
	}
	now := time.Now()
	c.Status = "in_progress"
	c.StartedAt = &now
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// EndConsultation stamps the end time and completes the consultation.
func (s *Service) EndConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != "in_progress" {
		return nil, fmt.Errorf("only in_progress consultations can be ended, status is %s", c.Status)
	}
	now := time.Now()
	c.Status = "completed"
	c.EndedAt = &now
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
