package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ConsultationRepository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Update(ctx context.Context, c *Consultation) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Consultation, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error)
	// ListByPatientWindow returns every consultation whose effective
	// time falls inside [from, to]; nil bounds are open.
	ListByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*Consultation, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Consultation, int, error)
}
