package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type BookingRepository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	Update(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Booking, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Booking, int, error)
	// ListByPatientWindow returns every booking for the patient whose
	// scheduled time falls inside [from, to]; nil bounds are open.
	ListByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*Booking, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Booking, int, error)
}
