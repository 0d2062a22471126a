package hospital

import (
	"context"

	"github.com/google/uuid"
)

type HospitalRepository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Hospital, int, error)
}

type LocationRepository interface {
	Create(ctx context.Context, l *Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*Location, error)
	Update(ctx context.Context, l *Location) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Location, int, error)
}

type BedRepository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	GetByNumber(ctx context.Context, hospitalID uuid.UUID, number int) (*Bed, error)
	Update(ctx context.Context, b *Bed) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, limit, offset int) ([]*Bed, int, error)
	ListAvailable(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, bedType string) ([]*Bed, error)
	// Occupy marks the bed taken by patient+booking. It reports false
	// without mutating anything when the bed is already occupied.
	Occupy(ctx context.Context, bedID, patientID, bookingID uuid.UUID) (bool, error)
	// ReleaseByBooking frees the bed held under the booking and returns
	// it; the caller gets an error when no bed is held.
	ReleaseByBooking(ctx context.Context, hospitalID, bookingID uuid.UUID) (*Bed, error)
}
