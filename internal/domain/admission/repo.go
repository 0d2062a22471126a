package admission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/hospital"
)

// QueueRepository persists bed queue entries.
type QueueRepository interface {
	Create(ctx context.Context, e *QueueEntry) error
	GetWaitingByBooking(ctx context.Context, hospitalID, bookingID uuid.UUID) (*QueueEntry, error)
	ListWaiting(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID) ([]*QueueEntry, error)
	// HasActive reports whether the booking holds a waiting or allocated
	// entry.
	HasActive(ctx context.Context, bookingID uuid.UUID) (bool, error)
	// MarkAllocated moves a waiting entry to allocated and records the bed.
	// It reports false without mutating anything when the entry is no
	// longer waiting.
	MarkAllocated(ctx context.Context, entryID, bedID uuid.UUID, at time.Time) (bool, error)
	// MarkWithdrawn moves a waiting entry to withdrawn, reporting false
	// when the entry is no longer waiting.
	MarkWithdrawn(ctx context.Context, entryID uuid.UUID) (bool, error)
}

// BedInventory is the slice of the hospital bed repository the allocator
// drives. hospital.BedRepository satisfies it.
type BedInventory interface {
	GetByNumber(ctx context.Context, hospitalID uuid.UUID, number int) (*hospital.Bed, error)
	ListAvailable(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, bedType string) ([]*hospital.Bed, error)
	Occupy(ctx context.Context, bedID, patientID, bookingID uuid.UUID) (bool, error)
	ReleaseByBooking(ctx context.Context, hospitalID, bookingID uuid.UUID) (*hospital.Bed, error)
}
