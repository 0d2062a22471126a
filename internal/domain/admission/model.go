package admission

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PriorityLevel classifies how urgently a queued booking needs a bed.
type PriorityLevel string

const (
	PriorityCritical PriorityLevel = "CRITICAL"
	PriorityHigh     PriorityLevel = "HIGH"
	PriorityMedium   PriorityLevel = "MEDIUM"
	PriorityLow      PriorityLevel = "LOW"
)

// ValidPriorityLevels enumerates the accepted priority levels.
var ValidPriorityLevels = map[PriorityLevel]bool{
	PriorityCritical: true,
	PriorityHigh:     true,
	PriorityMedium:   true,
	PriorityLow:      true,
}

// Queue entry lifecycle. A waiting entry either receives a bed (allocated)
// or leaves the queue (withdrawn); both end states are final.
const (
	StatusWaiting   = "waiting"
	StatusAllocated = "allocated"
	StatusWithdrawn = "withdrawn"
)

// Errors returned by queue and allocation operations. Handlers map these
// onto HTTP statuses.
var (
	ErrAlreadyQueued = errors.New("booking is already queued")
	ErrNotInQueue    = errors.New("booking is not in the queue")
	ErrBedNotFound   = errors.New("bed not found")
	ErrBedOccupied   = errors.New("bed is already occupied")
)

// QueueEntry is one booking's place in a hospital's bed queue.
type QueueEntry struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	HospitalID    uuid.UUID     `db:"hospital_id" json:"hospital_id"`
	LocationID    *uuid.UUID    `db:"location_id" json:"location_id,omitempty"`
	BookingID     uuid.UUID     `db:"booking_id" json:"booking_id"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	BedType       string        `db:"bed_type" json:"bed_type"`
	Priority      PriorityLevel `db:"priority" json:"priority"`
	Score         float64       `db:"score" json:"score"`
	Status        string        `db:"status" json:"status"`
	EnqueuedAt    time.Time     `db:"enqueued_at" json:"enqueued_at"`
	AssignedBedID *uuid.UUID    `db:"assigned_bed_id" json:"assigned_bed_id,omitempty"`
	AllocatedAt   *time.Time    `db:"allocated_at" json:"allocated_at,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`

	// Position is the entry's 1-based rank in the live queue view. It is
	// computed per request and never persisted.
	Position int `db:"-" json:"position,omitempty"`
}
