package booking

import (
	"time"

	"github.com/google/uuid"
)

// Booking maps to the bookings table. A booking is either an
// appointment visit or an inpatient admission request; only the latter
// carries a requested bed type and priority.
type Booking struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	HospitalID    uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	LocationID    *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	DoctorID      *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Department    *string    `db:"department" json:"department,omitempty"`
	Kind          string     `db:"kind" json:"kind"`
	BedType       *string    `db:"bed_type" json:"bed_type,omitempty"`
	Priority      *string    `db:"priority" json:"priority,omitempty"`
	Status        string     `db:"status" json:"status"`
	ScheduledTime time.Time  `db:"scheduled_time" json:"scheduled_time"`
	Reason        *string    `db:"reason" json:"reason,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
