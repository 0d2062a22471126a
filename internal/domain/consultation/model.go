package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Consultation maps to the consultations table.
type Consultation struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	BookingID  *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	Mode       string     `db:"mode" json:"mode"`
	Status     string     `db:"status" json:"status"`
	StartedAt  *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt    *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	Diagnosis  *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	FollowUpAt *time.Time `db:"follow_up_at" json:"follow_up_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveTime is the instant the consultation is pinned to on a
// patient timeline: the start time once known, the record creation
// time until then.
func (c *Consultation) EffectiveTime() time.Time {
	if c.StartedAt != nil {
		return *c.StartedAt
	}
	return c.CreatedAt
}
