package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Prescription maps to the prescriptions table.
type Prescription struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID     uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	BookingID    *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	Medication   string     `db:"medication" json:"medication"`
	Dosage       string     `db:"dosage" json:"dosage"`
	Frequency    *string    `db:"frequency" json:"frequency,omitempty"`
	DurationDays *int       `db:"duration_days" json:"duration_days,omitempty"`
	Instructions *string    `db:"instructions" json:"instructions,omitempty"`
	Status       string     `db:"status" json:"status"`
	IssuedAt     time.Time  `db:"issued_at" json:"issued_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
