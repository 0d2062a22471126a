package hospital

import (
	"time"

	"github.com/google/uuid"
)

// ValidBedTypes enumerates the bed types a hospital can register.
// Matching is exact; the auto-allocator never substitutes across types.
var ValidBedTypes = map[string]bool{
	"icu": true, "hdu": true, "general": true,
	"private": true, "pediatric": true, "maternity": true,
}

// Hospital maps to the hospitals table.
type Hospital struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Location maps to the locations table. A location is one branch or
// building of a hospital; beds may optionally belong to one.
type Location struct {
	ID         uuid.UUID `db:"id" json:"id"`
	HospitalID uuid.UUID `db:"hospital_id" json:"hospital_id"`
	Name       string    `db:"name" json:"name"`
	Address    *string   `db:"address" json:"address,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Bed maps to the beds table. Bed numbers are unique per
// hospital+location. Occupied is true iff the occupant refs are set;
// both flip together in a single conditional update.
type Bed struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	HospitalID        uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	LocationID        *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	BedNumber         int        `db:"bed_number" json:"bed_number"`
	BedType           string     `db:"bed_type" json:"bed_type"`
	Floor             *string    `db:"floor" json:"floor,omitempty"`
	Ward              *string    `db:"ward" json:"ward,omitempty"`
	Occupied          bool       `db:"occupied" json:"occupied"`
	OccupantPatientID *uuid.UUID `db:"occupant_patient_id" json:"occupant_patient_id,omitempty"`
	OccupantBookingID *uuid.UUID `db:"occupant_booking_id" json:"occupant_booking_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
