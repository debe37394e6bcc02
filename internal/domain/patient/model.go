package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. The code is the human-readable
// registry identifier; it never changes after registration, and patients
// are deactivated rather than deleted.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Code             string     `db:"code" json:"code"`
	Name             string     `db:"name" json:"name"`
	Gender           *string    `db:"gender" json:"gender,omitempty"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	Email            *string    `db:"email" json:"email,omitempty"`
	Address          *string    `db:"address" json:"address,omitempty"`
	BloodGroup       *string    `db:"blood_group" json:"blood_group,omitempty"`
	EmergencyContact *string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Active           bool       `db:"active" json:"active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
