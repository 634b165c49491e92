package patients

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	PhoneNumber    *string    `db:"phone_number" json:"phone_number,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Address        *string    `db:"address" json:"address,omitempty"`
	BloodGroup     *string    `db:"blood_group" json:"blood_group,omitempty"`
	Allergies      *string    `db:"allergies" json:"allergies,omitempty"`
	MedicalHistory *string    `db:"medical_history" json:"medical_history,omitempty"`
	// PrincipalID links the record to a login account when the patient uses
	// the portal. Walk-in patients have no account.
	PrincipalID *uuid.UUID `db:"principal_id" json:"principal_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
