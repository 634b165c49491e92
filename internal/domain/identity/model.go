package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// Profile maps to the profiles table. One row per principal; the role column
// is the single source of truth for authorization decisions.
type Profile struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PrincipalID  uuid.UUID `db:"principal_id" json:"principal_id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	PhoneNumber  *string   `db:"phone_number" json:"phone_number,omitempty"`
	Role         auth.Role `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SignupInput is the payload for self-service registration. New accounts
// always start as patients; only an admin can promote afterwards.
type SignupInput struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FullName    string  `json:"full_name"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// UpdateProfileInput carries admin-editable profile fields.
type UpdateProfileInput struct {
	FullName    *string `json:"full_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}
