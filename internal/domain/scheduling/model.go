package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Transitions: booked -> checked_in -> completed,
// with cancellation allowed from booked or checked_in.
const (
	StatusBooked    = "booked"
	StatusCheckedIn = "checked_in"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Appointment maps to the appointments table. BookingNumber is a ULID so
// receipts sort chronologically without exposing row counts.
type Appointment struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	BookingNumber string     `db:"booking_number" json:"booking_number"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID      *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	ScheduledAt   time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Reason        *string    `db:"reason" json:"reason,omitempty"`
	Status        string     `db:"status" json:"status"`
	Fee           float64    `db:"fee" json:"fee"`
	CancelReason  *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CheckedInAt   *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	// CreatedBy is the booking principal. Patients may only see and cancel
	// appointments they created.
	CreatedBy uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BookInput is the payload for booking an appointment.
type BookInput struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	DoctorID    *uuid.UUID `json:"doctor_id,omitempty"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Reason      *string    `json:"reason,omitempty"`
	Fee         float64    `json:"fee"`
}

// ListFilter narrows appointment listings. CreatedBy restricts results to
// one booking principal (applied for the patient role).
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	CreatedBy *uuid.UUID
	Status    string
}
