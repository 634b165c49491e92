package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

var (
	ErrNotOwner      = errors.New("appointment belongs to another principal")
	ErrBadTransition = errors.New("invalid status transition")
)

type Service struct {
	appointments Repository
}

func NewService(appointments Repository) *Service {
	return &Service{appointments: appointments}
}

// Book creates an appointment with a fresh ULID booking number.
func (s *Service) Book(ctx context.Context, in BookInput, createdBy uuid.UUID) (*Appointment, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if in.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("scheduled_at is required")
	}
	if in.Fee < 0 {
		return nil, fmt.Errorf("fee cannot be negative")
	}

	a := &Appointment{
		BookingNumber: ulid.Make().String(),
		PatientID:     in.PatientID,
		DoctorID:      in.DoctorID,
		ScheduledAt:   in.ScheduledAt,
		Reason:        in.Reason,
		Status:        StatusBooked,
		Fee:           in.Fee,
		CreatedBy:     createdBy,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns one appointment. Patients only see their own bookings.
func (s *Service) Get(ctx context.Context, id uuid.UUID, caller uuid.UUID, role auth.Role) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == auth.RolePatient && a.CreatedBy != caller {
		return nil, ErrNotOwner
	}
	return a, nil
}

// List applies the caller's visibility: patients are pinned to their own
// bookings regardless of the requested filter.
func (s *Service) List(ctx context.Context, filter ListFilter, caller uuid.UUID, role auth.Role, limit, offset int) ([]*Appointment, int, error) {
	if role == auth.RolePatient {
		filter.CreatedBy = &caller
	}
	return s.appointments.List(ctx, filter, limit, offset)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, caller uuid.UUID, role auth.Role) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == auth.RolePatient && a.CreatedBy != caller {
		return nil, ErrNotOwner
	}
	if a.Status == StatusCancelled || a.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: cannot cancel a %s appointment", ErrBadTransition, a.Status)
	}

	a.Status = StatusCancelled
	if r := strings.TrimSpace(reason); r != "" {
		a.CancelReason = &r
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusBooked {
		return nil, fmt.Errorf("%w: cannot check in a %s appointment", ErrBadTransition, a.Status)
	}

	now := time.Now().UTC()
	a.Status = StatusCheckedIn
	a.CheckedInAt = &now
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Receipt renders a plain-text booking receipt.
func (s *Service) Receipt(ctx context.Context, id uuid.UUID, caller uuid.UUID, role auth.Role) (string, error) {
	a, err := s.Get(ctx, id, caller, role)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CLINIC APPOINTMENT RECEIPT\n")
	fmt.Fprintf(&b, "--------------------------\n")
	fmt.Fprintf(&b, "Booking number: %s\n", a.BookingNumber)
	fmt.Fprintf(&b, "Patient:        %s\n", a.PatientID)
	fmt.Fprintf(&b, "Scheduled at:   %s\n", a.ScheduledAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "Status:         %s\n", a.Status)
	fmt.Fprintf(&b, "Fee:            %.2f\n", a.Fee)
	fmt.Fprintf(&b, "Issued:         %s\n", time.Now().UTC().Format(time.RFC1123))
	return b.String(), nil
}
