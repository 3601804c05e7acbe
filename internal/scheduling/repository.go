package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medagenda/clinic-scheduling/internal/faults"
)

var (
	ErrAppointmentNotFound = &faults.NotFoundError{Resource: "appointment"}

	// ErrStatusChanged is returned when a compare-and-swap update finds the
	// appointment no longer in the expected status.
	ErrStatusChanged = &faults.ConflictError{Msg: "appointment status changed concurrently"}

	// ErrNotNotifiable is returned when the notification flag update finds
	// the appointment missing or not in FINALIZADO.
	ErrNotNotifiable = &faults.ConflictError{Msg: "appointment is not in a notifiable status"}
)

// SearchFilter narrows an appointment search. Nil pointer fields are not
// applied. Zero Limit falls back to the store default.
type SearchFilter struct {
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
	ServiceID      *uuid.UUID
	From           *time.Time
	To             *time.Time
	Statuses       []Status
	Limit          int
	Offset         int
}

// OverlapQuery describes a candidate booking interval for conflict checks.
type OverlapQuery struct {
	Start          time.Time
	End            time.Time
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	ResourceID     *uuid.UUID
	// ExcludeID skips the appointment being moved, so it never conflicts
	// with itself.
	ExcludeID *uuid.UUID
}

// Repository contains all appointment store interactions needed by the
// workflows. Appointments are only ever mutated here, never deleted.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]Appointment, error)
	Search(ctx context.Context, filter SearchFilter) ([]Appointment, error)

	// FindOverlapping returns non-cancelled appointments whose [start,end)
	// interval intersects the query interval and that share the query's
	// professional, resource or patient.
	FindOverlapping(ctx context.Context, q OverlapQuery) ([]Appointment, error)

	// Release moves an appointment to LIBERADO iff it is still in the given
	// status, recording the liberation date and payment flag in the same
	// write. Returns ErrStatusChanged when the guard fails.
	Release(ctx context.Context, id uuid.UUID, from Status, releasedOn time.Time, paymentRecorded bool) (*Appointment, error)

	// MarkPaymentNotified sets the notification flag iff the appointment is
	// in FINALIZADO. Returns ErrNotNotifiable otherwise.
	MarkPaymentNotified(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// SetPaymentRecorded flips the payment-recorded flag without touching
	// status.
	SetPaymentRecorded(ctx context.Context, id uuid.UUID, recorded bool) (*Appointment, error)
}
