package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status is the administrative state of an appointment. Payment recording
// (Appointment.PaymentRecorded) is an independent axis and never drives a
// status change.
type Status string

const (
	StatusRequested Status = "SOLICITADO"
	StatusScheduled Status = "AGENDADO"
	StatusReleased  Status = "LIBERADO"
	StatusAttended  Status = "ATENDIDO"
	StatusCompleted Status = "FINALIZADO"
	StatusCancelled Status = "CANCELADO"
)

// AllStatuses in lifecycle order, terminal states last.
var AllStatuses = []Status{
	StatusRequested,
	StatusScheduled,
	StatusReleased,
	StatusAttended,
	StatusCompleted,
	StatusCancelled,
}

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusScheduled, StatusReleased, StatusAttended, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	ResourceID     *uuid.UUID
	PlanID         *uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	Status         Status
	// PaymentRecorded flags that a payment was registered against this
	// appointment. Orthogonal to Status.
	PaymentRecorded bool
	// ReleasedOn is the liberation date, set when the appointment moves to
	// LIBERADO.
	ReleasedOn *time.Time
	// PaymentNotified flags that the payment notification message went out.
	PaymentNotified bool
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Releasable reports whether the appointment can still be moved to LIBERADO.
func (a *Appointment) Releasable() bool {
	return a.Status == StatusRequested || a.Status == StatusScheduled
}
