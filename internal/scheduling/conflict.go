package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medagenda/clinic-scheduling/internal/faults"
)

// ConflictClass identifies which party of a booking already holds an
// overlapping appointment. Each class maps to a different user-facing
// message.
type ConflictClass string

const (
	ConflictProfessional ConflictClass = "professional"
	ConflictResource     ConflictClass = "resource"
	ConflictPatient      ConflictClass = "patient"
)

// BookingConflictError reports a double booking against an existing
// appointment.
type BookingConflictError struct {
	Class      ConflictClass
	ExistingID uuid.UUID
	Start      time.Time
	End        time.Time
}

func (e *BookingConflictError) Error() string {
	window := fmt.Sprintf("%s to %s", e.Start.Format("02/01/2006 15:04"), e.End.Format("15:04"))
	switch e.Class {
	case ConflictProfessional:
		return fmt.Sprintf("professional already has an appointment at %s", window)
	case ConflictResource:
		return fmt.Sprintf("resource is already booked at %s", window)
	default:
		return fmt.Sprintf("patient already has an appointment at %s", window)
	}
}

func (e *BookingConflictError) Unwrap() error { return faults.ErrConflict }

// Candidate is a proposed or moved booking interval to check for conflicts.
type Candidate struct {
	// ID of the appointment being moved, nil for a new booking.
	ID             *uuid.UUID
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	ResourceID     *uuid.UUID
	Start          time.Time
	End            time.Time
}

// CheckConflicts returns a BookingConflictError when another non-cancelled
// appointment sharing the candidate's professional, resource or patient
// intersects the candidate's [start,end) interval. Professional conflicts
// take priority over resource, resource over patient.
func (s *Service) CheckConflicts(ctx context.Context, c Candidate) error {
	if !c.End.After(c.Start) {
		return faults.Invalidf("appointment end must be after start")
	}

	overlapping, err := s.repo.FindOverlapping(ctx, OverlapQuery{
		Start:          c.Start,
		End:            c.End,
		PatientID:      c.PatientID,
		ProfessionalID: c.ProfessionalID,
		ResourceID:     c.ResourceID,
		ExcludeID:      c.ID,
	})
	if err != nil {
		return err
	}
	if len(overlapping) == 0 {
		return nil
	}

	var found *BookingConflictError
	for i := range overlapping {
		other := &overlapping[i]
		class := classifyConflict(c, other)
		if found == nil || classPriority(class) < classPriority(found.Class) {
			found = &BookingConflictError{
				Class:      class,
				ExistingID: other.ID,
				Start:      other.StartTime,
				End:        other.EndTime,
			}
		}
	}
	return found
}

func classifyConflict(c Candidate, other *Appointment) ConflictClass {
	if other.ProfessionalID == c.ProfessionalID {
		return ConflictProfessional
	}
	if c.ResourceID != nil && other.ResourceID != nil && *other.ResourceID == *c.ResourceID {
		return ConflictResource
	}
	return ConflictPatient
}

func classPriority(c ConflictClass) int {
	switch c {
	case ConflictProfessional:
		return 0
	case ConflictResource:
		return 1
	default:
		return 2
	}
}
