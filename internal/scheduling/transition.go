package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medagenda/clinic-scheduling/internal/faults"
)

// transitions is the closed lifecycle graph. CANCELADO is reachable from
// every non-terminal state; FINALIZADO and CANCELADO are terminal.
var transitions = map[Status][]Status{
	StatusRequested: {StatusScheduled, StatusReleased, StatusCancelled},
	StatusScheduled: {StatusReleased, StatusCancelled},
	StatusReleased:  {StatusAttended, StatusCancelled},
	StatusAttended:  {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

// CanTransition reports whether the lifecycle graph allows from → to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ReleaseOneInput struct {
	AppointmentID uuid.UUID
	// ReleaseDate is the liberation date. Required, must not be after the
	// end of the current day.
	ReleaseDate time.Time
	// PaymentReceived is stored on the appointment as the payment-recorded
	// flag.
	PaymentReceived bool
	// AdvancePayment asserts the patient paid up front. Only valid together
	// with PaymentReceived.
	AdvancePayment bool
	RequestedBy    string
}

func validateRelease(releaseDate time.Time, paymentReceived, advancePayment bool) error {
	if advancePayment && !paymentReceived {
		return faults.Invalidf("advance payment requires payment received to be confirmed")
	}
	if releaseDate.IsZero() {
		return faults.Invalidf("release date is required")
	}
	if releaseDate.After(endOfDay(time.Now())) {
		return faults.Invalidf("release date %s is in the future", releaseDate.Format("2006-01-02"))
	}
	return nil
}

// ReleaseOne moves a single SOLICITADO/AGENDADO appointment to LIBERADO,
// storing the liberation date and the payment flag in the same write.
func (s *Service) ReleaseOne(ctx context.Context, in ReleaseOneInput) (*Appointment, error) {
	if err := validateRelease(in.ReleaseDate, in.PaymentReceived, in.AdvancePayment); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetByID(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Releasable() {
		return nil, faults.Invalidf("appointment %s cannot be released from status %s", appt.ID, appt.Status)
	}

	updated, err := s.repo.Release(ctx, appt.ID, appt.Status, in.ReleaseDate, in.PaymentReceived)
	if err != nil {
		return nil, err
	}

	s.log.Info("appointment released",
		zap.String("appointment_id", updated.ID.String()),
		zap.Bool("payment_recorded", updated.PaymentRecorded),
		zap.String("released_by", in.RequestedBy),
	)

	return updated, nil
}

// MarkPaymentNotified flags the payment notification as sent on each
// FINALIZADO appointment of the batch. Individual failures are logged and
// excluded from the returned count; the batch never aborts.
func (s *Service) MarkPaymentNotified(ctx context.Context, ids []uuid.UUID) (int, error) {
	count := 0
	for _, id := range ids {
		if _, err := s.repo.MarkPaymentNotified(ctx, id); err != nil {
			s.log.Warn("payment notification flag not set",
				zap.String("appointment_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		count++
	}
	return count, nil
}
