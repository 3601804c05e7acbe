package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medagenda/clinic-scheduling/internal/faults"
)

// ReleaseCharge is what the billing side needs to turn one monthly release
// into a single aggregated, already-settled receivable.
type ReleaseCharge struct {
	PatientID   uuid.UUID
	ServiceID   uuid.UUID
	Month       YearMonth
	Count       int
	SettledOn   time.Time
	RequestedBy string
}

// ReceivableRecorder is the billing collaborator of the bulk release
// workflow. Its failure never rolls back releases that already happened:
// administrative progress must not be blocked by billing setup issues.
type ReceivableRecorder interface {
	RecordReleaseReceivable(ctx context.Context, charge ReleaseCharge) error
}

type ReleaseMonthInput struct {
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	Month          YearMonth
	ReleaseDate    time.Time
	// PaymentReceived is recorded on every released appointment.
	PaymentReceived bool
	AdvancePayment  bool
	// RegisterReceivable asks for one aggregated receivable covering the
	// whole released group. Only honored when PaymentReceived is set.
	RegisterReceivable bool
	RequestedBy        string
}

type ReleaseMonthResult struct {
	Released []Appointment
	Count    int
}

// ReleaseMonth releases every still-releasable appointment of one recurring
// group in the target month. The per-appointment transitions are sequential
// and not atomic: a failure partway aborts the call citing the failing
// appointment's date, and earlier releases stay applied. Calling again for
// the same month only touches what is still SOLICITADO/AGENDADO.
func (s *Service) ReleaseMonth(ctx context.Context, in ReleaseMonthInput) (*ReleaseMonthResult, error) {
	if in.Month.IsZero() {
		return nil, faults.Invalidf("target month is required")
	}
	if err := validateRelease(in.ReleaseDate, in.PaymentReceived, in.AdvancePayment); err != nil {
		return nil, err
	}

	var result *ReleaseMonthResult

	key := groupLockKey(in.PatientID, in.ProfessionalID, in.ServiceID, in.Month)
	err := s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		_, releasable, err := s.MonthlyGroup(lockCtx, in.PatientID, in.ProfessionalID, in.ServiceID, in.Month)
		if err != nil {
			return err
		}

		released := make([]Appointment, 0, len(releasable))
		for _, a := range releasable {
			updated, err := s.repo.Release(lockCtx, a.ID, a.Status, in.ReleaseDate, in.PaymentReceived)
			if err != nil {
				// Earlier releases are kept; there is no compensation
				// for administrative transitions.
				return fmt.Errorf("release failed for the appointment on %s: %w",
					a.StartTime.Format("02/01/2006"), err)
			}
			released = append(released, *updated)
		}

		s.log.Info("monthly group released",
			zap.String("patient_id", in.PatientID.String()),
			zap.String("professional_id", in.ProfessionalID.String()),
			zap.String("service_id", in.ServiceID.String()),
			zap.String("month", in.Month.String()),
			zap.Int("count", len(released)),
			zap.String("released_by", in.RequestedBy),
		)

		if in.RegisterReceivable && in.PaymentReceived && len(released) > 0 {
			s.recordAggregatedReceivable(lockCtx, in, len(released))
		}

		result = &ReleaseMonthResult{Released: released, Count: len(released)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// recordAggregatedReceivable asks billing for one settled receivable over
// the released group. Failures here are logged and swallowed: the releases
// already succeeded and must not be undone over a missing price entry or
// category.
func (s *Service) recordAggregatedReceivable(ctx context.Context, in ReleaseMonthInput, count int) {
	if s.recorder == nil {
		s.log.Warn("aggregated receivable skipped: no billing recorder configured",
			zap.String("month", in.Month.String()),
		)
		return
	}

	err := s.recorder.RecordReleaseReceivable(ctx, ReleaseCharge{
		PatientID:   in.PatientID,
		ServiceID:   in.ServiceID,
		Month:       in.Month,
		Count:       count,
		SettledOn:   in.ReleaseDate,
		RequestedBy: in.RequestedBy,
	})
	if err != nil {
		s.log.Warn("aggregated receivable not created",
			zap.String("patient_id", in.PatientID.String()),
			zap.String("service_id", in.ServiceID.String()),
			zap.String("month", in.Month.String()),
			zap.Int("count", count),
			zap.Error(err),
		)
	}
}

func groupLockKey(patientID, professionalID, serviceID uuid.UUID, month YearMonth) string {
	return fmt.Sprintf("lock:release:%s:%s:%s:%s", patientID, professionalID, serviceID, month)
}
