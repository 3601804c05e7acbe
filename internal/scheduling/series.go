package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/medagenda/clinic-scheduling/internal/faults"
)

// An appointment series is not stored anywhere: it is the set of
// appointments sharing {patient, professional, service}, resolved on demand.

const (
	monthlyGroupLimit = 100
	seriesLimit       = 500
)

// nonCancelledStatuses filters series membership.
var nonCancelledStatuses = []Status{
	StatusRequested, StatusScheduled, StatusReleased, StatusAttended, StatusCompleted,
}

// MonthlyGroup resolves the appointments of one recurring group inside a
// calendar month, plus the subset still eligible for release. The group
// being empty is a not-found condition; the group existing with nothing
// releasable is a validation condition, so callers can tell "wrong month"
// apart from "already processed".
func (s *Service) MonthlyGroup(ctx context.Context, patientID, professionalID, serviceID uuid.UUID, month YearMonth) (group, releasable []Appointment, err error) {
	start, end := month.Window(nil)

	group, err = s.repo.Search(ctx, SearchFilter{
		PatientID:      &patientID,
		ProfessionalID: &professionalID,
		ServiceID:      &serviceID,
		From:           &start,
		To:             &end,
		Limit:          monthlyGroupLimit,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(group) == 0 {
		return nil, nil, faults.Missingf("appointment group", "no appointments for this patient, professional and service in %s", month)
	}

	for _, a := range group {
		if a.Releasable() {
			releasable = append(releasable, a)
		}
	}
	if len(releasable) == 0 {
		return nil, nil, faults.Invalidf("no releasable appointments in %s: all were already processed or cancelled", month)
	}

	return group, releasable, nil
}

// SeriesInfo supports the three deletion modes offered for a recurring
// appointment: only this one, this and future ones, or the whole series.
type SeriesInfo struct {
	// SeriesCount is the number of non-cancelled appointments in the
	// series, the target included.
	SeriesCount int
	// FutureCount is the number of series members strictly after the
	// target. "This and future" deletion affects FutureCount+1 rows.
	FutureCount int
	// WholeSeriesAvailable is false when the series has a single member;
	// whole-series deletion then collapses into single deletion.
	WholeSeriesAvailable bool
}

// SeriesForDeletion resolves the series the appointment belongs to and the
// counts backing the deletion-mode choice. Deletion itself happens outside
// this core.
func (s *Service) SeriesForDeletion(ctx context.Context, appointmentID uuid.UUID) (*SeriesInfo, error) {
	target, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	series, err := s.repo.Search(ctx, SearchFilter{
		PatientID:      &target.PatientID,
		ProfessionalID: &target.ProfessionalID,
		ServiceID:      &target.ServiceID,
		Statuses:       nonCancelledStatuses,
		Limit:          seriesLimit,
	})
	if err != nil {
		return nil, err
	}

	info := &SeriesInfo{}
	for _, a := range series {
		info.SeriesCount++
		if a.StartTime.After(target.StartTime) {
			info.FutureCount++
		}
	}
	info.WholeSeriesAvailable = info.SeriesCount > 1

	return info, nil
}
