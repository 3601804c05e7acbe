package scheduling_test

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/medagenda/clinic-scheduling/internal/redis"
	"github.com/medagenda/clinic-scheduling/internal/scheduling"
)

// fakeRepo is an in-memory appointment store mirroring the pg repository's
// guards (status CAS on release, FINALIZADO-only notification marking).
type fakeRepo struct {
	appts      map[uuid.UUID]*scheduling.Appointment
	releaseErr map[uuid.UUID]error
}

func newFakeRepo(appts ...scheduling.Appointment) *fakeRepo {
	r := &fakeRepo{
		appts:      make(map[uuid.UUID]*scheduling.Appointment),
		releaseErr: make(map[uuid.UUID]error),
	}
	for i := range appts {
		a := appts[i]
		r.appts[a.ID] = &a
	}
	return r
}

func (r *fakeRepo) failReleaseOf(id uuid.UUID, err error) {
	r.releaseErr[id] = err
}

func clone(a *scheduling.Appointment) *scheduling.Appointment {
	c := *a
	return &c
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	a, ok := r.appts[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	return clone(a), nil
}

func (r *fakeRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]scheduling.Appointment, error) {
	var result []scheduling.Appointment
	for _, id := range ids {
		if a, ok := r.appts[id]; ok {
			result = append(result, *clone(a))
		}
	}
	return result, nil
}

func (r *fakeRepo) Search(_ context.Context, f scheduling.SearchFilter) ([]scheduling.Appointment, error) {
	var result []scheduling.Appointment
	for _, a := range r.appts {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.ProfessionalID != nil && a.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.ServiceID != nil && a.ServiceID != *f.ServiceID {
			continue
		}
		if f.From != nil && a.StartTime.Before(*f.From) {
			continue
		}
		if f.To != nil && a.StartTime.After(*f.To) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
			continue
		}
		result = append(result, *clone(a))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (r *fakeRepo) FindOverlapping(_ context.Context, q scheduling.OverlapQuery) ([]scheduling.Appointment, error) {
	var result []scheduling.Appointment
	for _, a := range r.appts {
		if a.Status == scheduling.StatusCancelled {
			continue
		}
		if q.ExcludeID != nil && a.ID == *q.ExcludeID {
			continue
		}
		if !a.StartTime.Before(q.End) || !a.EndTime.After(q.Start) {
			continue
		}
		shared := a.ProfessionalID == q.ProfessionalID || a.PatientID == q.PatientID
		if !shared && q.ResourceID != nil && a.ResourceID != nil && *a.ResourceID == *q.ResourceID {
			shared = true
		}
		if shared {
			result = append(result, *clone(a))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (r *fakeRepo) Release(_ context.Context, id uuid.UUID, from scheduling.Status, releasedOn time.Time, paymentRecorded bool) (*scheduling.Appointment, error) {
	if err, ok := r.releaseErr[id]; ok {
		return nil, err
	}
	a, ok := r.appts[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	if a.Status != from {
		return nil, scheduling.ErrStatusChanged
	}
	a.Status = scheduling.StatusReleased
	a.PaymentRecorded = paymentRecorded
	released := releasedOn
	a.ReleasedOn = &released
	a.UpdatedAt = time.Now()
	return clone(a), nil
}

func (r *fakeRepo) MarkPaymentNotified(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	a, ok := r.appts[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	if a.Status != scheduling.StatusCompleted {
		return nil, scheduling.ErrNotNotifiable
	}
	a.PaymentNotified = true
	a.UpdatedAt = time.Now()
	return clone(a), nil
}

func (r *fakeRepo) SetPaymentRecorded(_ context.Context, id uuid.UUID, recorded bool) (*scheduling.Appointment, error) {
	a, ok := r.appts[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	a.PaymentRecorded = recorded
	a.UpdatedAt = time.Now()
	return clone(a), nil
}

// fakeLocker hands out the critical section immediately, or refuses every
// acquisition when refuse is set.
type fakeLocker struct {
	refuse bool
	keys   []string
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return l.WithLocks(ctx, []string{key}, fn)
}

func (l *fakeLocker) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	if l.refuse {
		return redisclient.ErrLockNotAcquired
	}
	l.keys = append(l.keys, keys...)
	return fn(ctx)
}

// fakeRecorder captures release charges and optionally fails.
type fakeRecorder struct {
	charges []scheduling.ReleaseCharge
	err     error
}

func (r *fakeRecorder) RecordReleaseReceivable(_ context.Context, charge scheduling.ReleaseCharge) error {
	if r.err != nil {
		return r.err
	}
	r.charges = append(r.charges, charge)
	return nil
}

func newTestService(repo *fakeRepo, recorder scheduling.ReceivableRecorder) *scheduling.Service {
	return scheduling.NewService(repo, &fakeLocker{}, recorder, zap.NewNop())
}

func containsStatus(statuses []scheduling.Status, s scheduling.Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// appointment builders

type apptOpt func(*scheduling.Appointment)

func withStatus(s scheduling.Status) apptOpt {
	return func(a *scheduling.Appointment) { a.Status = s }
}

func withResource(id uuid.UUID) apptOpt {
	return func(a *scheduling.Appointment) { a.ResourceID = &id }
}

func newAppt(patient, professional, service uuid.UUID, start time.Time, opts ...apptOpt) scheduling.Appointment {
	a := scheduling.Appointment{
		ID:             uuid.New(),
		PatientID:      patient,
		ProfessionalID: professional,
		ServiceID:      service,
		StartTime:      start,
		EndTime:        start.Add(50 * time.Minute),
		Status:         scheduling.StatusScheduled,
		CreatedAt:      start.AddDate(0, -1, 0),
		UpdatedAt:      start.AddDate(0, -1, 0),
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}
