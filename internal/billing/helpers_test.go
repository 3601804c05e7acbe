package billing_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/medagenda/clinic-scheduling/internal/billing"
	redisclient "github.com/medagenda/clinic-scheduling/internal/redis"
	"github.com/medagenda/clinic-scheduling/internal/scheduling"
)

type fakeReceivables struct {
	byID      map[uuid.UUID]*billing.Receivable
	createErr error
	deleteErr error
}

func newFakeReceivables() *fakeReceivables {
	return &fakeReceivables{byID: make(map[uuid.UUID]*billing.Receivable)}
}

func (f *fakeReceivables) Create(_ context.Context, rec *billing.Receivable) (*billing.Receivable, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	created := *rec
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	f.byID[created.ID] = &created
	out := created
	return &out, nil
}

func (f *fakeReceivables) Delete(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return billing.ErrReceivableNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeLinks struct {
	byID map[uuid.UUID]*billing.LedgerLink
	// failOnCreate fails the Nth Create call (1-based), 0 disables.
	failOnCreate int
	creates      int
	// deleteErr fails the delete of whichever link belongs to the given
	// appointment. Keyed by appointment because link ids are assigned by
	// the store.
	deleteErr map[uuid.UUID]error
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{
		byID:      make(map[uuid.UUID]*billing.LedgerLink),
		deleteErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeLinks) Create(_ context.Context, link *billing.LedgerLink) (*billing.LedgerLink, error) {
	f.creates++
	if f.failOnCreate > 0 && f.creates == f.failOnCreate {
		return nil, errors.New("link store unavailable")
	}
	// Unique constraint on (appointment, side).
	for _, existing := range f.byID {
		if existing.AppointmentID != link.AppointmentID {
			continue
		}
		if link.ReceivableID != nil && existing.ReceivableID != nil {
			return nil, billing.ErrAlreadyLinked
		}
		if link.PayableID != nil && existing.PayableID != nil {
			return nil, billing.ErrAlreadyLinked
		}
	}
	created := *link
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	created.CreatedAt = time.Now()
	f.byID[created.ID] = &created
	out := created
	return &out, nil
}

func (f *fakeLinks) Delete(_ context.Context, id uuid.UUID) error {
	link, ok := f.byID[id]
	if !ok {
		return billing.ErrLinkNotFound
	}
	if err, ok := f.deleteErr[link.AppointmentID]; ok {
		return err
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeLinks) FindByAppointmentAndSide(_ context.Context, appointmentID uuid.UUID, side billing.LedgerSide) (*billing.LedgerLink, error) {
	for _, l := range f.byID {
		if l.AppointmentID != appointmentID {
			continue
		}
		if side == billing.SideReceivable && l.ReceivableID != nil {
			out := *l
			return &out, nil
		}
		if side == billing.SidePayable && l.PayableID != nil {
			out := *l
			return &out, nil
		}
	}
	return nil, billing.ErrLinkNotFound
}

func (f *fakeLinks) linksTo(receivableID uuid.UUID) int {
	count := 0
	for _, l := range f.byID {
		if l.ReceivableID != nil && *l.ReceivableID == receivableID {
			count++
		}
	}
	return count
}

type fakeCategories struct {
	categories []billing.Category
	err        error
}

func (f *fakeCategories) ListActiveByType(_ context.Context, categoryType billing.CategoryType) ([]billing.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	var result []billing.Category
	for _, c := range f.categories {
		if c.Type == categoryType && c.Active {
			result = append(result, c)
		}
	}
	return result, nil
}

type fakePrices struct {
	byService map[uuid.UUID]decimal.Decimal
}

func newFakePrices() *fakePrices {
	return &fakePrices{byService: make(map[uuid.UUID]decimal.Decimal)}
}

func (f *fakePrices) GetByServiceID(_ context.Context, serviceID uuid.UUID) (*billing.PriceEntry, error) {
	price, ok := f.byService[serviceID]
	if !ok {
		return nil, billing.ErrPriceNotFound
	}
	return &billing.PriceEntry{ServiceID: serviceID, UnitPrice: price}, nil
}

type fakeAppointments struct {
	byID map[uuid.UUID]*scheduling.Appointment
	// flagErr fails SetPaymentRecorded for the given appointment.
	flagErr map[uuid.UUID]error
}

func newFakeAppointments(appts ...scheduling.Appointment) *fakeAppointments {
	f := &fakeAppointments{
		byID:    make(map[uuid.UUID]*scheduling.Appointment),
		flagErr: make(map[uuid.UUID]error),
	}
	for i := range appts {
		a := appts[i]
		f.byID[a.ID] = &a
	}
	return f
}

func (f *fakeAppointments) ListByIDs(_ context.Context, ids []uuid.UUID) ([]scheduling.Appointment, error) {
	var result []scheduling.Appointment
	for _, id := range ids {
		if a, ok := f.byID[id]; ok {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (f *fakeAppointments) SetPaymentRecorded(_ context.Context, id uuid.UUID, recorded bool) (*scheduling.Appointment, error) {
	if err, ok := f.flagErr[id]; ok {
		return nil, err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	a.PaymentRecorded = recorded
	out := *a
	return &out, nil
}

type fakeLocker struct{}

func (fakeLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeLocker) WithLocks(ctx context.Context, _ []string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ redisclient.Locker = fakeLocker{}

type fixture struct {
	receivables *fakeReceivables
	links       *fakeLinks
	categories  *fakeCategories
	prices      *fakePrices
	appts       *fakeAppointments
	svc         *billing.Service
}

func newFixture(appts ...scheduling.Appointment) *fixture {
	f := &fixture{
		receivables: newFakeReceivables(),
		links:       newFakeLinks(),
		categories:  &fakeCategories{},
		prices:      newFakePrices(),
		appts:       newFakeAppointments(appts...),
	}
	f.svc = billing.NewService(f.receivables, f.links, f.categories, f.prices, f.appts, fakeLocker{}, nil, zap.NewNop())
	return f
}

func finishedAppt() scheduling.Appointment {
	start := time.Now().AddDate(0, 0, -14)
	return scheduling.Appointment{
		ID:             uuid.New(),
		PatientID:      uuid.New(),
		ProfessionalID: uuid.New(),
		ServiceID:      uuid.New(),
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		Status:         scheduling.StatusCompleted,
	}
}

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
