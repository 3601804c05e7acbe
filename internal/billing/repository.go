package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/medagenda/clinic-scheduling/internal/faults"
	"github.com/medagenda/clinic-scheduling/internal/scheduling"
)

var (
	ErrReceivableNotFound = &faults.NotFoundError{Resource: "receivable"}
	ErrLinkNotFound       = &faults.NotFoundError{Resource: "ledger link"}
	ErrPriceNotFound      = &faults.NotFoundError{Resource: "price entry"}

	// ErrAlreadyLinked is the store-level unique constraint on
	// (appointment, ledger side) firing, turning a concurrent double-link
	// race into a detectable conflict at write time.
	ErrAlreadyLinked = &faults.ConflictError{Msg: "appointment already linked on this ledger side"}
)

type ReceivableStore interface {
	Create(ctx context.Context, rec *Receivable) (*Receivable, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type LinkStore interface {
	Create(ctx context.Context, link *LedgerLink) (*LedgerLink, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// FindByAppointmentAndSide returns the appointment's link carrying a
	// non-null reference on the given side, or ErrLinkNotFound.
	FindByAppointmentAndSide(ctx context.Context, appointmentID uuid.UUID, side LedgerSide) (*LedgerLink, error)
}

type CategoryStore interface {
	ListActiveByType(ctx context.Context, categoryType CategoryType) ([]Category, error)
}

type PriceStore interface {
	GetByServiceID(ctx context.Context, serviceID uuid.UUID) (*PriceEntry, error)
}

// AppointmentStore is the slice of the scheduling store the billing
// workflows need: loading batches and flipping the payment-recorded flag.
type AppointmentStore interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]scheduling.Appointment, error)
	SetPaymentRecorded(ctx context.Context, id uuid.UUID, recorded bool) (*scheduling.Appointment, error)
}
