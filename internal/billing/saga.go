package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/medagenda/clinic-scheduling/internal/faults"
	"github.com/medagenda/clinic-scheduling/internal/scheduling"
)

// AlreadyLinkedError reports appointments that already carry a
// receivable-side link and therefore cannot be billed again.
type AlreadyLinkedError struct {
	AppointmentIDs []uuid.UUID
}

func (e *AlreadyLinkedError) Error() string {
	return fmt.Sprintf("appointments already linked to a receivable: %v", e.AppointmentIDs)
}

func (e *AlreadyLinkedError) Unwrap() error { return faults.ErrConflict }

// ReceivableInput is the payload of the receivable a close-out creates.
type ReceivableInput struct {
	Description    string
	Amount         decimal.Decimal
	CategoryID     uuid.UUID
	PatientID      *uuid.UUID
	InsurerID      *uuid.UUID
	BankAccountID  *uuid.UUID
	DocumentNumber *string
	IssuedOn       time.Time
	DueOn          time.Time
	Notes          *string
}

type CloseOutInput struct {
	AppointmentIDs []uuid.UUID
	Receivable     ReceivableInput
	RequestedBy    string
}

type CloseOutResult struct {
	Receivable   *Receivable
	Appointments []scheduling.Appointment
	Links        []LedgerLink
}

// CloseOut links a batch of FINALIZADO appointments to one pending
// receivable and flags them as payment-recorded, without touching their
// status. The steps run as plain sequential store calls; if anything fails
// after the receivable exists, the saga compensates by deleting the links
// it created and then the receivable, and re-raises the original error.
func (s *Service) CloseOut(ctx context.Context, in CloseOutInput) (*CloseOutResult, error) {
	if len(in.AppointmentIDs) == 0 {
		return nil, faults.Invalidf("at least one appointment is required")
	}
	if !in.Receivable.Amount.IsPositive() {
		return nil, faults.Invalidf("receivable amount must be positive")
	}
	if in.Receivable.CategoryID == uuid.Nil {
		return nil, faults.Invalidf("receivable category is required")
	}

	keys := make([]string, len(in.AppointmentIDs))
	for i, id := range in.AppointmentIDs {
		keys[i] = "lock:closeout:" + id.String()
	}

	var result *CloseOutResult
	err := s.locker.WithLocks(ctx, keys, func(lockCtx context.Context) error {
		var err error
		result, err = s.closeOut(lockCtx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) closeOut(ctx context.Context, in CloseOutInput) (*CloseOutResult, error) {
	appts, err := s.loadBatch(ctx, in.AppointmentIDs)
	if err != nil {
		return nil, err
	}

	if err := s.requireUnlinked(ctx, in.AppointmentIDs); err != nil {
		return nil, err
	}

	pending := &Receivable{
		PatientID:      in.Receivable.PatientID,
		InsurerID:      in.Receivable.InsurerID,
		BankAccountID:  in.Receivable.BankAccountID,
		CategoryID:     in.Receivable.CategoryID,
		DocumentNumber: in.Receivable.DocumentNumber,
		Description:    in.Receivable.Description,
		OriginalAmount: in.Receivable.Amount,
		Discount:       decimal.Zero,
		Interest:       decimal.Zero,
		Penalty:        decimal.Zero,
		SettledAmount:  decimal.Zero,
		Status:         ReceivablePending,
		IssuedOn:       in.Receivable.IssuedOn,
		DueOn:          in.Receivable.DueOn,
		Notes:          in.Receivable.Notes,
		CreatedBy:      in.RequestedBy,
	}
	pending.ComputeNet()

	rec, err := s.receivables.Create(ctx, pending)
	if err != nil {
		return nil, err
	}

	links, updated, err := s.linkAndFlag(ctx, appts, rec)
	if err != nil {
		s.compensate(ctx, in.AppointmentIDs, rec.ID)
		return nil, fmt.Errorf("close-out failed: %w", err)
	}

	s.log.Info("close-out completed",
		zap.String("receivable_id", rec.ID.String()),
		zap.Int("appointments", len(updated)),
		zap.String("requested_by", in.RequestedBy),
	)

	return &CloseOutResult{
		Receivable:   rec,
		Appointments: updated,
		Links:        links,
	}, nil
}

// loadBatch loads every appointment of the batch and validates the
// preconditions: all ids known, all in FINALIZADO.
func (s *Service) loadBatch(ctx context.Context, ids []uuid.UUID) ([]scheduling.Appointment, error) {
	appts, err := s.appointments.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]scheduling.Appointment, len(appts))
	for _, a := range appts {
		byID[a.ID] = a
	}

	ordered := make([]scheduling.Appointment, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, faults.Invalidf("appointment %s does not exist", id)
		}
		if a.Status != scheduling.StatusCompleted {
			return nil, faults.Invalidf("appointment %s is in status %s, only FINALIZADO appointments can be closed out", a.ID, a.Status)
		}
		ordered = append(ordered, a)
	}
	return ordered, nil
}

// requireUnlinked rejects the batch when any appointment already has a
// receivable-side link. No double billing on the same ledger side.
func (s *Service) requireUnlinked(ctx context.Context, ids []uuid.UUID) error {
	var linked []uuid.UUID
	for _, id := range ids {
		_, err := s.links.FindByAppointmentAndSide(ctx, id, SideReceivable)
		switch {
		case err == nil:
			linked = append(linked, id)
		case errors.Is(err, faults.ErrNotFound):
			// free to link
		default:
			return err
		}
	}
	if len(linked) > 0 {
		return &AlreadyLinkedError{AppointmentIDs: linked}
	}
	return nil
}

func (s *Service) linkAndFlag(ctx context.Context, appts []scheduling.Appointment, rec *Receivable) ([]LedgerLink, []scheduling.Appointment, error) {
	links := make([]LedgerLink, 0, len(appts))
	for _, a := range appts {
		recID := rec.ID
		link, err := s.links.Create(ctx, &LedgerLink{
			AppointmentID: a.ID,
			ReceivableID:  &recID,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("link appointment %s: %w", a.ID, err)
		}
		links = append(links, *link)
	}

	updated := make([]scheduling.Appointment, 0, len(appts))
	for _, a := range appts {
		u, err := s.appointments.SetPaymentRecorded(ctx, a.ID, true)
		if err != nil {
			return nil, nil, fmt.Errorf("flag appointment %s as payment recorded: %w", a.ID, err)
		}
		updated = append(updated, *u)
	}

	return links, updated, nil
}

// compensate undoes a partially applied close-out: every link of the batch
// pointing at the just-created receivable is deleted, then the receivable
// itself. Each delete is individually guarded; one failing does not stop
// the rest. Deleting an absent link is a no-op, so retrying compensation is
// safe.
func (s *Service) compensate(ctx context.Context, ids []uuid.UUID, receivableID uuid.UUID) {
	for _, id := range ids {
		link, err := s.links.FindByAppointmentAndSide(ctx, id, SideReceivable)
		if err != nil {
			if !errors.Is(err, faults.ErrNotFound) {
				s.log.Warn("compensation: lookup of ledger link failed",
					zap.String("appointment_id", id.String()),
					zap.Error(err),
				)
			}
			continue
		}
		if link.ReceivableID == nil || *link.ReceivableID != receivableID {
			// Linked to some other receivable; not ours to touch.
			continue
		}
		if err := s.links.Delete(ctx, link.ID); err != nil && !errors.Is(err, faults.ErrNotFound) {
			s.log.Warn("compensation: delete of ledger link failed",
				zap.String("link_id", link.ID.String()),
				zap.Error(err),
			)
		}
	}

	if err := s.receivables.Delete(ctx, receivableID); err != nil && !errors.Is(err, faults.ErrNotFound) {
		s.log.Warn("compensation: delete of receivable failed",
			zap.String("receivable_id", receivableID.String()),
			zap.Error(err),
		)
	}
}
