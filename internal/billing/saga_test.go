package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medagenda/clinic-scheduling/internal/billing"
	"github.com/medagenda/clinic-scheduling/internal/faults"
	"github.com/medagenda/clinic-scheduling/internal/scheduling"
)

func closeOutInput(ids ...uuid.UUID) billing.CloseOutInput {
	return billing.CloseOutInput{
		AppointmentIDs: ids,
		Receivable: billing.ReceivableInput{
			Description: "Fechamento consultas Março",
			Amount:      money("250.00"),
			CategoryID:  uuid.New(),
			IssuedOn:    time.Now(),
			DueOn:       time.Now().AddDate(0, 0, 30),
		},
		RequestedBy: "recepcao",
	}
}

func TestCloseOut_LinksBatchToOneReceivable(t *testing.T) {
	a1, a2 := finishedAppt(), finishedAppt()
	f := newFixture(a1, a2)

	in := closeOutInput(a1.ID, a2.ID)
	result, err := f.svc.CloseOut(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, result.Receivable)
	rec := result.Receivable
	assert.Equal(t, billing.ReceivablePending, rec.Status)
	assert.True(t, rec.OriginalAmount.Equal(money("250.00")))
	assert.True(t, rec.NetAmount.Equal(money("250.00")))
	assert.True(t, rec.SettledAmount.IsZero())
	assert.True(t, rec.Discount.IsZero())

	require.Len(t, result.Links, 2)
	for _, link := range result.Links {
		require.NotNil(t, link.ReceivableID)
		assert.Equal(t, rec.ID, *link.ReceivableID)
		assert.Nil(t, link.PayableID)
	}

	require.Len(t, result.Appointments, 2)
	for _, a := range result.Appointments {
		assert.True(t, a.PaymentRecorded)
		assert.Equal(t, scheduling.StatusCompleted, a.Status, "close-out must not change the status")
	}

	assert.Len(t, f.receivables.byID, 1)
	assert.Equal(t, 2, f.links.linksTo(rec.ID))
}

func TestCloseOut_PreservesRequestOrder(t *testing.T) {
	a1, a2, a3 := finishedAppt(), finishedAppt(), finishedAppt()
	f := newFixture(a1, a2, a3)

	result, err := f.svc.CloseOut(context.Background(), closeOutInput(a3.ID, a1.ID, a2.ID))
	require.NoError(t, err)

	require.Len(t, result.Appointments, 3)
	assert.Equal(t, a3.ID, result.Appointments[0].ID)
	assert.Equal(t, a1.ID, result.Appointments[1].ID)
	assert.Equal(t, a2.ID, result.Appointments[2].ID)
}

func TestCloseOut_ValidationFailures(t *testing.T) {
	a := finishedAppt()

	cases := []struct {
		name   string
		mutate func(*billing.CloseOutInput)
	}{
		{"empty batch", func(in *billing.CloseOutInput) { in.AppointmentIDs = nil }},
		{"zero amount", func(in *billing.CloseOutInput) { in.Receivable.Amount = money("0") }},
		{"negative amount", func(in *billing.CloseOutInput) { in.Receivable.Amount = money("-10.00") }},
		{"missing category", func(in *billing.CloseOutInput) { in.Receivable.CategoryID = uuid.Nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(a)
			in := closeOutInput(a.ID)
			tc.mutate(&in)

			_, err := f.svc.CloseOut(context.Background(), in)
			require.ErrorIs(t, err, faults.ErrValidation)
			assert.Empty(t, f.receivables.byID)
		})
	}
}

func TestCloseOut_UnknownAppointmentRejectsBatch(t *testing.T) {
	a := finishedAppt()
	f := newFixture(a)

	_, err := f.svc.CloseOut(context.Background(), closeOutInput(a.ID, uuid.New()))
	require.ErrorIs(t, err, faults.ErrValidation)
	assert.Empty(t, f.receivables.byID)
	assert.Empty(t, f.links.byID)
}

func TestCloseOut_RejectsNonFinishedAppointment(t *testing.T) {
	done := finishedAppt()
	pending := finishedAppt()
	pending.Status = scheduling.StatusReleased
	f := newFixture(done, pending)

	_, err := f.svc.CloseOut(context.Background(), closeOutInput(done.ID, pending.ID))
	require.ErrorIs(t, err, faults.ErrValidation)
	assert.Contains(t, err.Error(), string(scheduling.StatusReleased))
	assert.Empty(t, f.receivables.byID)
}

func TestCloseOut_RejectsAlreadyLinkedAppointments(t *testing.T) {
	a1, a2 := finishedAppt(), finishedAppt()
	f := newFixture(a1, a2)

	otherRec := uuid.New()
	_, err := f.links.Create(context.Background(), &billing.LedgerLink{
		AppointmentID: a2.ID,
		ReceivableID:  &otherRec,
	})
	require.NoError(t, err)

	_, err = f.svc.CloseOut(context.Background(), closeOutInput(a1.ID, a2.ID))

	var linked *billing.AlreadyLinkedError
	require.ErrorAs(t, err, &linked)
	assert.Equal(t, []uuid.UUID{a2.ID}, linked.AppointmentIDs)
	require.ErrorIs(t, err, faults.ErrConflict)

	assert.Empty(t, f.receivables.byID, "no receivable may exist after rejection")
	assert.Equal(t, 1, len(f.links.byID), "the pre-existing link stays untouched")
}

func TestCloseOut_PayableLinkDoesNotBlock(t *testing.T) {
	a := finishedAppt()
	f := newFixture(a)

	payableID := uuid.New()
	_, err := f.links.Create(context.Background(), &billing.LedgerLink{
		AppointmentID: a.ID,
		PayableID:     &payableID,
	})
	require.NoError(t, err)

	result, err := f.svc.CloseOut(context.Background(), closeOutInput(a.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, f.links.linksTo(result.Receivable.ID))
}

func TestCloseOut_CompensatesOnLinkFailure(t *testing.T) {
	a1, a2 := finishedAppt(), finishedAppt()
	f := newFixture(a1, a2)
	f.links.failOnCreate = 2

	_, err := f.svc.CloseOut(context.Background(), closeOutInput(a1.ID, a2.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close-out failed")
	assert.Contains(t, err.Error(), "link store unavailable")

	assert.Empty(t, f.receivables.byID, "receivable must be deleted by compensation")
	assert.Empty(t, f.links.byID, "the first link must be deleted by compensation")
}

func TestCloseOut_CompensatesOnFlagFailure(t *testing.T) {
	a1, a2 := finishedAppt(), finishedAppt()
	f := newFixture(a1, a2)
	f.appts.flagErr[a2.ID] = errors.New("connection reset")

	_, err := f.svc.CloseOut(context.Background(), closeOutInput(a1.ID, a2.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close-out failed")

	assert.Empty(t, f.receivables.byID)
	assert.Empty(t, f.links.byID, "both links must be deleted by compensation")
}

func TestCloseOut_CompensationSparesForeignLinks(t *testing.T) {
	a1, a2 := finishedAppt(), finishedAppt()
	f := newFixture(a1, a2)

	// a2 is linked on the payable side; that link belongs to someone else.
	payableID := uuid.New()
	foreign, err := f.links.Create(context.Background(), &billing.LedgerLink{
		AppointmentID: a2.ID,
		PayableID:     &payableID,
	})
	require.NoError(t, err)

	f.appts.flagErr[a1.ID] = errors.New("connection reset")

	_, err = f.svc.CloseOut(context.Background(), closeOutInput(a1.ID, a2.ID))
	require.Error(t, err)

	_, ok := f.links.byID[foreign.ID]
	assert.True(t, ok, "compensation must not delete links of other documents")
	assert.Empty(t, f.receivables.byID)
}

func TestCloseOut_CompensationContinuesPastFailingDelete(t *testing.T) {
	a1, a2, a3 := finishedAppt(), finishedAppt(), finishedAppt()
	f := newFixture(a1, a2, a3)
	f.appts.flagErr[a3.ID] = errors.New("connection reset")
	f.links.deleteErr[a1.ID] = errors.New("delete timeout")

	_, err := f.svc.CloseOut(context.Background(), closeOutInput(a1.ID, a2.ID, a3.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close-out failed")
	assert.Contains(t, err.Error(), "connection reset", "the original error surfaces, not the compensation one")

	// One link delete failed; the other two links and the receivable must
	// still be gone.
	assert.Empty(t, f.receivables.byID)
	require.Len(t, f.links.byID, 1)
	for _, link := range f.links.byID {
		assert.Equal(t, a1.ID, link.AppointmentID)
	}
}

func TestCloseOut_CompensationReceivableDeleteFailureKeepsOriginalError(t *testing.T) {
	a1, a2 := finishedAppt(), finishedAppt()
	f := newFixture(a1, a2)
	f.appts.flagErr[a2.ID] = errors.New("connection reset")
	f.receivables.deleteErr = errors.New("delete timeout")

	_, err := f.svc.CloseOut(context.Background(), closeOutInput(a1.ID, a2.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close-out failed")
	assert.Contains(t, err.Error(), "connection reset")

	// Links are compensated even when the receivable delete fails.
	assert.Empty(t, f.links.byID)
	assert.Len(t, f.receivables.byID, 1)
}

func TestCloseOut_ReceivableCreateFailureNeedsNoCompensation(t *testing.T) {
	a := finishedAppt()
	f := newFixture(a)
	f.receivables.createErr = errors.New("insert failed")

	_, err := f.svc.CloseOut(context.Background(), closeOutInput(a.ID))
	require.Error(t, err)
	assert.Empty(t, f.links.byID)
	assert.False(t, f.appts.byID[a.ID].PaymentRecorded)
}
