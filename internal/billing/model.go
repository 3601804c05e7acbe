package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReceivableStatus string

const (
	ReceivablePending   ReceivableStatus = "PENDENTE"
	ReceivablePartial   ReceivableStatus = "PARCIAL"
	ReceivableSettled   ReceivableStatus = "RECEBIDO"
	ReceivableOverdue   ReceivableStatus = "VENCIDO"
	ReceivableCancelled ReceivableStatus = "CANCELADO"
)

type SettlementMethod string

const (
	MethodCash     SettlementMethod = "DINHEIRO"
	MethodPix      SettlementMethod = "PIX"
	MethodCard     SettlementMethod = "CARTAO"
	MethodTransfer SettlementMethod = "TRANSFERENCIA"
	MethodSlip     SettlementMethod = "BOLETO"
)

// Receivable is money owed to the clinic. The core creates receivables
// (pending ones from close-out, settled ones from monthly release) and
// deletes them as saga compensation; settling partial payments is another
// workflow's job.
type Receivable struct {
	ID             uuid.UUID
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
	InsurerID      *uuid.UUID
	BankAccountID  *uuid.UUID
	CategoryID     uuid.UUID
	DocumentNumber *string
	Description    string

	OriginalAmount decimal.Decimal
	Discount       decimal.Decimal
	Interest       decimal.Decimal
	Penalty        decimal.Decimal
	// NetAmount = OriginalAmount - Discount + Interest + Penalty, computed
	// once at creation and never recomputed here.
	NetAmount     decimal.Decimal
	SettledAmount decimal.Decimal

	Status    ReceivableStatus
	IssuedOn  time.Time
	DueOn     time.Time
	SettledOn *time.Time
	Method    *SettlementMethod
	Notes     *string

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ComputeNet fixes NetAmount from the component amounts.
func (r *Receivable) ComputeNet() {
	r.NetAmount = r.OriginalAmount.Sub(r.Discount).Add(r.Interest).Add(r.Penalty)
}

// LedgerSide distinguishes the receivable and payable sides of a ledger
// link. An appointment can hold at most one link per side.
type LedgerSide string

const (
	SideReceivable LedgerSide = "receivable"
	SidePayable    LedgerSide = "payable"
)

// LedgerLink ties one appointment to at most one receivable and at most one
// payable. Links are created by the close-out saga and deleted only as
// compensation; corrections are delete+recreate, never in-place updates.
type LedgerLink struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	ReceivableID  *uuid.UUID
	PayableID     *uuid.UUID
	CreatedAt     time.Time
}

type CategoryType string

const (
	CategoryRevenue CategoryType = "RECEITA"
	CategoryExpense CategoryType = "DESPESA"
)

type Category struct {
	ID     uuid.UUID
	Type   CategoryType
	Code   string
	Name   string
	Active bool
}

// PriceEntry is the per-service unit price used for aggregated release
// receivables.
type PriceEntry struct {
	ServiceID uuid.UUID
	UnitPrice decimal.Decimal
}
