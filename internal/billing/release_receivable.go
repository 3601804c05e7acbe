package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/medagenda/clinic-scheduling/internal/faults"
	"github.com/medagenda/clinic-scheduling/internal/scheduling"
)

// RecordReleaseReceivable creates the single aggregated receivable for one
// monthly release: unit price times released count, already settled in cash
// on the release date. It implements scheduling.ReceivableRecorder; the
// caller swallows failures, so errors here only describe what was missing.
func (s *Service) RecordReleaseReceivable(ctx context.Context, charge scheduling.ReleaseCharge) error {
	if charge.Count <= 0 {
		return faults.Invalidf("release charge needs a positive appointment count")
	}

	price, err := s.prices.GetByServiceID(ctx, charge.ServiceID)
	if err != nil {
		return fmt.Errorf("price for service %s: %w", charge.ServiceID, err)
	}

	category, err := s.resolveRevenueCategory(ctx)
	if err != nil {
		return err
	}

	amount := price.UnitPrice.Mul(decimal.NewFromInt(int64(charge.Count)))
	settledOn := charge.SettledOn
	method := MethodCash
	patientID := charge.PatientID

	rec := &Receivable{
		PatientID:   &patientID,
		CategoryID:  category,
		Description: fmt.Sprintf("Monthly release %s, patient %s, service %s, %d appointments", charge.Month, charge.PatientID, charge.ServiceID, charge.Count),

		OriginalAmount: amount,
		Discount:       decimal.Zero,
		Interest:       decimal.Zero,
		Penalty:        decimal.Zero,
		SettledAmount:  amount,

		Status:    ReceivableSettled,
		IssuedOn:  settledOn,
		DueOn:     settledOn,
		SettledOn: &settledOn,
		Method:    &method,

		CreatedBy: charge.RequestedBy,
	}
	rec.ComputeNet()

	created, err := s.receivables.Create(ctx, rec)
	if err != nil {
		return fmt.Errorf("create aggregated receivable: %w", err)
	}

	s.log.Info("aggregated release receivable created",
		zap.String("receivable_id", created.ID.String()),
		zap.String("month", charge.Month.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.Int("appointments", charge.Count),
	)

	return nil
}

// resolveRevenueCategory returns the configured revenue category when one
// is pinned, otherwise falls back to the legacy name/code heuristic over
// active revenue categories.
func (s *Service) resolveRevenueCategory(ctx context.Context) (uuid.UUID, error) {
	if s.revenueCategoryID != nil {
		return *s.revenueCategoryID, nil
	}

	categories, err := s.categories.ListActiveByType(ctx, CategoryRevenue)
	if err != nil {
		return uuid.Nil, err
	}

	for _, c := range categories {
		if matchesRevenueHeuristic(c) {
			return c.ID, nil
		}
	}

	return uuid.Nil, faults.Missingf("revenue category", "no active revenue category matches the consultation heuristic")
}

// matchesRevenueHeuristic is the migration shim for deployments without a
// pinned category: substring match on the name, exact match on the code.
func matchesRevenueHeuristic(c Category) bool {
	name := strings.ToLower(c.Name)
	if strings.Contains(name, "particular") || strings.Contains(name, "consulta") {
		return true
	}
	code := strings.ToUpper(c.Code)
	return code == "PART" || code == "CONS"
}
