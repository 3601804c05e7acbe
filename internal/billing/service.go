package billing

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/medagenda/clinic-scheduling/internal/redis"
)

// Service runs the financial reconciliation workflows: the close-out saga
// linking a batch of appointments to one receivable, and the aggregated
// receivable emitted by monthly release.
type Service struct {
	receivables  ReceivableStore
	links        LinkStore
	categories   CategoryStore
	prices       PriceStore
	appointments AppointmentStore
	locker       redisclient.Locker
	log          *zap.Logger

	// revenueCategoryID pins the category used for release receivables.
	// Nil falls back to the name/code heuristic over active revenue
	// categories, kept as a migration shim.
	revenueCategoryID *uuid.UUID
}

func NewService(
	receivables ReceivableStore,
	links LinkStore,
	categories CategoryStore,
	prices PriceStore,
	appointments AppointmentStore,
	locker redisclient.Locker,
	revenueCategoryID *uuid.UUID,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		receivables:       receivables,
		links:             links,
		categories:        categories,
		prices:            prices,
		appointments:      appointments,
		locker:            locker,
		revenueCategoryID: revenueCategoryID,
		log:               log,
	}
}
