package scheduling

import (
	"go.uber.org/zap"

	redisclient "github.com/medagenda/clinic-scheduling/internal/redis"
)

// Service runs the appointment lifecycle workflows: single and monthly
// release, conflict checks, series resolution and payment-notification
// marking.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	recorder ReceivableRecorder
	log      *zap.Logger
}

// NewService wires the scheduling workflows. recorder may be nil when the
// deployment runs without a billing backend; aggregated receivables are then
// skipped.
func NewService(repo Repository, locker redisclient.Locker, recorder ReceivableRecorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		locker:   locker,
		recorder: recorder,
		log:      log,
	}
}
