package driving

import (
	"context"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

// Scheduler runs sync cycles and backlog drains on their intervals for
// the serve command.
type Scheduler interface {
	// Start blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for in-flight jobs to finish.
	Stop() error

	// RecentRuns returns the newest job runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]domain.JobRun, error)
}
