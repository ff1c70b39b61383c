package driven

import (
	"context"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

// SchedulerStore keeps the serve loop's job schedules and run log so a
// restarted process picks up where the last one stopped.
type SchedulerStore interface {
	// GetJob returns nil and no error for a job that was never saved.
	GetJob(ctx context.Context, id domain.JobID) (*domain.Job, error)

	ListJobs(ctx context.Context) ([]domain.Job, error)

	// SaveJob upserts by ID.
	SaveJob(ctx context.Context, job *domain.Job) error

	RecordRun(ctx context.Context, run *domain.JobRun) error

	// RecentRuns returns up to limit runs across all jobs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]domain.JobRun, error)

	// PruneRuns keeps the newest keep runs of each job.
	PruneRuns(ctx context.Context, keep int) error
}
