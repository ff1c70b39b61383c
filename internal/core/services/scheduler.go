package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/core/ports/driving"
	"github.com/custodia-labs/planwatch/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// runsKept is the number of run records kept per job.
const runsKept = 100

// scheduledJobs lists every job the scheduler knows, in check order.
var scheduledJobs = []domain.JobID{domain.JobSyncCycle, domain.JobBacklogDrain}

// Scheduler drives the coordinator from the serve command: a full cycle on
// the sync interval and, if configured, enrichment-only drains in between.
// Job schedules are persisted so a restart does not trigger an immediate
// re-run.
type Scheduler struct {
	config      domain.SchedulerConfig
	store       driven.SchedulerStore
	coordinator driving.SyncCoordinator
	now         func() time.Time

	// tick is how often due jobs are checked.
	tick time.Duration

	mu       sync.Mutex
	running  bool
	inFlight map[domain.JobID]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. A nil coordinator makes every job a no-op.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	coordinator driving.SyncCoordinator,
) *Scheduler {
	return &Scheduler{
		config:      config,
		store:       store,
		coordinator: coordinator,
		now:         time.Now,
		tick:        time.Minute,
		inFlight:    make(map[domain.JobID]bool),
	}
}

// Start runs due jobs until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.syncJobs(ctx); err != nil {
		logger.Error("scheduler: failed to load jobs: %v", err)
	}

	return s.run(ctx)
}

// Stop ends the loop and waits for in-flight jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// RecentRuns returns the newest run records across jobs.
func (s *Scheduler) RecentRuns(ctx context.Context, limit int) ([]domain.JobRun, error) {
	return s.store.RecentRuns(ctx, limit)
}

// syncJobs brings stored schedules in line with the configuration. A new
// job is due at once. A stored job keeps its next run unless its interval
// changed, in which case it restarts from now.
func (s *Scheduler) syncJobs(ctx context.Context) error {
	now := s.now()
	for _, id := range scheduledJobs {
		interval := s.config.IntervalFor(id)

		job, err := s.store.GetJob(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case job == nil && interval <= 0:
			continue
		case job == nil:
			job = &domain.Job{ID: id, Interval: interval, Enabled: true, NextRun: now}
		case interval <= 0:
			job.Enabled = false
		default:
			if job.Interval != interval {
				job.Interval = interval
				job.NextRun = now.Add(interval)
			}
			job.Enabled = true
		}

		if err := s.store.SaveJob(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context) error {
	s.runDueJobs(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.runDueJobs(ctx)
		}
	}
}

func (s *Scheduler) runDueJobs(ctx context.Context) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list jobs: %v", err)
		return
	}

	now := s.now()
	for i := range jobs {
		if jobs[i].Due(now) {
			s.runJob(ctx, jobs[i])
		}
	}
}

// runJob executes a job in the background unless it is already running.
func (s *Scheduler) runJob(ctx context.Context, job domain.Job) {
	s.mu.Lock()
	if s.inFlight[job.ID] {
		s.mu.Unlock()
		return
	}
	s.inFlight[job.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, job.ID)
			s.mu.Unlock()
		}()

		result, ok := s.execute(ctx, job.ID)
		if !ok {
			return
		}
		run := domain.NewJobRun(job.ID, result)

		switch run.Outcome {
		case domain.CycleAlreadyRunning:
			// Another trigger holds the pipeline; try again on the next tick.
			logger.Debug("scheduler: %s skipped, cycle already running", job.ID)
			return
		case domain.CycleFailed:
			logger.Error("scheduler: %s failed: %s", job.ID, run.Error)
		default:
			logger.Info("scheduler: %s %s (%d added, %d updated, %d decisions, %d enriched)",
				job.ID, run.Outcome, run.Added, run.Updated, run.Applied, run.Enriched)
		}

		job.Reschedule(run)
		if err := s.store.SaveJob(ctx, &job); err != nil {
			logger.Error("scheduler: failed to save job %s: %v", job.ID, err)
		}
		if err := s.store.RecordRun(ctx, &run); err != nil {
			logger.Error("scheduler: failed to record run of %s: %v", job.ID, err)
		}
		if err := s.store.PruneRuns(ctx, runsKept); err != nil {
			logger.Warn("scheduler: failed to prune runs: %v", err)
		}
	}()
}

// execute triggers the coordinator for a job. ok is false for jobs that
// have nothing to run.
func (s *Scheduler) execute(ctx context.Context, id domain.JobID) (domain.CycleResult, bool) {
	if s.coordinator == nil {
		return domain.CycleResult{}, false
	}

	switch id {
	case domain.JobSyncCycle:
		return s.coordinator.TriggerSync(ctx), true
	case domain.JobBacklogDrain:
		result, err := s.coordinator.DrainBacklog(ctx, 0)
		if errors.Is(err, domain.ErrSyncInProgress) {
			result.Outcome = domain.CycleAlreadyRunning
		}
		return result, true
	default:
		logger.Warn("scheduler: unknown job %s", id)
		return domain.CycleResult{}, false
	}
}
