package domain

import "time"

// JobID names one of the serve loop's recurring jobs.
type JobID string

const (
	// JobSyncCycle runs the full snapshot, decision and enrichment cycle.
	JobSyncCycle JobID = "sync-cycle"

	// JobBacklogDrain runs only the enrichment stage between full cycles,
	// so a large backlog is worked down without refetching the snapshot.
	JobBacklogDrain JobID = "backlog-drain"
)

// Job is the persisted schedule of one recurring job. NextRun survives a
// restart so serve does not repeat a cycle that has only just finished.
type Job struct {
	ID          JobID
	Interval    time.Duration
	Enabled     bool
	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	LastError   string
}

// Due reports whether the job should run at now.
func (j *Job) Due(now time.Time) bool {
	return j.Enabled && !j.NextRun.After(now)
}

// Reschedule records a finished run and moves NextRun one interval past it.
func (j *Job) Reschedule(run JobRun) {
	j.LastRun = run.StartedAt
	j.NextRun = run.EndedAt.Add(j.Interval)
	if run.Succeeded() {
		j.LastSuccess = run.EndedAt
		j.LastError = ""
	} else {
		j.LastError = run.Error
	}
}

// JobRun is one execution of a job and the counters its cycle produced.
type JobRun struct {
	Job       JobID
	CycleID   string
	Outcome   CycleOutcome
	StartedAt time.Time
	EndedAt   time.Time

	Added    int
	Updated  int
	Applied  int
	Enriched int
	Errors   int

	Error string
}

// NewJobRun summarises a cycle result as a run of job.
func NewJobRun(job JobID, result CycleResult) JobRun {
	return JobRun{
		Job:       job,
		CycleID:   result.ID,
		Outcome:   result.Outcome,
		StartedAt: result.StartedAt,
		EndedAt:   result.EndedAt,
		Added:     result.Reconcile.Added,
		Updated:   result.Reconcile.Updated,
		Applied:   result.Decisions.Applied,
		Enriched:  result.Enrichment.Enriched,
		Errors:    result.ErrorCount(),
		Error:     result.Error,
	}
}

// Succeeded is true when the cycle ran to the end, with or without
// per-record errors.
func (r *JobRun) Succeeded() bool {
	return r.Outcome == CycleCompleted || r.Outcome == CycleCompletedWithErrors
}

// SchedulerConfig controls the serve loop.
type SchedulerConfig struct {
	// Enabled is the master switch; serve only exposes metrics when false.
	Enabled bool

	// Interval is the time between full sync cycles.
	Interval time.Duration

	// BacklogInterval is the time between enrichment-only drains.
	// Zero disables the drain job.
	BacklogInterval time.Duration
}

// IntervalFor returns the configured interval for a job, or zero if the
// job is disabled.
func (c SchedulerConfig) IntervalFor(id JobID) time.Duration {
	if !c.Enabled {
		return 0
	}
	switch id {
	case JobSyncCycle:
		return c.Interval
	case JobBacklogDrain:
		return c.BacklogInterval
	default:
		return 0
	}
}

// DefaultSchedulerConfig syncs every six hours and drains the enrichment
// backlog hourly in between.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:         true,
		Interval:        6 * time.Hour,
		BacklogInterval: time.Hour,
	}
}
