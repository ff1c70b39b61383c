package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore over the jobs and
// job_runs tables.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const jobColumns = `id, interval_seconds, enabled, last_run, next_run, last_success, last_error`

const runColumns = `job_id, cycle_id, outcome, started_at, ended_at,
	added, updated, applied, enriched, errors, error`

func (s *schedulerStore) GetJob(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, string(id))

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *schedulerStore) ListJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

func (s *schedulerStore) SaveJob(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			interval_seconds = excluded.interval_seconds,
			enabled = excluded.enabled,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_success = excluded.last_success,
			last_error = excluded.last_error
	`, string(job.ID), int64(job.Interval/time.Second), boolToInt(job.Enabled),
		formatNullableTime(job.LastRun), formatNullableTime(job.NextRun),
		formatNullableTime(job.LastSuccess), nullString(job.LastError))
	if err != nil {
		return fmt.Errorf("saving job %s: %w", job.ID, err)
	}
	return nil
}

func (s *schedulerStore) RecordRun(ctx context.Context, run *domain.JobRun) error {
	if run == nil || run.Job == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO job_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(run.Job), run.CycleID, string(run.Outcome),
		formatTime(run.StartedAt), formatTime(run.EndedAt),
		run.Added, run.Updated, run.Applied, run.Enriched, run.Errors,
		nullString(run.Error))
	if err != nil {
		return fmt.Errorf("recording run of %s: %w", run.Job, err)
	}
	return nil
}

func (s *schedulerStore) RecentRuns(ctx context.Context, limit int) ([]domain.JobRun, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM job_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.JobRun, 0, limit)
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job runs: %w", err)
	}
	return runs, nil
}

func (s *schedulerStore) PruneRuns(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM job_runs
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY job_id ORDER BY started_at DESC, id DESC
				) AS rn
				FROM job_runs
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning job runs: %w", err)
	}
	return nil
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job                                      domain.Job
		id                                       string
		intervalSeconds                          int64
		enabled                                  int
		lastRun, nextRun, lastSuccess, lastError sql.NullString
	)

	if err := row.Scan(&id, &intervalSeconds, &enabled,
		&lastRun, &nextRun, &lastSuccess, &lastError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	job.ID = domain.JobID(id)
	job.Interval = time.Duration(intervalSeconds) * time.Second
	job.Enabled = enabled == 1
	job.LastRun = parseNullableTime(lastRun)
	job.NextRun = parseNullableTime(nextRun)
	job.LastSuccess = parseNullableTime(lastSuccess)
	job.LastError = lastError.String
	return &job, nil
}

func scanJobRun(row rowScanner) (*domain.JobRun, error) {
	var (
		run                domain.JobRun
		jobID, outcome     string
		startedAt, endedAt sql.NullString
		errMsg             sql.NullString
	)

	if err := row.Scan(&jobID, &run.CycleID, &outcome, &startedAt, &endedAt,
		&run.Added, &run.Updated, &run.Applied, &run.Enriched, &run.Errors,
		&errMsg); err != nil {
		return nil, fmt.Errorf("scanning job run: %w", err)
	}

	run.Job = domain.JobID(jobID)
	run.Outcome = domain.CycleOutcome(outcome)
	run.StartedAt = parseNullableTime(startedAt)
	run.EndedAt = parseNullableTime(endedAt)
	run.Error = errMsg.String
	return &run, nil
}
