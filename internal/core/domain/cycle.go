package domain

import (
	"sync"
	"time"
)

// CycleOutcome describes how a sync trigger ended.
type CycleOutcome string

// Cycle outcomes. A caller can always tell a rejected trigger from a
// failed one and from a run that finished with per-record errors.
const (
	CycleCompleted           CycleOutcome = "completed"
	CycleCompletedWithErrors CycleOutcome = "completed_with_errors"
	CycleFailed              CycleOutcome = "failed"
	CycleAlreadyRunning      CycleOutcome = "already_running"
)

// ReconcileReport summarises one snapshot ingest.
type ReconcileReport struct {
	Rows      int
	Added     int
	Updated   int
	Unchanged int
	Skipped   int
	Errors    int

	// NotModified is true when the snapshot was skipped because its
	// identity matched the stored watermark.
	NotModified bool
}

// DecisionReport summarises one secondary decision sync.
type DecisionReport struct {
	Found   int
	Applied int
	Skipped int
	Errors  int
}

// EnrichmentReport summarises one pass over the enrichment backlog.
type EnrichmentReport struct {
	Attempted int
	Enriched  int
	Failed    int
	Warnings  int
}

// CycleResult is the outcome of one sync cycle.
type CycleResult struct {
	ID        string
	Outcome   CycleOutcome
	StartedAt time.Time
	EndedAt   time.Time

	Reconcile  ReconcileReport
	Decisions  DecisionReport
	Enrichment EnrichmentReport

	// Error is the fatal error for CycleFailed, or the decision sync
	// error when that stage failed without aborting the cycle.
	Error string
}

// ErrorCount returns the number of per-record errors across all stages.
func (r *CycleResult) ErrorCount() int {
	return r.Reconcile.Errors + r.Decisions.Errors + r.Enrichment.Failed
}

// CycleState is the coordinator's view of the pipeline: whether a cycle is
// in flight and how the previous one ended. Safe for concurrent use.
type CycleState struct {
	mu      sync.Mutex
	running bool
	current string
	last    *CycleResult
}

// TryStart marks a cycle as running. It returns false if one already is.
func (s *CycleState) TryStart(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.current = id
	return true
}

// Finish records the result and returns the state to idle.
func (s *CycleState) Finish(result CycleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.current = ""
	s.last = &result
}

// Snapshot returns the running flag, the in-flight cycle ID and a copy of the last result.
func (s *CycleState) Snapshot() (running bool, current string, last *CycleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		cp := *s.last
		last = &cp
	}
	return s.running, s.current, last
}
