package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/core/ports/driving"
)

// --- Mock implementations for service testing ---

// mockSnapshotSource implements driven.SnapshotSource.
type mockSnapshotSource struct {
	mu        sync.Mutex
	snapshot  *driven.Snapshot
	err       error
	calls     int
	lastKnown string
	block     chan struct{}
}

func (m *mockSnapshotSource) Fetch(ctx context.Context, knownIdentity string) (*driven.Snapshot, error) {
	m.mu.Lock()
	m.calls++
	m.lastKnown = knownIdentity
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.snapshot != nil && knownIdentity != "" && knownIdentity == m.snapshot.Identity {
		return nil, domain.ErrNotModified
	}
	return m.snapshot, nil
}

// fetchResponse is a canned DetailFetcher response.
type fetchResponse struct {
	result *domain.DetailResult
	err    error
}

// mockFetcher implements driven.DetailFetcher.
type mockFetcher struct {
	mu        sync.Mutex
	responses map[string]fetchResponse
	calls     []string
	active    map[string]int
	overlap   bool
	delay     time.Duration
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		responses: make(map[string]fetchResponse),
		active:    make(map[string]int),
	}
}

func (m *mockFetcher) set(key string, result *domain.DetailResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = fetchResponse{result: result, err: err}
}

func (m *mockFetcher) Fetch(_ context.Context, key, _ string) (*domain.DetailResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, key)
	m.active[key]++
	if m.active[key] > 1 {
		m.overlap = true
	}
	resp, ok := m.responses[key]
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	m.active[key]--
	m.mu.Unlock()

	if !ok {
		return &domain.DetailResult{
			Address: domain.DefaultAddress,
			Agent:   domain.DefaultAgent,
			Success: true,
		}, nil
	}
	return resp.result, resp.err
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockSearcher implements driven.DecisionSearcher.
type mockSearcher struct {
	results  []domain.DecisionResult
	err      error
	from, to time.Time
}

func (m *mockSearcher) RecentDecisions(_ context.Context, from, to time.Time) ([]domain.DecisionResult, error) {
	m.from, m.to = from, to
	return m.results, m.err
}

// mockSchedulerStore implements driven.SchedulerStore.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	jobs     map[domain.JobID]*domain.Job
	runs     []domain.JobRun
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{jobs: make(map[domain.JobID]*domain.Job)}
}

func (m *mockSchedulerStore) GetJob(_ context.Context, id domain.JobID) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *mockSchedulerStore) ListJobs(_ context.Context) ([]domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	jobs := make([]domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, *j)
	}
	return jobs, nil
}

func (m *mockSchedulerStore) SaveJob(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockSchedulerStore) RecordRun(_ context.Context, run *domain.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *mockSchedulerStore) RecentRuns(_ context.Context, limit int) ([]domain.JobRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.JobRun, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *mockSchedulerStore) PruneRuns(_ context.Context, _ int) error {
	return m.pruneErr
}

func (m *mockSchedulerStore) runsFor(id domain.JobID) []domain.JobRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.JobRun
	for _, r := range m.runs {
		if r.Job == id {
			out = append(out, r)
		}
	}
	return out
}

func (m *mockSchedulerStore) job(id domain.JobID) *domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if j, ok := m.jobs[id]; ok {
		cp := *j
		return &cp
	}
	return nil
}

// mockCoordinator implements driving.SyncCoordinator.
type mockCoordinator struct {
	mu       sync.Mutex
	calls    int
	drains   int
	result   domain.CycleResult
	drain    domain.CycleResult
	drainErr error
}

func (m *mockCoordinator) TriggerSync(_ context.Context) domain.CycleResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.result
}

func (m *mockCoordinator) StartSync(_ context.Context) (string, error) {
	return "", nil
}

func (m *mockCoordinator) TriggerEnrichment(_ context.Context, _ string) (*domain.Application, error) {
	return nil, nil
}

func (m *mockCoordinator) DrainBacklog(_ context.Context, _ int) (domain.CycleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drains++
	return m.drain, m.drainErr
}

func (m *mockCoordinator) Status() driving.SyncStatus {
	return driving.SyncStatus{}
}

func (m *mockCoordinator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockCoordinator) drainCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drains
}

// Ensure mocks implement interfaces
var (
	_ driven.SnapshotSource   = (*mockSnapshotSource)(nil)
	_ driven.DetailFetcher    = (*mockFetcher)(nil)
	_ driven.DecisionSearcher = (*mockSearcher)(nil)
	_ driven.SchedulerStore   = (*mockSchedulerStore)(nil)
	_ driving.SyncCoordinator = (*mockCoordinator)(nil)
)

// Test helpers.

func date(y, m, d int) *domain.Date {
	return &domain.Date{Year: y, Month: m, Day: d}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
