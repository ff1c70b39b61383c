package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driving"
)

// mockCoordinator implements driving.SyncCoordinator for testing.
type mockCoordinator struct {
	result      domain.CycleResult
	drain       domain.CycleResult
	drainErr    error
	drainLimit  int
	enriched    *domain.Application
	enrichErr   error
	enrichedKey string
	status      driving.SyncStatus
}

func (m *mockCoordinator) TriggerSync(_ context.Context) domain.CycleResult {
	return m.result
}

func (m *mockCoordinator) StartSync(_ context.Context) (string, error) {
	return m.result.ID, nil
}

func (m *mockCoordinator) TriggerEnrichment(_ context.Context, key string) (*domain.Application, error) {
	m.enrichedKey = key
	return m.enriched, m.enrichErr
}

func (m *mockCoordinator) DrainBacklog(_ context.Context, limit int) (domain.CycleResult, error) {
	m.drainLimit = limit
	return m.drain, m.drainErr
}

func (m *mockCoordinator) Status() driving.SyncStatus {
	return m.status
}

// mockQuery implements driving.ApplicationQuery for testing.
type mockQuery struct {
	result     *domain.QueryResult
	lastFilter domain.ApplicationFilter
	apps       map[string]*domain.Application
	trail      []domain.StatusTransition
	agents     []domain.AgentCount
	agentLimit int
	lastSynced time.Time
	err        error
}

func (m *mockQuery) Query(_ context.Context, filter domain.ApplicationFilter) (*domain.QueryResult, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.QueryResult{}, nil
	}
	return m.result, nil
}

func (m *mockQuery) Get(_ context.Context, key string) (*domain.Application, error) {
	if app, ok := m.apps[key]; ok {
		return app, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockQuery) AuditTrail(_ context.Context, _ string) ([]domain.StatusTransition, error) {
	return m.trail, m.err
}

func (m *mockQuery) Stats(_ context.Context, _ domain.ApplicationFilter) (domain.ApplicationStats, error) {
	if m.result == nil {
		return domain.ApplicationStats{}, m.err
	}
	return m.result.Stats, m.err
}

func (m *mockQuery) TopAgents(_ context.Context, limit int) ([]domain.AgentCount, error) {
	m.agentLimit = limit
	return m.agents, m.err
}

func (m *mockQuery) LastSyncedAt(_ context.Context) (time.Time, error) {
	return m.lastSynced, nil
}

func (m *mockQuery) PortalURL(app *domain.Application) string {
	return "https://portal.test/applicationDetails.do?activeTab=summary&keyVal=" + app.ActiveKey()
}

// mockSettings implements driving.SettingsService for testing.
type mockSettings struct {
	values map[string]string
	keys   []string
	setErr error
}

func newMockSettings() *mockSettings {
	return &mockSettings{
		values: map[string]string{
			"snapshot.url":           "https://data.test/planning.csv",
			"portal.base_url":        "https://portal.test",
			"enrichment.concurrency": "2",
		},
		keys: []string{"snapshot.url", "portal.base_url", "enrichment.concurrency"},
	}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *mockSettings) Save(_ *domain.AppSettings) error {
	return nil
}

func (m *mockSettings) GetValue(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrInvalidInput
	}
	return v, nil
}

func (m *mockSettings) SetValue(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if _, ok := m.values[key]; !ok {
		return domain.ErrInvalidInput
	}
	m.values[key] = value
	return nil
}

func (m *mockSettings) Keys() []string {
	return m.keys
}

func (m *mockSettings) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	started bool
	stopped bool
	runs    []domain.JobRun
	runsErr error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started = true
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

func (m *mockScheduler) RecentRuns(_ context.Context, limit int) ([]domain.JobRun, error) {
	if len(m.runs) > limit {
		return m.runs[:limit], m.runsErr
	}
	return m.runs, m.runsErr
}

// Ensure mocks implement interfaces
var (
	_ driving.SyncCoordinator  = (*mockCoordinator)(nil)
	_ driving.ApplicationQuery = (*mockQuery)(nil)
	_ driving.SettingsService  = (*mockSettings)(nil)
	_ driving.Scheduler        = (*mockScheduler)(nil)
)

// withServices installs services for one test and restores the previous ones.
func withServices(t *testing.T, coord driving.SyncCoordinator, query driving.ApplicationQuery, settings driving.SettingsService) {
	t.Helper()
	oldSync, oldQuery, oldSettings := syncCoordinator, applicationQuery, settingsService
	syncCoordinator, applicationQuery, settingsService = coord, query, settings
	t.Cleanup(func() {
		syncCoordinator, applicationQuery, settingsService = oldSync, oldQuery, oldSettings
	})
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetListFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func resetListFlags() {
	listFlags.statuses = nil
	listFlags.search = ""
	listFlags.agent = ""
	listFlags.from = ""
	listFlags.to = ""
	listFlags.sort = "received"
	listFlags.asc = false
	listFlags.limit = domain.DefaultQueryLimit
	enrichLimit = 0
	agentsLimit = 10
}

func date(y, m, d int) *domain.Date {
	return &domain.Date{Year: y, Month: m, Day: d}
}

func requireContains(t *testing.T, out string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		require.Contains(t, out, p)
	}
}
