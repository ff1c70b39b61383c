package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

func date(y, m, d int) *domain.Date {
	return &domain.Date{Year: y, Month: m, Day: d}
}

func seed(t *testing.T, store *ApplicationStore, apps ...domain.Application) {
	t.Helper()
	for i := range apps {
		require.NoError(t, store.Insert(context.Background(), &apps[i]))
	}
}

func TestApplicationStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()

	seed(t, store, domain.Application{Key: "K1", Reference: "26/00001/FUL", Status: "RECV"})

	got, err := store.Get(ctx, "K1")
	require.NoError(t, err)
	assert.Equal(t, "26/00001/FUL", got.Reference)

	err = store.Insert(ctx, &domain.Application{Key: "K1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplicationStore_ApplySnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	seed(t, store, domain.Application{
		Key:       "K1",
		Status:    "RECV",
		Address:   "1 Main St",
		AgentName: "Smith Architects",
		Proposal:  "Old proposal",
	})

	now := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)
	err := store.ApplySnapshot(ctx, domain.SnapshotUpdate{
		Key:           "K1",
		Reference:     "26/00001/FUL",
		Status:        "HAPP",
		ValidatedDate: date(2026, 1, 10),
		SyncedAt:      now,
		Transition:    &domain.StatusTransition{Key: "K1", OldStatus: "RECV", NewStatus: "HAPP", ChangedAt: now},
		Backfill:      domain.SnapshotBackfill{ReceivedDate: date(2026, 1, 5)},
	})
	require.NoError(t, err)

	got, _ := store.Get(ctx, "K1")
	assert.Equal(t, "HAPP", got.Status)
	assert.True(t, got.NeedsEnrichment)
	assert.Equal(t, "1 Main St", got.Address)
	assert.Equal(t, "Smith Architects", got.AgentName)
	assert.Equal(t, "Old proposal", got.Proposal)
	assert.Equal(t, date(2026, 1, 5), got.ReceivedDate)
	assert.Equal(t, now, got.LastSyncedAt)

	trail, err := store.AuditTrail(ctx, "K1")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "RECV", trail[0].OldStatus)
	assert.Equal(t, "HAPP", trail[0].NewStatus)
	assert.NotZero(t, trail[0].ID)
}

func TestApplicationStore_EnrichmentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	seed(t, store, domain.Application{Key: "K1", NeedsEnrichment: true, DecisionDate: date(2026, 1, 1)})

	require.NoError(t, store.RecordEnrichmentFailure(ctx, "K1"))
	require.NoError(t, store.RecordEnrichmentFailure(ctx, "K1"))
	got, _ := store.Get(ctx, "K1")
	assert.Equal(t, 2, got.EnrichAttempts)
	assert.True(t, got.NeedsEnrichment)

	require.NoError(t, store.ApplyEnrichment(ctx, domain.EnrichmentUpdate{
		Key:       "K1",
		Address:   "2 High St",
		AgentName: domain.DefaultAgent,
	}))
	got, _ = store.Get(ctx, "K1")
	assert.False(t, got.NeedsEnrichment)
	assert.Zero(t, got.EnrichAttempts)
	assert.Equal(t, "2 High St", got.Address)
	assert.Equal(t, date(2026, 1, 1), got.DecisionDate, "nil decision date leaves existing value")

	require.NoError(t, store.MarkForEnrichment(ctx, "K1"))
	got, _ = store.Get(ctx, "K1")
	assert.True(t, got.NeedsEnrichment)

	assert.ErrorIs(t, store.RecordEnrichmentFailure(ctx, "missing"), domain.ErrNotFound)
}

func TestApplicationStore_ApplyDecision(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	seed(t, store, domain.Application{Key: "K1", Status: "PCO"})

	ok, err := store.ApplyDecision(ctx, domain.DecisionUpdate{
		Key:          "K1",
		Status:       "HAPP",
		DecisionDate: domain.Date{Year: 2026, Month: 2, Day: 3},
		Transition:   &domain.StatusTransition{Key: "K1", OldStatus: "PCO", NewStatus: "HAPP"},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := store.Get(ctx, "K1")
	assert.Equal(t, "HAPP", got.Status)
	assert.Equal(t, date(2026, 2, 3), got.DecisionDate)
	assert.True(t, got.NeedsEnrichment)

	ok, err = store.ApplyDecision(ctx, domain.DecisionUpdate{Key: "missing"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplicationStore_ListNeedingEnrichment(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	seed(t, store,
		domain.Application{Key: "old", NeedsEnrichment: true, ReceivedDate: date(2025, 1, 1)},
		domain.Application{Key: "new", NeedsEnrichment: true, ReceivedDate: date(2026, 1, 1)},
		domain.Application{Key: "undated", NeedsEnrichment: true},
		domain.Application{Key: "done", ReceivedDate: date(2026, 2, 1)},
		domain.Application{Key: "stuck", NeedsEnrichment: true, EnrichAttempts: 5, ReceivedDate: date(2026, 3, 1)},
	)

	got, err := store.ListNeedingEnrichment(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].Key)
	assert.Equal(t, "old", got[1].Key)
	assert.Equal(t, "undated", got[2].Key)

	got, _ = store.ListNeedingEnrichment(ctx, 1, 5)
	assert.Len(t, got, 1)

	got, _ = store.ListNeedingEnrichment(ctx, 10, 0)
	assert.Len(t, got, 4)
	assert.Equal(t, "stuck", got[0].Key)
}

func TestApplicationStore_AuditTrailOrder(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendAudit(ctx, domain.StatusTransition{Key: "K1", NewStatus: "VAL", ChangedAt: base}))
	require.NoError(t, store.AppendAudit(ctx, domain.StatusTransition{Key: "K2", NewStatus: "VAL", ChangedAt: base}))
	require.NoError(t, store.AppendAudit(ctx, domain.StatusTransition{Key: "K1", NewStatus: "HAPP", ChangedAt: base.Add(time.Hour)}))

	trail, err := store.AuditTrail(ctx, "K1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "HAPP", trail[0].NewStatus)
	assert.Equal(t, "VAL", trail[1].NewStatus)

	trail, _ = store.AuditTrail(ctx, "none")
	assert.Empty(t, trail)
}

func TestApplicationStore_Query(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	seed(t, store,
		domain.Application{Key: "A", Status: "HAPP", ReceivedDate: date(2026, 1, 3), Proposal: "Garage"},
		domain.Application{Key: "B", Status: "PCO", ReceivedDate: date(2026, 1, 1)},
		domain.Application{Key: "C", Status: "REF", ReceivedDate: date(2026, 1, 2)},
		domain.Application{Key: "D", Status: ""},
	)

	t.Run("default sort newest first with undated last", func(t *testing.T) {
		res, err := store.Query(ctx, domain.ApplicationFilter{})
		require.NoError(t, err)
		keys := make([]string, 0, len(res.Applications))
		for _, a := range res.Applications {
			keys = append(keys, a.Key)
		}
		assert.Equal(t, []string{"A", "C", "B", "D"}, keys)
		assert.Equal(t, domain.ApplicationStats{Total: 4, Approved: 1, Pending: 2, Refused: 1}, res.Stats)
	})

	t.Run("ascending", func(t *testing.T) {
		res, _ := store.Query(ctx, domain.ApplicationFilter{Ascending: true})
		assert.Equal(t, "B", res.Applications[0].Key)
		assert.Equal(t, "D", res.Applications[3].Key)
	})

	t.Run("pending group", func(t *testing.T) {
		res, _ := store.Query(ctx, domain.ApplicationFilter{Statuses: []string{domain.PendingGroup}})
		assert.Len(t, res.Applications, 2)
		assert.Equal(t, 2, res.Stats.Pending)
	})

	t.Run("stats cover full match set despite limit", func(t *testing.T) {
		res, _ := store.Query(ctx, domain.ApplicationFilter{Limit: 1})
		assert.Len(t, res.Applications, 1)
		assert.Equal(t, 4, res.Stats.Total)
	})

	t.Run("search", func(t *testing.T) {
		res, _ := store.Query(ctx, domain.ApplicationFilter{Search: "garage"})
		require.Len(t, res.Applications, 1)
		assert.Equal(t, "A", res.Applications[0].Key)
	})
}

func TestApplicationStore_TopAgents(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	seed(t, store,
		domain.Application{Key: "1", AgentName: "Smith"},
		domain.Application{Key: "2", AgentName: "Smith"},
		domain.Application{Key: "3", AgentName: "Jones"},
		domain.Application{Key: "4", AgentName: domain.DefaultAgent},
		domain.Application{Key: "5"},
	)

	agents, err := store.TopAgents(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.AgentCount{{Name: "Smith", Count: 2}, {Name: "Jones", Count: 1}}, agents)

	agents, _ = store.TopAgents(ctx, 1)
	assert.Len(t, agents, 1)
}

func TestApplicationStore_LastSyncedAt(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()

	last, err := store.LastSyncedAt(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	ts := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
	seed(t, store, domain.Application{Key: "1", LastSyncedAt: ts}, domain.Application{Key: "2", LastSyncedAt: ts.Add(-time.Hour)})

	last, _ = store.LastSyncedAt(ctx)
	assert.Equal(t, ts, last)
}

func TestApplicationStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	seed(t, store,
		domain.Application{Key: "1", Status: "HAPP"},
		domain.Application{Key: "2", Status: "REF"},
	)

	stats, err := store.Stats(ctx, domain.ApplicationFilter{Statuses: []string{"REF"}})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationStats{Total: 1, Refused: 1}, stats)
}
