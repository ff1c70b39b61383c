package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
)

// Ensure ApplicationStore implements the interface.
var _ driven.ApplicationStore = (*ApplicationStore)(nil)

// ApplicationStore is an in-memory implementation of driven.ApplicationStore.
// Used in tests and for dry runs.
type ApplicationStore struct {
	mu     sync.RWMutex
	apps   map[string]domain.Application
	audit  []domain.StatusTransition
	nextID int64
}

// NewApplicationStore creates a new in-memory application store.
func NewApplicationStore() *ApplicationStore {
	return &ApplicationStore{
		apps: make(map[string]domain.Application),
	}
}

// Get retrieves a record by key.
func (s *ApplicationStore) Get(_ context.Context, key string) (*domain.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &app, nil
}

// Insert creates a new record.
func (s *ApplicationStore) Insert(_ context.Context, app *domain.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.Key]; ok {
		return domain.ErrAlreadyExists
	}
	s.apps[app.Key] = *app
	return nil
}

// ApplySnapshot writes snapshot-owned fields.
func (s *ApplicationStore) ApplySnapshot(_ context.Context, update domain.SnapshotUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[update.Key]
	if !ok {
		return domain.ErrNotFound
	}

	if update.Transition != nil {
		s.appendLocked(*update.Transition)
		app.NeedsEnrichment = true
		app.EnrichAttempts = 0
	}
	app.Reference = update.Reference
	app.Status = update.Status
	app.ValidatedDate = update.ValidatedDate
	app.LastSyncedAt = update.SyncedAt

	b := update.Backfill
	if b.Proposal != "" {
		app.Proposal = b.Proposal
	}
	if b.ReceivedDate != nil {
		app.ReceivedDate = b.ReceivedDate
	}
	if b.Latitude != nil {
		app.Latitude = b.Latitude
	}
	if b.Longitude != nil {
		app.Longitude = b.Longitude
	}

	s.apps[update.Key] = app
	return nil
}

// ApplyEnrichment writes enrichment-owned fields.
func (s *ApplicationStore) ApplyEnrichment(_ context.Context, update domain.EnrichmentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[update.Key]
	if !ok {
		return domain.ErrNotFound
	}
	app.Address = update.Address
	app.AgentName = update.AgentName
	if update.DecisionDate != nil {
		app.DecisionDate = update.DecisionDate
	}
	if update.PortalKey != "" {
		app.PortalKey = update.PortalKey
	}
	app.ValidationWarning = update.ValidationWarning
	app.LastEnrichedAt = update.EnrichedAt
	app.NeedsEnrichment = false
	app.EnrichAttempts = 0
	s.apps[update.Key] = app
	return nil
}

// RecordEnrichmentFailure increments the attempt counter.
func (s *ApplicationStore) RecordEnrichmentFailure(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[key]
	if !ok {
		return domain.ErrNotFound
	}
	app.EnrichAttempts++
	s.apps[key] = app
	return nil
}

// ApplyDecision patches status and decision date.
func (s *ApplicationStore) ApplyDecision(_ context.Context, update domain.DecisionUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[update.Key]
	if !ok {
		return false, nil
	}
	if update.Transition != nil {
		s.appendLocked(*update.Transition)
		app.NeedsEnrichment = true
		app.EnrichAttempts = 0
	}
	app.Status = update.Status
	decided := update.DecisionDate
	app.DecisionDate = &decided
	s.apps[update.Key] = app
	return true, nil
}

// MarkForEnrichment sets needs_enrichment and resets the attempt counter.
func (s *ApplicationStore) MarkForEnrichment(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[key]
	if !ok {
		return domain.ErrNotFound
	}
	app.NeedsEnrichment = true
	app.EnrichAttempts = 0
	s.apps[key] = app
	return nil
}

// ListNeedingEnrichment returns the backlog, newest received first.
func (s *ApplicationStore) ListNeedingEnrichment(_ context.Context, limit, maxAttempts int) ([]domain.Application, error) {
	s.mu.RLock()
	var out []domain.Application
	for _, app := range s.apps {
		if !app.NeedsEnrichment {
			continue
		}
		if maxAttempts > 0 && app.EnrichAttempts >= maxAttempts {
			continue
		}
		out = append(out, app)
	}
	s.mu.RUnlock()

	sortByDate(out, domain.SortReceived, false)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AppendAudit appends an audit entry.
func (s *ApplicationStore) AppendAudit(_ context.Context, entry domain.StatusTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(entry)
	return nil
}

func (s *ApplicationStore) appendLocked(entry domain.StatusTransition) {
	s.nextID++
	entry.ID = s.nextID
	s.audit = append(s.audit, entry)
}

// AuditTrail returns audit entries for a key, most recent first.
func (s *ApplicationStore) AuditTrail(_ context.Context, key string) ([]domain.StatusTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StatusTransition
	for i := len(s.audit) - 1; i >= 0; i-- {
		if s.audit[i].Key == key {
			out = append(out, s.audit[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.After(out[j].ChangedAt)
	})
	return out, nil
}

// Query returns records matching the filter plus stats.
func (s *ApplicationStore) Query(_ context.Context, filter domain.ApplicationFilter) (*domain.QueryResult, error) {
	filter = filter.Normalise()

	s.mu.RLock()
	var matched []domain.Application
	var stats domain.ApplicationStats
	for _, app := range s.apps {
		if filter.Matches(&app) {
			matched = append(matched, app)
			stats.Tally(&app)
		}
	}
	s.mu.RUnlock()

	sortByDate(matched, filter.SortBy, filter.Ascending)
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return &domain.QueryResult{Applications: matched, Stats: stats}, nil
}

// Stats returns the status breakdown for the filter.
func (s *ApplicationStore) Stats(ctx context.Context, filter domain.ApplicationFilter) (domain.ApplicationStats, error) {
	res, err := s.Query(ctx, filter)
	if err != nil {
		return domain.ApplicationStats{}, err
	}
	return res.Stats, nil
}

// TopAgents returns the most active agents.
func (s *ApplicationStore) TopAgents(_ context.Context, limit int) ([]domain.AgentCount, error) {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, app := range s.apps {
		if app.AgentName == "" || app.AgentName == domain.DefaultAgent {
			continue
		}
		counts[app.AgentName]++
	}
	s.mu.RUnlock()

	out := make([]domain.AgentCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, domain.AgentCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LastSyncedAt returns the most recent snapshot sync time.
func (s *ApplicationStore) LastSyncedAt(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	for _, app := range s.apps {
		if app.LastSyncedAt.After(last) {
			last = app.LastSyncedAt
		}
	}
	return last, nil
}

// sortByDate orders records by the given date field. Undated records sort
// last in either direction; ties break on key.
func sortByDate(apps []domain.Application, field domain.SortField, ascending bool) {
	sort.SliceStable(apps, func(i, j int) bool {
		di, dj := apps[i].SortDate(field), apps[j].SortDate(field)
		switch {
		case di == nil && dj == nil:
			return apps[i].Key < apps[j].Key
		case di == nil:
			return false
		case dj == nil:
			return true
		case *di == *dj:
			return apps[i].Key < apps[j].Key
		case ascending:
			return di.Before(*dj)
		default:
			return dj.Before(*di)
		}
	})
}
