package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

// ApplicationStore persists application records and their status audit log.
//
// Every method that writes more than one field does so in a single
// transaction, so concurrent readers see either the old or the new record.
type ApplicationStore interface {
	// Get retrieves a record by key.
	// Returns domain.ErrNotFound if the key is unknown.
	Get(ctx context.Context, key string) (*domain.Application, error)

	// Insert creates a new record.
	// Returns domain.ErrAlreadyExists if the key is taken.
	Insert(ctx context.Context, app *domain.Application) error

	// ApplySnapshot writes snapshot-owned fields of an existing record.
	// If update.Transition is set, the audit entry is appended first and
	// needs_enrichment is set, all in the same transaction.
	// Enrichment-owned fields are never touched.
	ApplySnapshot(ctx context.Context, update domain.SnapshotUpdate) error

	// ApplyEnrichment writes enrichment-owned fields, clears needs_enrichment
	// and resets the attempt counter. DecisionDate is written only if non-nil;
	// PortalKey is written only if non-empty.
	ApplyEnrichment(ctx context.Context, update domain.EnrichmentUpdate) error

	// RecordEnrichmentFailure increments the attempt counter.
	// needs_enrichment is left set.
	RecordEnrichmentFailure(ctx context.Context, key string) error

	// ApplyDecision patches status and decision date by key.
	// Returns false if the key is unknown.
	ApplyDecision(ctx context.Context, update domain.DecisionUpdate) (bool, error)

	// MarkForEnrichment sets needs_enrichment and resets the attempt counter.
	MarkForEnrichment(ctx context.Context, key string) error

	// ListNeedingEnrichment returns up to limit records in the backlog,
	// newest received first, skipping records with maxAttempts or more
	// failures. maxAttempts <= 0 disables the ceiling.
	ListNeedingEnrichment(ctx context.Context, limit, maxAttempts int) ([]domain.Application, error)

	// AppendAudit appends an audit entry.
	AppendAudit(ctx context.Context, entry domain.StatusTransition) error

	// AuditTrail returns audit entries for a key, most recent first.
	AuditTrail(ctx context.Context, key string) ([]domain.StatusTransition, error)

	// Query returns records matching the filter plus stats for the whole match set.
	Query(ctx context.Context, filter domain.ApplicationFilter) (*domain.QueryResult, error)

	// Stats returns the status breakdown for every record matching the filter.
	Stats(ctx context.Context, filter domain.ApplicationFilter) (domain.ApplicationStats, error)

	// TopAgents returns the most active agents, excluding the default agent.
	TopAgents(ctx context.Context, limit int) ([]domain.AgentCount, error)

	// LastSyncedAt returns the most recent snapshot sync time, or zero.
	LastSyncedAt(ctx context.Context) (time.Time, error)
}
