package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

// ApplicationQuery provides read access to the record store.
type ApplicationQuery interface {
	// Query returns a filtered, sorted page of records plus stats.
	Query(ctx context.Context, filter domain.ApplicationFilter) (*domain.QueryResult, error)

	// Get returns a single record by key.
	Get(ctx context.Context, key string) (*domain.Application, error)

	// AuditTrail returns status transitions for a key, most recent first.
	AuditTrail(ctx context.Context, key string) ([]domain.StatusTransition, error)

	// Stats returns the status breakdown for the filter without fetching records.
	Stats(ctx context.Context, filter domain.ApplicationFilter) (domain.ApplicationStats, error)

	// TopAgents returns the most active agents.
	TopAgents(ctx context.Context, limit int) ([]domain.AgentCount, error)

	// LastSyncedAt returns when the snapshot last touched any record.
	LastSyncedAt(ctx context.Context) (time.Time, error)

	// PortalURL returns the portal summary page for a record.
	PortalURL(app *domain.Application) string
}
