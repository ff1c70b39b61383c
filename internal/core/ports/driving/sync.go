package driving

import (
	"context"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

// SyncCoordinator runs the pipeline: snapshot reconcile, decision sync,
// then enrichment. At most one cycle is in flight at any time.
type SyncCoordinator interface {
	// TriggerSync runs a full cycle and blocks until it completes.
	// If a cycle is already running it returns immediately with
	// outcome domain.CycleAlreadyRunning.
	TriggerSync(ctx context.Context) domain.CycleResult

	// StartSync starts a cycle in the background and returns its ID.
	// Returns domain.ErrSyncInProgress if one is already running.
	StartSync(ctx context.Context) (string, error)

	// TriggerEnrichment enriches a single record immediately, ignoring the
	// failure ceiling, and returns the updated record. A failed fetch returns
	// an error wrapping domain.ErrTransport and leaves the record queued.
	TriggerEnrichment(ctx context.Context, key string) (*domain.Application, error)

	// DrainBacklog runs only the enrichment stage over up to limit records
	// (0 means the configured batch size). It counts as a cycle, so it
	// returns domain.ErrSyncInProgress while another cycle is running.
	DrainBacklog(ctx context.Context, limit int) (domain.CycleResult, error)

	// Status returns whether a cycle is running and how the last one ended.
	Status() SyncStatus
}

// SyncStatus represents the current state of the pipeline.
type SyncStatus struct {
	// Running indicates if a cycle is currently in progress.
	Running bool

	// CurrentID is the in-flight cycle ID, if any.
	CurrentID string

	// Last is the most recently finished cycle, or nil.
	Last *domain.CycleResult
}
