package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

// DetailFetcher fetches a record's pages from the planning portal.
type DetailFetcher interface {
	// Fetch retrieves address, agent, decision date and displayed status.
	// reference is used to heal the key when the portal no longer knows it.
	// A non-nil error means the fetch failed and is retryable; the returned
	// result still carries Success=false and the error text.
	Fetch(ctx context.Context, key, reference string) (*domain.DetailResult, error)
}

// ReferenceResolver finds the portal key for a human-readable reference.
type ReferenceResolver interface {
	// Resolve returns a replacement for failedKey, or domain.ErrKeyNotResolvable.
	Resolve(ctx context.Context, failedKey, reference string) (string, error)
}

// DecisionSearcher lists applications decided within a date window.
type DecisionSearcher interface {
	// RecentDecisions returns results for decisions between from and to.
	RecentDecisions(ctx context.Context, from, to time.Time) ([]domain.DecisionResult, error)
}
