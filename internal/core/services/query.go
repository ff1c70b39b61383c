package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/core/ports/driving"
)

// Ensure QueryService implements the interface.
var _ driving.ApplicationQuery = (*QueryService)(nil)

// QueryService provides read access to the record store.
type QueryService struct {
	store         driven.ApplicationStore
	portalBaseURL string
}

// NewQueryService creates a query service. portalBaseURL is used to build deep links.
func NewQueryService(store driven.ApplicationStore, portalBaseURL string) *QueryService {
	return &QueryService{
		store:         store,
		portalBaseURL: strings.TrimRight(portalBaseURL, "/"),
	}
}

// Query returns a filtered, sorted page of records plus stats.
func (s *QueryService) Query(ctx context.Context, filter domain.ApplicationFilter) (*domain.QueryResult, error) {
	if err := validateRange(filter); err != nil {
		return nil, err
	}
	return s.store.Query(ctx, filter.Normalise())
}

// Stats returns the status breakdown for the filter.
func (s *QueryService) Stats(ctx context.Context, filter domain.ApplicationFilter) (domain.ApplicationStats, error) {
	if err := validateRange(filter); err != nil {
		return domain.ApplicationStats{}, err
	}
	return s.store.Stats(ctx, filter.Normalise())
}

// Get returns a single record.
func (s *QueryService) Get(ctx context.Context, key string) (*domain.Application, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: key is required", domain.ErrInvalidInput)
	}
	return s.store.Get(ctx, key)
}

// AuditTrail returns status transitions for a key, most recent first.
func (s *QueryService) AuditTrail(ctx context.Context, key string) ([]domain.StatusTransition, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: key is required", domain.ErrInvalidInput)
	}
	return s.store.AuditTrail(ctx, key)
}

// TopAgents returns the most active agents.
func (s *QueryService) TopAgents(ctx context.Context, limit int) ([]domain.AgentCount, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.TopAgents(ctx, limit)
}

// LastSyncedAt returns the most recent snapshot sync time.
func (s *QueryService) LastSyncedAt(ctx context.Context) (time.Time, error) {
	return s.store.LastSyncedAt(ctx)
}

// PortalURL returns the summary page for the record, preferring the healed key.
func (s *QueryService) PortalURL(app *domain.Application) string {
	return s.portalBaseURL + "/applicationDetails.do?activeTab=summary&keyVal=" + url.QueryEscape(app.ActiveKey())
}

func validateRange(filter domain.ApplicationFilter) error {
	if filter.ReceivedFrom != nil && filter.ReceivedTo != nil && filter.ReceivedTo.Before(*filter.ReceivedFrom) {
		return fmt.Errorf("%w: received range ends before it starts", domain.ErrInvalidInput)
	}
	return nil
}
