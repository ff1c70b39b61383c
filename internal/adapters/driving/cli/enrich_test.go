package cli

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

func TestEnrichCmd_SingleKey(t *testing.T) {
	coord := &mockCoordinator{enriched: &domain.Application{
		Key:               "K1",
		Reference:         "26/00001/FUL",
		Status:            "HAPP",
		Address:           "1 Main Street",
		AgentName:         "Smith Architects",
		DecisionDate:      date(2026, 2, 4),
		ValidationWarning: "Mismatch: Portal says 'Refused', snapshot says 'HAPP'",
	}}
	withServices(t, coord, nil, nil)

	out, err := execute(t, "enrich", "K1")
	require.NoError(t, err)
	assert.Equal(t, "K1", coord.enrichedKey)
	requireContains(t, out,
		"Enriching K1...",
		"Smith Architects",
		"04/02/2026",
		"Warning: Mismatch: Portal says 'Refused', snapshot says 'HAPP'",
	)
}

func TestEnrichCmd_UnknownKey(t *testing.T) {
	withServices(t, &mockCoordinator{enrichErr: fmt.Errorf("get K9: %w", domain.ErrNotFound)}, nil, nil)

	_, err := execute(t, "enrich", "K9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no application with key K9")
}

func TestEnrichCmd_TransportFailure(t *testing.T) {
	withServices(t, &mockCoordinator{enrichErr: fmt.Errorf("%w: timeout", domain.ErrTransport)}, nil, nil)

	_, err := execute(t, "enrich", "K1")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestEnrichCmd_Backlog(t *testing.T) {
	coord := &mockCoordinator{drain: domain.CycleResult{
		Outcome:    domain.CycleCompletedWithErrors,
		Enrichment: domain.EnrichmentReport{Attempted: 5, Enriched: 4, Failed: 1, Warnings: 2},
	}}
	withServices(t, coord, nil, nil)

	out, err := execute(t, "enrich", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, coord.drainLimit)
	assert.Contains(t, out, "Enriched 4 of 5 records (1 failed, 2 warnings).")
}

func TestEnrichCmd_BacklogWhileSyncRunning(t *testing.T) {
	withServices(t, &mockCoordinator{drainErr: domain.ErrSyncInProgress}, nil, nil)

	out, err := execute(t, "enrich")
	require.NoError(t, err)
	assert.Contains(t, out, "A sync is already running.")
}
