package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/logger"
	"github.com/custodia-labs/planwatch/internal/metrics"
)

// Reconciler merges snapshot rows into the record store.
//
// The snapshot owns key, reference, proposal, status, the received and
// validated dates and coordinates. Address, agent, portal key and decision
// date belong to enrichment and are never written here.
type Reconciler struct {
	store driven.ApplicationStore
	now   func() time.Time
}

// NewReconciler creates a reconciler backed by store.
func NewReconciler(store driven.ApplicationStore) *Reconciler {
	return &Reconciler{
		store: store,
		now:   time.Now,
	}
}

// Reconcile applies rows in order. Per-row failures are logged and counted;
// only context cancellation stops the batch early.
func (r *Reconciler) Reconcile(ctx context.Context, rows []domain.SnapshotRow) (domain.ReconcileReport, error) {
	report := domain.ReconcileReport{Rows: len(rows)}
	logger.Section("Reconcile")

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		row := &rows[i]
		if strings.TrimSpace(row.Key) == "" {
			report.Skipped++
			continue
		}

		added, changed, err := r.apply(ctx, row)
		switch {
		case err != nil:
			report.Errors++
			logger.Warn("reconcile %s: %v", row.Key, err)
		case added:
			report.Added++
		case changed:
			report.Updated++
		default:
			report.Unchanged++
		}
	}

	metrics.RecordReconcile(report.Added, report.Updated, report.Unchanged, report.Skipped, report.Errors)
	logger.Info("Reconcile complete: %d added, %d updated, %d unchanged, %d skipped, %d errors",
		report.Added, report.Updated, report.Unchanged, report.Skipped, report.Errors)
	return report, nil
}

// apply handles a single row and reports whether it was inserted or changed status.
func (r *Reconciler) apply(ctx context.Context, row *domain.SnapshotRow) (added, changed bool, err error) {
	now := r.now()
	key := strings.TrimSpace(row.Key)

	existing, err := r.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		app := &domain.Application{
			Key:             key,
			Reference:       row.Reference,
			Proposal:        row.Proposal,
			Status:          row.Status,
			ReceivedDate:    row.ReceivedDate,
			ValidatedDate:   row.ValidatedDate,
			Latitude:        row.Latitude,
			Longitude:       row.Longitude,
			SourceObjectID:  row.SourceObjectID,
			NeedsEnrichment: true,
			LastSyncedAt:    now,
		}
		if err := r.store.Insert(ctx, app); err != nil {
			return false, false, fmt.Errorf("insert: %w", err)
		}
		logger.Debug("added %s (%s)", key, row.Status)
		return true, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("get: %w", err)
	}

	update := domain.SnapshotUpdate{
		Key:           key,
		Reference:     row.Reference,
		Status:        row.Status,
		ValidatedDate: row.ValidatedDate,
		SyncedAt:      now,
		Backfill:      backfill(existing, row),
	}
	if existing.Status != row.Status {
		update.Transition = &domain.StatusTransition{
			Key:       key,
			OldStatus: existing.Status,
			NewStatus: row.Status,
			ChangedAt: now,
		}
	}

	if err := r.store.ApplySnapshot(ctx, update); err != nil {
		return false, false, fmt.Errorf("apply: %w", err)
	}
	if update.Transition != nil {
		logger.Debug("status %s: %s -> %s", key, existing.Status, row.Status)
		return false, true, nil
	}
	return false, false, nil
}

// backfill returns the snapshot fields the stored record is missing.
func backfill(existing *domain.Application, row *domain.SnapshotRow) domain.SnapshotBackfill {
	var b domain.SnapshotBackfill
	if existing.Proposal == "" {
		b.Proposal = row.Proposal
	}
	if existing.ReceivedDate == nil {
		b.ReceivedDate = row.ReceivedDate
	}
	if existing.Latitude == nil {
		b.Latitude = row.Latitude
	}
	if existing.Longitude == nil {
		b.Longitude = row.Longitude
	}
	return b
}
