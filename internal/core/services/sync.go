package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/core/ports/driving"
	"github.com/custodia-labs/planwatch/internal/logger"
	"github.com/custodia-labs/planwatch/internal/metrics"
)

// Ensure Coordinator implements the interface.
var _ driving.SyncCoordinator = (*Coordinator)(nil)

// Coordinator owns the sync cycle: snapshot reconcile, then decision sync,
// then enrichment. Each stage finishes before the next starts, and only one
// cycle may be in flight.
type Coordinator struct {
	source     driven.SnapshotSource
	watermark  driven.WatermarkStore
	reconciler *Reconciler
	decisions  *DecisionSync
	enrichment *EnrichmentWorker

	state domain.CycleState
	wg    sync.WaitGroup
	newID func() string
	now   func() time.Time
}

// NewCoordinator creates a coordinator.
// decisions is optional - if nil, the decision stage is skipped.
func NewCoordinator(
	source driven.SnapshotSource,
	watermark driven.WatermarkStore,
	reconciler *Reconciler,
	decisions *DecisionSync,
	enrichment *EnrichmentWorker,
) *Coordinator {
	return &Coordinator{
		source:     source,
		watermark:  watermark,
		reconciler: reconciler,
		decisions:  decisions,
		enrichment: enrichment,
		newID:      func() string { return uuid.New().String() },
		now:        time.Now,
	}
}

// TriggerSync runs a full cycle and blocks until it completes.
func (c *Coordinator) TriggerSync(ctx context.Context) domain.CycleResult {
	id := c.newID()
	if !c.state.TryStart(id) {
		logger.Info("Sync already running, trigger rejected")
		metrics.RecordCycle(string(domain.CycleAlreadyRunning), 0, false)
		return domain.CycleResult{
			ID:        id,
			Outcome:   domain.CycleAlreadyRunning,
			StartedAt: c.now(),
			EndedAt:   c.now(),
		}
	}
	return c.run(ctx, id)
}

// StartSync starts a cycle in the background. The cycle is detached from
// ctx cancellation so it outlives the request that started it.
func (c *Coordinator) StartSync(ctx context.Context) (string, error) {
	id := c.newID()
	if !c.state.TryStart(id) {
		return "", domain.ErrSyncInProgress
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(context.WithoutCancel(ctx), id)
	}()
	return id, nil
}

// Wait blocks until every background cycle has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// TriggerEnrichment enriches a single record immediately.
func (c *Coordinator) TriggerEnrichment(ctx context.Context, key string) (*domain.Application, error) {
	return c.enrichment.EnrichOne(ctx, key)
}

// DrainBacklog runs the enrichment stage on its own.
func (c *Coordinator) DrainBacklog(ctx context.Context, limit int) (domain.CycleResult, error) {
	id := c.newID()
	if !c.state.TryStart(id) {
		return domain.CycleResult{}, domain.ErrSyncInProgress
	}

	result := domain.CycleResult{ID: id, StartedAt: c.now()}
	defer c.finish(&result)

	report, err := c.enrichment.Run(ctx, limit)
	result.Enrichment = report
	result.EndedAt = c.now()

	switch {
	case err != nil:
		result.Outcome = domain.CycleFailed
		result.Error = err.Error()
	case report.Failed > 0:
		result.Outcome = domain.CycleCompletedWithErrors
	default:
		result.Outcome = domain.CycleCompleted
	}
	metrics.RecordCycle(string(result.Outcome), result.EndedAt.Sub(result.StartedAt), err != nil)
	return result, err
}

// Status returns whether a cycle is running and how the last one ended.
func (c *Coordinator) Status() driving.SyncStatus {
	running, current, last := c.state.Snapshot()
	return driving.SyncStatus{
		Running:   running,
		CurrentID: current,
		Last:      last,
	}
}

// run executes a started cycle and records its result.
func (c *Coordinator) run(ctx context.Context, id string) (result domain.CycleResult) {
	result = domain.CycleResult{
		ID:        id,
		StartedAt: c.now(),
	}
	defer c.finish(&result)
	logger.Info("Starting sync cycle %s", id)

	err := c.runStages(ctx, &result)
	result.EndedAt = c.now()

	switch {
	case err != nil:
		result.Outcome = domain.CycleFailed
		result.Error = err.Error()
		logger.Error("sync cycle %s failed: %v", id, err)
	case result.ErrorCount() > 0 || result.Error != "":
		result.Outcome = domain.CycleCompletedWithErrors
	default:
		result.Outcome = domain.CycleCompleted
	}

	metrics.RecordCycle(string(result.Outcome), result.EndedAt.Sub(result.StartedAt), err != nil)
	logger.Info("Sync cycle %s %s: %d added, %d updated, %d decisions, %d enriched, %d errors",
		id, result.Outcome, result.Reconcile.Added, result.Reconcile.Updated,
		result.Decisions.Applied, result.Enrichment.Enriched, result.ErrorCount())
	return result
}

// finish releases the cycle state. A panicking stage is recorded as a failed
// cycle before the panic continues, so later triggers are not rejected.
func (c *Coordinator) finish(result *domain.CycleResult) {
	if r := recover(); r != nil {
		result.Outcome = domain.CycleFailed
		result.Error = fmt.Sprintf("panic: %v", r)
		result.EndedAt = c.now()
		c.state.Finish(*result)
		panic(r)
	}
	c.state.Finish(*result)
}

// runStages runs the three stages in order. A returned error is fatal to the cycle.
func (c *Coordinator) runStages(ctx context.Context, result *domain.CycleResult) error {
	// 1. Snapshot
	report, err := c.ingest(ctx)
	result.Reconcile = report
	if err != nil {
		return err
	}

	// 2. Decisions. A failure here is recorded but never aborts the cycle.
	if c.decisions != nil {
		report, err := c.decisions.Run(ctx)
		result.Decisions = report
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.Decisions.Errors++
			result.Error = err.Error()
			logger.Error("decision sync: %v", err)
		}
	}

	// 3. Enrichment
	enrichReport, err := c.enrichment.Run(ctx, 0)
	result.Enrichment = enrichReport
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result.Error = err.Error()
		logger.Error("enrichment: %v", err)
	}
	return nil
}

// ingest downloads the snapshot and reconciles it. The watermark only
// advances after a clean reconcile, so a failed run is retried next cycle.
func (c *Coordinator) ingest(ctx context.Context) (domain.ReconcileReport, error) {
	logger.Section("Snapshot")
	known := c.watermark.SnapshotIdentity()

	snap, err := c.source.Fetch(ctx, known)
	if errors.Is(err, domain.ErrNotModified) {
		logger.Info("Snapshot unchanged (%s), skipping reconcile", known)
		return domain.ReconcileReport{NotModified: true}, nil
	}
	if err != nil {
		return domain.ReconcileReport{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	logger.Info("Downloaded snapshot: %d rows, %d rejected", len(snap.Rows), snap.Rejected)

	report, err := c.reconciler.Reconcile(ctx, snap.Rows)
	report.Rows += snap.Rejected
	report.Skipped += snap.Rejected
	if err != nil {
		return report, fmt.Errorf("reconcile: %w", err)
	}

	if snap.Identity != "" && report.Errors == 0 {
		if err := c.watermark.SetSnapshotIdentity(snap.Identity); err != nil {
			logger.Warn("save snapshot watermark: %v", err)
		}
	}
	return report, nil
}
