package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/logger"
	"github.com/custodia-labs/planwatch/internal/metrics"
)

// EnrichmentWorker drains the enrichment backlog through the detail fetcher.
//
// Fetches run with bounded concurrency, but a shared limiter spaces them
// out regardless of parallelism. Two fetches for the same key never overlap.
type EnrichmentWorker struct {
	store    driven.ApplicationStore
	fetcher  driven.DetailFetcher
	settings domain.EnrichmentSettings
	limiter  *rate.Limiter
	locks    *keyLock
	now      func() time.Time
}

// NewEnrichmentWorker creates a worker. A zero Delay disables throttling.
func NewEnrichmentWorker(
	store driven.ApplicationStore,
	fetcher driven.DetailFetcher,
	settings domain.EnrichmentSettings,
) *EnrichmentWorker {
	limit := rate.Inf
	if settings.Delay > 0 {
		limit = rate.Every(settings.Delay)
	}
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}
	return &EnrichmentWorker{
		store:    store,
		fetcher:  fetcher,
		settings: settings,
		limiter:  rate.NewLimiter(limit, 1),
		locks:    newKeyLock(),
		now:      time.Now,
	}
}

// Run enriches up to limit records from the backlog, newest first.
// A limit of 0 uses the configured batch size. Per-record failures are
// counted and never abort the batch.
func (w *EnrichmentWorker) Run(ctx context.Context, limit int) (domain.EnrichmentReport, error) {
	var report domain.EnrichmentReport
	if limit <= 0 {
		limit = w.settings.BatchSize
	}

	logger.Section("Enrichment")
	backlog, err := w.store.ListNeedingEnrichment(ctx, limit, w.settings.MaxAttempts)
	if err != nil {
		return report, fmt.Errorf("list backlog: %w", err)
	}
	metrics.EnrichmentBacklog.Set(float64(len(backlog)))
	logger.Info("Enriching %d records (concurrency %d)", len(backlog), w.settings.Concurrency)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.settings.Concurrency)

	for i := range backlog {
		if gctx.Err() != nil {
			break
		}
		app := backlog[i]
		g.Go(func() error {
			updated, err := w.enrich(gctx, app.Key)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			report.Attempted++
			switch {
			case err != nil:
				report.Failed++
				logger.Warn("enrich %s: %v", app.Key, err)
			default:
				report.Enriched++
				if updated.ValidationWarning != "" {
					report.Warnings++
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Enrichment complete: %d enriched, %d failed, %d warnings",
		report.Enriched, report.Failed, report.Warnings)
	return report, ctx.Err()
}

// EnrichOne enriches a single record immediately, ignoring the attempt ceiling.
func (w *EnrichmentWorker) EnrichOne(ctx context.Context, key string) (*domain.Application, error) {
	if _, err := w.store.Get(ctx, key); err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return w.enrich(ctx, key)
}

// enrich fetches and applies one record under its key lock.
func (w *EnrichmentWorker) enrich(ctx context.Context, key string) (*domain.Application, error) {
	unlock := w.locks.Lock(key)
	defer unlock()

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Re-read under the lock so cross-validation sees the latest status.
	app, err := w.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	result, fetchErr := w.fetcher.Fetch(ctx, app.ActiveKey(), app.Reference)
	if fetchErr == nil && (result == nil || !result.Success) {
		msg := "fetch failed"
		if result != nil && result.Error != "" {
			msg = result.Error
		}
		fetchErr = fmt.Errorf("%w: %s", domain.ErrTransport, msg)
	}
	if fetchErr != nil {
		metrics.RecordEnrichment(false, false)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := w.store.RecordEnrichmentFailure(ctx, key); err != nil {
			logger.Warn("record failure for %s: %v", key, err)
		}
		return nil, fetchErr
	}

	update := domain.EnrichmentUpdate{
		Key:               key,
		Address:           result.Address,
		AgentName:         result.Agent,
		DecisionDate:      result.DecisionDate,
		PortalKey:         result.PortalKey,
		ValidationWarning: domain.CrossValidate(result.ScrapedStatus, app.Status),
		EnrichedAt:        w.now(),
	}
	if err := w.store.ApplyEnrichment(ctx, update); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}
	metrics.RecordEnrichment(true, update.ValidationWarning != "")
	if update.ValidationWarning != "" {
		logger.Warn("%s: %s", key, update.ValidationWarning)
	}
	if update.PortalKey != "" {
		logger.Info("%s healed to portal key %s", key, update.PortalKey)
	}

	return w.store.Get(ctx, key)
}
