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
)

// DecisionSync patches status and decision date for recently decided
// applications, straight from the portal's search pages.
type DecisionSync struct {
	store    driven.ApplicationStore
	searcher driven.DecisionSearcher
	window   time.Duration
	now      func() time.Time
}

// NewDecisionSync creates a decision sync over a trailing window of windowDays.
func NewDecisionSync(store driven.ApplicationStore, searcher driven.DecisionSearcher, windowDays int) *DecisionSync {
	if windowDays <= 0 {
		windowDays = domain.DefaultAppSettings().Decisions.WindowDays
	}
	return &DecisionSync{
		store:    store,
		searcher: searcher,
		window:   time.Duration(windowDays) * 24 * time.Hour,
		now:      time.Now,
	}
}

// Run searches the window and applies every result that carries a status
// and a parseable decision date. A search failure is returned; per-result failures are counted.
func (d *DecisionSync) Run(ctx context.Context) (domain.DecisionReport, error) {
	var report domain.DecisionReport
	logger.Section("Decision Sync")

	to := d.now()
	from := to.Add(-d.window)
	results, err := d.searcher.RecentDecisions(ctx, from, to)
	if err != nil {
		return report, fmt.Errorf("search decisions: %w", err)
	}
	report.Found = len(results)
	logger.Info("Found %d decisions between %s and %s",
		len(results), domain.DateOf(from).FormatDisplay(), domain.DateOf(to).FormatDisplay())

	for i := range results {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		applied, err := d.apply(ctx, &results[i], to)
		switch {
		case err != nil:
			report.Errors++
			logger.Warn("decision %s: %v", results[i].Key, err)
		case applied:
			report.Applied++
		default:
			report.Skipped++
		}
	}

	logger.Info("Decision sync complete: %d applied, %d skipped, %d errors",
		report.Applied, report.Skipped, report.Errors)
	return report, nil
}

// apply records one search result. The status is only changed when the
// portal reports a decision whose class differs from the stored code, and
// the decision date is only filled in when the record has none, since
// enrichment owns that field.
func (d *DecisionSync) apply(ctx context.Context, result *domain.DecisionResult, now time.Time) (bool, error) {
	key := strings.TrimSpace(result.Key)
	portalStatus := strings.TrimSpace(result.Status)
	if key == "" || portalStatus == "" {
		return false, nil
	}
	decided, err := domain.ParsePortalDate(result.DecisionText)
	if err != nil {
		logger.Debug("decision %s: %v", key, err)
		return false, nil
	}

	existing, err := d.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("decision %s: not in store", key)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	update := domain.DecisionUpdate{
		Key:          key,
		Status:       existing.Status,
		DecisionDate: decided,
	}
	if existing.DecisionDate != nil {
		update.DecisionDate = *existing.DecisionDate
	}

	class := domain.ClassifyPortalStatus(portalStatus)
	if code := domain.DecidedCode(class); code != "" && class != domain.ClassifyStatus(existing.Status) {
		update.Status = code
		update.Transition = &domain.StatusTransition{
			Key:       key,
			OldStatus: existing.Status,
			NewStatus: code,
			ChangedAt: now,
		}
	}

	if update.Transition == nil && existing.DecisionDate != nil {
		return false, nil
	}
	return d.store.ApplyDecision(ctx, update)
}
