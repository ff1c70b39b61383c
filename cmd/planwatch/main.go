// Command planwatch tracks planning applications.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/planwatch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/planwatch/internal/adapters/driven/portal/idox"
	"github.com/custodia-labs/planwatch/internal/adapters/driven/snapshot/opendata"
	"github.com/custodia-labs/planwatch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/planwatch/internal/adapters/driving/cli"
	"github.com/custodia-labs/planwatch/internal/core/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the adapters into the core services.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	dir := opts.DataDir
	if dir == "" {
		d, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data directory: %w", err)
		}
		dir = d
	}

	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	watermark, err := file.NewWatermarkStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open sync state: %w", err)
	}

	store, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	apps := store.ApplicationStore()

	portal := idox.NewClient(idox.ClientConfigFrom(settings.Portal))
	resolver := idox.NewResolver(portal)
	fetcher := idox.NewFetcher(portal, resolver)

	var decisions *services.DecisionSync
	if settings.Decisions.Enabled {
		decisions = services.NewDecisionSync(apps, idox.NewDecisionSearch(portal), settings.Decisions.WindowDays)
	}

	coordinator := services.NewCoordinator(
		opendata.NewSource(settings.Snapshot, settings.Portal.UserAgent),
		watermark,
		services.NewReconciler(apps),
		decisions,
		services.NewEnrichmentWorker(apps, fetcher, settings.Enrichment),
	)

	return &cli.Services{
		Sync:      coordinator,
		Query:     services.NewQueryService(apps, settings.Portal.BaseURL),
		Settings:  settingsService,
		Scheduler: services.NewScheduler(settings.Scheduler, store.SchedulerStore(), coordinator),
		Close: func() error {
			coordinator.Wait()
			return store.Close()
		},
	}, nil
}
