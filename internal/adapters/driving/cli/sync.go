package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full sync cycle",
	Long: `Runs one sync cycle: download the open-data snapshot and reconcile it,
apply recent decisions from the portal, then enrich the backlog.

The snapshot is skipped when it has not changed since the last clean run.
Only one cycle runs at a time.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncCoordinator == nil {
		return errSyncNotConfigured
	}

	cmd.Println("Synchronising planning applications...")
	result := syncCoordinator.TriggerSync(cmd.Context())

	switch result.Outcome {
	case domain.CycleAlreadyRunning:
		cmd.Println("A sync is already running.")
		return nil
	case domain.CycleFailed:
		printCycle(cmd, &result)
		return fmt.Errorf("sync failed: %s", result.Error)
	}

	printCycle(cmd, &result)
	return nil
}

// printCycle prints the stage counts of a finished cycle.
func printCycle(cmd *cobra.Command, r *domain.CycleResult) {
	rec := r.Reconcile
	if rec.NotModified {
		cmd.Println("  Snapshot:   unchanged since last sync")
	} else {
		cmd.Printf("  Snapshot:   %d rows, %d added, %d updated, %d unchanged, %d skipped, %d errors\n",
			rec.Rows, rec.Added, rec.Updated, rec.Unchanged, rec.Skipped, rec.Errors)
	}

	dec := r.Decisions
	cmd.Printf("  Decisions:  %d found, %d applied, %d skipped, %d errors\n",
		dec.Found, dec.Applied, dec.Skipped, dec.Errors)

	enr := r.Enrichment
	cmd.Printf("  Enrichment: %d attempted, %d enriched, %d failed, %d warnings\n",
		enr.Attempted, enr.Enriched, enr.Failed, enr.Warnings)

	took := r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond)
	cmd.Printf("Cycle %s %s in %s.\n", r.ID, r.Outcome, took)
	if r.Outcome == domain.CycleCompletedWithErrors && r.Error != "" {
		cmd.Printf("Last error: %s\n", r.Error)
	}
}
