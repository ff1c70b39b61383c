package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "enrich [key]",
	Short: "Fetch portal details for records",
	Long: `Fetches address, agent and decision details from the planning portal.

With a key, enriches that record immediately, even if earlier attempts failed.
Without a key, works through the enrichment backlog, newest first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().IntVarP(&enrichLimit, "limit", "n", 0, "Maximum records to enrich (default: configured batch size)")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if syncCoordinator == nil {
		return errSyncNotConfigured
	}

	if len(args) == 0 {
		result, err := syncCoordinator.DrainBacklog(cmd.Context(), enrichLimit)
		if errors.Is(err, domain.ErrSyncInProgress) {
			cmd.Println("A sync is already running.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("enrichment failed: %w", err)
		}
		enr := result.Enrichment
		cmd.Printf("Enriched %d of %d records (%d failed, %d warnings).\n",
			enr.Enriched, enr.Attempted, enr.Failed, enr.Warnings)
		return nil
	}

	key := args[0]
	cmd.Printf("Enriching %s...\n", key)
	app, err := syncCoordinator.TriggerEnrichment(cmd.Context(), key)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no application with key %s", key)
	}
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	printApplication(cmd, app)
	if app.ValidationWarning != "" {
		cmd.Printf("\nWarning: %s\n", app.ValidationWarning)
	}
	return nil
}
