package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

// listFlags hold the list command's filter flags.
var listFlags struct {
	statuses []string
	search   string
	agent    string
	from     string
	to       string
	sort     string
	asc      bool
	limit    int
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked applications",
	Long: `Lists applications from the local store, newest first.

Status codes can be repeated or comma separated. PENDING matches every
undecided code plus records with no status; ALL disables the filter.`,
	Example: `  planwatch list --status PENDING --limit 20
  planwatch list --search "extension" --agent smith --from 2026-01-01
  planwatch list --sort decision --status HAPP,REF`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var showCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show one application",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var historyCmd = &cobra.Command{
	Use:   "history <key>",
	Short: "Show status changes for an application",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var agentsLimit int

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the most active agents",
	Args:  cobra.NoArgs,
	RunE:  runAgents,
}

func init() {
	f := listCmd.Flags()
	f.StringSliceVarP(&listFlags.statuses, "status", "s", nil, "Status codes to include (PENDING, ALL, HAPP, ...)")
	f.StringVarP(&listFlags.search, "search", "q", "", "Text to find in proposal, address, reference or key")
	f.StringVar(&listFlags.agent, "agent", "", "Agent name contains")
	f.StringVar(&listFlags.from, "from", "", "Received on or after this date")
	f.StringVar(&listFlags.to, "to", "", "Received on or before this date")
	f.StringVar(&listFlags.sort, "sort", "received", "Sort by received, validated or decision date")
	f.BoolVar(&listFlags.asc, "asc", false, "Oldest first")
	f.IntVarP(&listFlags.limit, "limit", "n", domain.DefaultQueryLimit, "Maximum rows")

	agentsCmd.Flags().IntVarP(&agentsLimit, "limit", "n", 10, "Number of agents")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(agentsCmd)
}

func buildFilter() (domain.ApplicationFilter, error) {
	filter := domain.ApplicationFilter{
		Statuses:  listFlags.statuses,
		Search:    listFlags.search,
		Agent:     listFlags.agent,
		Ascending: listFlags.asc,
		Limit:     listFlags.limit,
	}

	switch strings.ToLower(strings.TrimSpace(listFlags.sort)) {
	case "", "received":
		filter.SortBy = domain.SortReceived
	case "validated":
		filter.SortBy = domain.SortValidated
	case "decision", "decided":
		filter.SortBy = domain.SortDecision
	default:
		return filter, fmt.Errorf("%w: unknown sort %q (use received, validated or decision)",
			domain.ErrInvalidInput, listFlags.sort)
	}

	var err error
	if filter.ReceivedFrom, err = parseDateFlag("from", listFlags.from); err != nil {
		return filter, err
	}
	if filter.ReceivedTo, err = parseDateFlag("to", listFlags.to); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseDateFlag(name, value string) (*domain.Date, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := domain.NormalizeDate(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &d, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if applicationQuery == nil {
		return errQueryNotConfigured
	}

	filter, err := buildFilter()
	if err != nil {
		return err
	}
	result, err := applicationQuery.Query(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}

	if len(result.Applications) == 0 {
		cmd.Println("No applications found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tREFERENCE\tSTATUS\tRECEIVED\tDECIDED\tAGENT\tADDRESS")
	for i := range result.Applications {
		app := &result.Applications[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			app.Key, app.DisplayReference(), orDash(app.Status),
			formatDate(app.ReceivedDate), formatDate(app.DecisionDate),
			orDash(app.AgentName), truncate(orDash(app.Address), 48))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s := result.Stats
	cmd.Printf("\nShowing %d of %d (%d approved, %d pending, %d refused)\n",
		len(result.Applications), s.Total, s.Approved, s.Pending, s.Refused)

	if last, err := applicationQuery.LastSyncedAt(cmd.Context()); err == nil && !last.IsZero() {
		cmd.Printf("Last synced %s\n", last.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	if applicationQuery == nil {
		return errQueryNotConfigured
	}

	app, err := applicationQuery.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get application: %w", err)
	}
	printApplication(cmd, app)
	cmd.Printf("  Portal:     %s\n", applicationQuery.PortalURL(app))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if applicationQuery == nil {
		return errQueryNotConfigured
	}

	key := args[0]
	trail, err := applicationQuery.AuditTrail(cmd.Context(), key)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(trail) == 0 {
		cmd.Printf("No status changes recorded for %s.\n", key)
		return nil
	}

	cmd.Printf("Status changes for %s:\n\n", key)
	for _, t := range trail {
		cmd.Printf("  %s  %s -> %s\n", t.ChangedAt.Local().Format("2006-01-02 15:04:05"),
			orDash(t.OldStatus), orDash(t.NewStatus))
	}
	return nil
}

func runAgents(cmd *cobra.Command, _ []string) error {
	if applicationQuery == nil {
		return errQueryNotConfigured
	}

	agents, err := applicationQuery.TopAgents(cmd.Context(), agentsLimit)
	if err != nil {
		return fmt.Errorf("failed to list agents: %w", err)
	}
	if len(agents) == 0 {
		cmd.Println("No agents recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tAPPLICATIONS")
	for _, a := range agents {
		fmt.Fprintf(w, "%s\t%d\n", a.Name, a.Count)
	}
	return w.Flush()
}

func printApplication(cmd *cobra.Command, app *domain.Application) {
	cmd.Printf("Application: %s\n\n", app.Key)
	cmd.Printf("  Reference:  %s\n", app.DisplayReference())
	cmd.Printf("  Status:     %s\n", orDash(app.Status))
	cmd.Printf("  Proposal:   %s\n", orDash(app.Proposal))
	cmd.Printf("  Address:    %s\n", orDash(app.Address))
	cmd.Printf("  Agent:      %s\n", orDash(app.AgentName))
	cmd.Printf("  Received:   %s\n", formatDate(app.ReceivedDate))
	cmd.Printf("  Validated:  %s\n", formatDate(app.ValidatedDate))
	cmd.Printf("  Decided:    %s\n", formatDate(app.DecisionDate))
	if app.Latitude != nil && app.Longitude != nil {
		cmd.Printf("  Location:   %.6f, %.6f\n", *app.Latitude, *app.Longitude)
	}
	if app.PortalKey != "" {
		cmd.Printf("  Portal key: %s\n", app.PortalKey)
	}
	if app.NeedsEnrichment {
		cmd.Printf("  Enrichment: queued (%d failed attempts)\n", app.EnrichAttempts)
	} else if !app.LastEnrichedAt.IsZero() {
		cmd.Printf("  Enriched:   %s\n", formatTime(app.LastEnrichedAt))
	}
	if !app.LastSyncedAt.IsZero() {
		cmd.Printf("  Synced:     %s\n", formatTime(app.LastSyncedAt))
	}
	if app.ValidationWarning != "" {
		cmd.Printf("  Warning:    %s\n", app.ValidationWarning)
	}
}

func formatDate(d *domain.Date) string {
	if d == nil {
		return "-"
	}
	return d.FormatDisplay()
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
