package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driving"
	"github.com/custodia-labs/planwatch/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled syncs and expose metrics",
	Long: `Runs the sync cycle on the configured interval until interrupted, with
enrichment backlog drains in between when scheduler.backlog_minutes is set.

Prometheus metrics are served on /metrics. /status reports the pipeline
state and the most recent scheduled runs.
Pass an empty --addr to disable the HTTP listener.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:9464", "Listen address for /metrics and /status")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	logger.SetVerbose(true)
	logger.SetTimestamps(true)
	ctx := cmd.Context()

	if serveAddr != "" {
		ln, err := net.Listen("tcp", serveAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", serveAddr, err)
		}
		srv := &http.Server{
			Handler:           newServeMux(syncCoordinator, applicationQuery, scheduler),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		cmd.Printf("Serving metrics on http://%s/metrics\n", ln.Addr())
	}

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err := scheduler.Start(ctx)
	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("scheduler stop: %v", stopErr)
	}
	if ctx.Err() != nil {
		cmd.Println("Stopped.")
		return nil
	}
	return err
}

// statusResponse is the JSON body of /status.
type statusResponse struct {
	Running      bool       `json:"running"`
	CurrentCycle string     `json:"current_cycle,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	LastCycle    *cycleJSON `json:"last_cycle,omitempty"`
	RecentRuns   []runJSON  `json:"recent_runs,omitempty"`
}

type cycleJSON struct {
	ID         string                  `json:"id"`
	Outcome    domain.CycleOutcome     `json:"outcome"`
	StartedAt  time.Time               `json:"started_at"`
	EndedAt    time.Time               `json:"ended_at"`
	Reconcile  domain.ReconcileReport  `json:"reconcile"`
	Decisions  domain.DecisionReport   `json:"decisions"`
	Enrichment domain.EnrichmentReport `json:"enrichment"`
	Error      string                  `json:"error,omitempty"`
}

type runJSON struct {
	Job       domain.JobID        `json:"job"`
	CycleID   string              `json:"cycle_id"`
	Outcome   domain.CycleOutcome `json:"outcome"`
	StartedAt time.Time           `json:"started_at"`
	EndedAt   time.Time           `json:"ended_at"`
	Added     int                 `json:"added"`
	Updated   int                 `json:"updated"`
	Applied   int                 `json:"decisions_applied"`
	Enriched  int                 `json:"enriched"`
	Errors    int                 `json:"errors"`
	Error     string              `json:"error,omitempty"`
}

// statusRuns is the number of scheduled runs reported by /status.
const statusRuns = 10

func newServeMux(coord driving.SyncCoordinator, query driving.ApplicationQuery, sched driving.Scheduler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if coord == nil {
			http.Error(w, errSyncNotConfigured.Error(), http.StatusServiceUnavailable)
			return
		}
		status := coord.Status()
		resp := statusResponse{Running: status.Running, CurrentCycle: status.CurrentID}
		if last := status.Last; last != nil {
			resp.LastCycle = &cycleJSON{
				ID:         last.ID,
				Outcome:    last.Outcome,
				StartedAt:  last.StartedAt,
				EndedAt:    last.EndedAt,
				Reconcile:  last.Reconcile,
				Decisions:  last.Decisions,
				Enrichment: last.Enrichment,
				Error:      last.Error,
			}
		}
		if sched != nil {
			runs, err := sched.RecentRuns(r.Context(), statusRuns)
			if err != nil {
				logger.Warn("recent runs: %v", err)
			}
			for _, run := range runs {
				resp.RecentRuns = append(resp.RecentRuns, runJSON{
					Job:       run.Job,
					CycleID:   run.CycleID,
					Outcome:   run.Outcome,
					StartedAt: run.StartedAt,
					EndedAt:   run.EndedAt,
					Added:     run.Added,
					Updated:   run.Updated,
					Applied:   run.Applied,
					Enriched:  run.Enriched,
					Errors:    run.Errors,
					Error:     run.Error,
				})
			}
		}
		if query != nil {
			if t, err := query.LastSyncedAt(r.Context()); err == nil && !t.IsZero() {
				resp.LastSyncedAt = &t
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn("encode status: %v", err)
		}
	})
	return mux
}
