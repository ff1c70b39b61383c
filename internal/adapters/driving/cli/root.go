// Package cli implements the planwatch command line.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/planwatch/internal/core/ports/driving"
	"github.com/custodia-labs/planwatch/internal/logger"
)

// Options are the global flags handed to the bootstrap function.
type Options struct {
	// DataDir holds config.toml, state.toml and the database.
	// Empty means ~/.planwatch.
	DataDir string
	Verbose bool
}

// Services are the core ports the commands drive.
type Services struct {
	Sync      driving.SyncCoordinator
	Query     driving.ApplicationQuery
	Settings  driving.SettingsService
	Scheduler driving.Scheduler

	// Close releases adapters. Optional.
	Close func() error
}

// BootstrapFunc builds the services once flags are parsed.
type BootstrapFunc func(Options) (*Services, error)

// Service ports used by commands. Set by bootstrap, or directly in tests.
var (
	syncCoordinator  driving.SyncCoordinator
	applicationQuery driving.ApplicationQuery
	settingsService  driving.SettingsService
	scheduler        driving.Scheduler
	closeServices    func() error

	bootstrap BootstrapFunc
	version   = "dev"
	opts      Options
)

// skipBootstrap marks commands that need no services.
const skipBootstrap = "skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "planwatch",
	Short: "Track planning applications from open data and the council portal",
	Long: `planwatch keeps a local record of planning applications.

Each sync downloads the council's open-data snapshot, reconciles it into the
local store, picks up recent decisions from the planning portal, then enriches
new and changed records with address and agent details from the portal.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardownServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Print progress and debug logs")
	rootCmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "Directory for config, state and database (default ~/.planwatch)")
}

// SetBootstrap registers the function that wires adapters into services.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)

	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}
	svc, err := bootstrap(opts)
	if err != nil {
		return err
	}
	syncCoordinator = svc.Sync
	applicationQuery = svc.Query
	settingsService = svc.Settings
	scheduler = svc.Scheduler
	closeServices = svc.Close
	return nil
}

func teardownServices() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

var (
	errSyncNotConfigured     = errors.New("sync service not configured")
	errQueryNotConfigured    = errors.New("query service not configured")
	errSettingsNotConfigured = errors.New("settings service not configured")
)
